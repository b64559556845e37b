package controllers

import (
	"net/http"

	"github.com/learnsphere/coursemarket-backend/api/responses"
	"github.com/learnsphere/coursemarket-backend/api/validators"
	paymentsvc "github.com/learnsphere/coursemarket-backend/internal/payments"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
)

// AdminReviewPayment records the admin's approve/reject decision on a
// payment attempt. The Idempotency-Key header is mandatory here; the same
// key replayed returns the stored outcome.
func AdminReviewPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		adminID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attemptID, err := pathUUID(r, "attemptId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Approved == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "approved is required"))
			return
		}

		result, err := svc.AdminReviewPayment(r.Context(), paymentsvc.ReviewInput{
			AttemptID:      attemptID,
			AdminUserID:    adminID,
			Approved:       *payload.Approved,
			IdempotencyKey: idempotencyKeyHeader(r),
			RejectReason:   payload.RejectReason,
			IP:             r.RemoteAddr,
			UserAgent:      r.UserAgent(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type reviewPaymentRequest struct {
	Approved     *bool   `json:"approved"`
	RejectReason *string `json:"reject_reason,omitempty" validate:"omitempty,max=1000"`
}
