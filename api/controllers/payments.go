package controllers

import (
	"net/http"

	"github.com/learnsphere/coursemarket-backend/api/responses"
	"github.com/learnsphere/coursemarket-backend/api/validators"
	paymentsvc "github.com/learnsphere/coursemarket-backend/internal/payments"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
)

// UploadReceipt attaches a bank receipt reference to the caller's payment
// attempt and queues it for admin review.
func UploadReceipt(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attemptID, err := pathUUID(r, "attemptId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload uploadReceiptRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attempt, err := svc.UploadReceipt(r.Context(), attemptID, userID, paymentsvc.ReceiptInput{
			FileName: validators.SanitizeString(payload.FileName, 255),
			Note:     payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, attempt)
	}
}

type uploadReceiptRequest struct {
	FileName string  `json:"file_name" validate:"required,min=1,max=255"`
	Note     *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}
