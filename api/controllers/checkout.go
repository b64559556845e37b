package controllers

import (
	"net/http"

	"github.com/learnsphere/coursemarket-backend/api/responses"
	"github.com/learnsphere/coursemarket-backend/api/validators"
	checkoutsvc "github.com/learnsphere/coursemarket-backend/internal/checkout"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
)

// Checkout converts the caller's active cart into an order. The
// Idempotency-Key header, when present, also dedupes at the service level
// so a replay that slips past the middleware still returns the first
// outcome.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.CheckoutInput{Notes: payload.Notes}
		if key := idempotencyKeyHeader(r); key != "" {
			input.IdempotencyKey = &key
		}

		result, err := svc.Execute(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Reused {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

type checkoutRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}
