package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/api/responses"
	"github.com/learnsphere/coursemarket-backend/api/validators"
	cartsvc "github.com/learnsphere/coursemarket-backend/internal/cart"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
)

// CartGet returns the caller's active cart.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetActive(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartAddItem adds one course to the caller's cart, creating the cart on
// first use.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddCourse(r.Context(), userID, payload.CourseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(record))
	}
}

// CartRemoveItem drops one course line from the caller's cart.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		courseID, err := pathUUID(r, "courseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveCourse(r.Context(), userID, courseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartClear deletes the caller's cart outright. Clearing an absent cart is
// a successful noop.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

type addCartItemRequest struct {
	CourseID uuid.UUID `json:"course_id" validate:"required"`
}

type cartResponse struct {
	ID          uuid.UUID          `json:"id"`
	TotalAmount int64              `json:"total_amount"`
	ExpiresAt   time.Time          `json:"expires_at"`
	Items       []cartItemResponse `json:"items"`
}

type cartItemResponse struct {
	CourseID       uuid.UUID `json:"course_id"`
	Title          string    `json:"title"`
	InstructorName string    `json:"instructor_name"`
	Thumbnail      string    `json:"thumbnail,omitempty"`
	UnitPrice      int64     `json:"unit_price"`
}

func newCartResponse(record *models.Cart) *cartResponse {
	if record == nil {
		return nil
	}
	items := make([]cartItemResponse, len(record.Items))
	for i, item := range record.Items {
		items[i] = cartItemResponse{
			CourseID:       item.CourseID,
			Title:          item.Title,
			InstructorName: item.InstructorName,
			Thumbnail:      item.Thumbnail,
			UnitPrice:      item.UnitPrice,
		}
	}
	return &cartResponse{
		ID:          record.ID,
		TotalAmount: record.TotalAmount(),
		ExpiresAt:   record.ExpiresAt,
		Items:       items,
	}
}
