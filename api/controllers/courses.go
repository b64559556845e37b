package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/api/responses"
	coursesvc "github.com/learnsphere/coursemarket-backend/internal/courses"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
)

// CourseGet returns one catalog entry with its effective price.
func CourseGet(svc coursesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "courses service unavailable"))
			return
		}

		courseID, err := pathUUID(r, "courseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		course, err := svc.GetByID(r.Context(), courseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCourseResponse(course))
	}
}

type courseResponse struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	InstructorName string    `json:"instructor_name"`
	Thumbnail      string    `json:"thumbnail,omitempty"`
	Status         string    `json:"status"`
	ListPrice      int64     `json:"list_price"`
	EffectivePrice int64     `json:"effective_price"`
}

func newCourseResponse(course *coursesvc.CourseDTO) *courseResponse {
	if course == nil {
		return nil
	}
	return &courseResponse{
		ID:             course.ID,
		Title:          course.Title,
		InstructorName: course.InstructorName,
		Thumbnail:      course.Thumbnail,
		Status:         string(course.Status),
		ListPrice:      course.ListPrice,
		EffectivePrice: course.EffectivePrice,
	}
}
