package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
)

// Service exposes course reads to the purchase flows.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CourseDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds the courses read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("courses repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*CourseDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id required")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load course")
	}
	return toDTO(course), nil
}

func toDTO(course *models.Course) *CourseDTO {
	return &CourseDTO{
		ID:             course.ID,
		Title:          course.Title,
		InstructorName: course.InstructorName,
		Thumbnail:      course.Thumbnail,
		Status:         course.Status,
		ListPrice:      course.Price,
		EffectivePrice: EffectivePrice(course.Price, course.DiscountPercent),
	}
}

// Purchasable reports whether the course can currently be added to a cart.
func (d *CourseDTO) Purchasable() bool {
	return d != nil && d.Status == enums.CourseStatusPublished
}
