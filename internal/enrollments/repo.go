package enrollments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
)

// Repository encapsulates enrollment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error)
	Exists(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	ExistsAny(ctx context.Context, userID uuid.UUID, courseIDs []uuid.UUID) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *repository) Exists(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	_, err := r.FindByUserAndCourse(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ExistsAny reports whether the user already owns any of the given courses.
// Checkout uses it to detect a purchase that raced in through another path.
func (r *repository) ExistsAny(ctx context.Context, userID uuid.UUID, courseIDs []uuid.UUID) (bool, error) {
	if len(courseIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id IN ?", userID, courseIDs).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error) {
	if err := r.db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (r *repository) Update(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error) {
	if err := r.db.WithContext(ctx).Save(enrollment).Error; err != nil {
		return nil, err
	}
	return enrollment, nil
}
