package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/internal/courses"
	"github.com/learnsphere/coursemarket-backend/pkg/db"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type courseLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*courses.CourseDTO, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
}

// Service exposes cart operations to the purchase flows.
type Service interface {
	AddCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Cart, error)
	RemoveCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	GetActive(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	courses     courseLoader
	enrollments enrollmentChecker
	expiryTTL   time.Duration
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, courseSvc courseLoader, enrollments enrollmentChecker, expiryTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if courseSvc == nil {
		return nil, fmt.Errorf("course loader required")
	}
	if enrollments == nil {
		return nil, fmt.Errorf("enrollment checker required")
	}
	if expiryTTL <= 0 {
		return nil, fmt.Errorf("cart expiry ttl must be positive")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		courses:     courseSvc,
		enrollments: enrollments,
		expiryTTL:   expiryTTL,
	}, nil
}

// AddCourse validates the course against the user's state and appends a
// frozen snapshot line. The checks short-circuit on the first failure, so a
// caller cannot assume every rule ran. The cart is created lazily and its
// expiry refreshed on every successful add.
func (s *service) AddCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Purchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "course is not available for purchase")
	}

	enrolled, err := s.enrollments.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check enrollment")
	}
	if enrolled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already enrolled in this course")
	}

	var out *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindActiveByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cart, err = repo.Create(ctx, &models.Cart{
				UserID:    userID,
				ExpiresAt: time.Now().Add(s.expiryTTL),
			})
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		if cart.HasCourse(courseID) {
			return pkgerrors.New(pkgerrors.CodeConflict, "course is already in the cart")
		}

		item := &models.CartItem{
			CartID:         cart.ID,
			CourseID:       course.ID,
			Title:          course.Title,
			InstructorName: course.InstructorName,
			Thumbnail:      course.Thumbnail,
			UnitPrice:      course.EffectivePrice,
		}
		if err := repo.AddItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "course is already in the cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}

		if err := repo.ExtendExpiry(ctx, cart.ID, time.Now().Add(s.expiryTTL)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend cart expiry")
		}

		out, err = repo.FindByID(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveCourse drops a single line from the user's cart.
func (s *service) RemoveCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if courseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "course id is required")
	}

	var out *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindActiveByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		removed, err := repo.RemoveItem(ctx, cart.ID, courseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		if removed == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "course is not in the cart")
		}

		out, err = repo.FindByID(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clear destroys the user's cart and its items. A missing cart is not an
// error; clearing is invoked from flows that may race with expiry sweeps.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	err := s.repo.DeleteByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// GetActive returns the user's cart with its recomputed total.
func (s *service) GetActive(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}
