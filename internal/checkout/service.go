package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/internal/cart"
	"github.com/learnsphere/coursemarket-backend/internal/enrollments"
	"github.com/learnsphere/coursemarket-backend/internal/orders"
	"github.com/learnsphere/coursemarket-backend/pkg/db"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
	"github.com/learnsphere/coursemarket-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type integrityChecker interface {
	CheckCourseIntegrity(ctx context.Context, record *models.Cart) (*cart.IntegrityReport, error)
}

type checkoutMetrics interface {
	IncCheckout(outcome string)
}

// CheckoutInput carries the client-supplied checkout payload.
type CheckoutInput struct {
	IdempotencyKey *string
	Notes          *string
}

// CheckoutResult is the outcome surfaced to the client. Reused is set when
// an idempotency-key replay or a duplicate unpaid order short-circuited the
// flow; Warnings carries non-blocking integrity drift.
type CheckoutResult struct {
	Order    *models.Order            `json:"order"`
	Attempt  *models.PaymentAttempt   `json:"attempt,omitempty"`
	Reused   bool                     `json:"reused"`
	Warnings []cart.IntegrityIssue    `json:"warnings,omitempty"`
	Enrolled []enrollments.ItemResult `json:"enrolled,omitempty"`
}

// Service turns a validated cart into an order, plus one payment attempt
// when money is owed.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
}

type service struct {
	tx         txRunner
	cartRepo   cart.Repository
	ordersRepo orders.Repository
	enrollRepo enrollments.Repository
	validator  integrityChecker
	metrics    checkoutMetrics
	log        *logger.Logger
	cartTTL    time.Duration
}

// NewService builds the checkout orchestrator.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	enrollRepo enrollments.Repository,
	validator integrityChecker,
	metrics checkoutMetrics,
	log *logger.Logger,
	cartTTL time.Duration,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if enrollRepo == nil {
		return nil, fmt.Errorf("enrollments repository required")
	}
	if validator == nil {
		return nil, fmt.Errorf("cart validator required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("payment metrics required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cartTTL <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		enrollRepo: enrollRepo,
		validator:  validator,
		metrics:    metrics,
		log:        log,
		cartTTL:    cartTTL,
	}, nil
}

// Execute runs the whole checkout inside one transaction. Replaying the same
// idempotency key, or re-submitting while an unpaid order for the same cart
// exists, returns the existing order instead of creating another.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var result *CheckoutResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		enrollRepo := s.enrollRepo.WithTx(tx)

		if input.IdempotencyKey != nil && *input.IdempotencyKey != "" {
			existing, err := ordersRepo.FindByUserAndIdempotencyKey(ctx, userID, *input.IdempotencyKey)
			if err == nil {
				result, err = s.reusedResult(ctx, ordersRepo, existing)
				return err
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup")
			}
		}

		record, err := cartRepo.FindActiveByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := cart.ValidateForCheckout(record); err != nil {
			return err
		}

		now := time.Now()
		if record.IsExpired(now) {
			// An actively checking-out user gets a fresh window instead
			// of a rejection.
			if err := cartRepo.ExtendExpiry(ctx, record.ID, now.Add(s.cartTTL)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend cart expiry")
			}
		}

		existing, err := ordersRepo.FindUnpaidByCart(ctx, record.ID)
		if err == nil {
			result, err = s.reusedResult(ctx, ordersRepo, existing)
			return err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "duplicate order lookup")
		}

		report, err := s.validator.CheckCourseIntegrity(ctx, record)
		if err != nil {
			return err
		}
		if !report.OK() {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart failed integrity checks").
				WithDetails(report)
		}

		courseIDs := make([]uuid.UUID, 0, len(record.Items))
		for _, item := range record.Items {
			courseIDs = append(courseIDs, item.CourseID)
		}
		owned, err := enrollRepo.ExistsAny(ctx, userID, courseIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enrollment re-check")
		}
		if owned {
			return pkgerrors.New(pkgerrors.CodeConflict, "a cart course was already purchased")
		}

		order, err := s.buildOrder(userID, record, input, now)
		if err != nil {
			return err
		}
		if _, err := ordersRepo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err) && input.IdempotencyKey != nil {
				// Lost the race against a concurrent replay of the same key.
				winner, lookupErr := ordersRepo.FindByUserAndIdempotencyKey(ctx, userID, *input.IdempotencyKey)
				if lookupErr == nil {
					result, err = s.reusedResult(ctx, ordersRepo, winner)
					return err
				}
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if order.TotalAmount == 0 {
			return s.completeFreeOrder(ctx, ordersRepo, enrollRepo, cartRepo, order, record, report, &result, now)
		}

		attempt, err := s.createPendingAttempt(ctx, ordersRepo, order, now)
		if err != nil {
			return err
		}
		if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusPendingPayment,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order pending payment")
		}
		order.Status = enums.OrderStatusPendingPayment

		// The cart survives until the payment is approved so the user's
		// selection is still visible across sessions.
		result = &CheckoutResult{
			Order:    order,
			Attempt:  attempt,
			Warnings: report.Warnings,
		}
		return nil
	})
	if err != nil {
		s.metrics.IncCheckout("error")
		return nil, err
	}
	switch {
	case result.Reused:
		s.metrics.IncCheckout("reused")
	case result.Attempt == nil:
		s.metrics.IncCheckout("free")
	default:
		s.metrics.IncCheckout("pending_payment")
	}
	return result, nil
}

func (s *service) reusedResult(ctx context.Context, repo orders.Repository, order *models.Order) (*CheckoutResult, error) {
	res := &CheckoutResult{Order: order, Reused: true}
	attempts, err := repo.FindAttemptsByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order attempts")
	}
	if len(attempts) > 0 {
		res.Attempt = &attempts[len(attempts)-1]
	}
	return res, nil
}

func (s *service) buildOrder(userID uuid.UUID, record *models.Cart, input CheckoutInput, now time.Time) (*models.Order, error) {
	number, err := orders.NewOrderNumber(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order number")
	}

	snapshot := types.CartSnapshot{CartID: record.ID}
	for _, item := range record.Items {
		snapshot.Items = append(snapshot.Items, types.CartSnapshotItem{
			CourseID:       item.CourseID,
			Title:          item.Title,
			InstructorName: item.InstructorName,
			Thumbnail:      item.Thumbnail,
			UnitPrice:      item.UnitPrice,
		})
	}

	return &models.Order{
		OrderNumber:    number,
		UserID:         userID,
		CartID:         record.ID,
		Status:         enums.OrderStatusDraft,
		TotalAmount:    record.TotalAmount(),
		Currency:       enums.CurrencyIRR,
		PaymentMethod:  enums.PaymentMethodManualReceipt,
		CartSnapshot:   snapshot,
		IdempotencyKey: input.IdempotencyKey,
		Notes:          input.Notes,
	}, nil
}

// completeFreeOrder runs the zero-total fast path: the order completes
// immediately, every item becomes a pre-paid enrollment, and the cart is
// destroyed. No payment attempt is ever created.
func (s *service) completeFreeOrder(
	ctx context.Context,
	ordersRepo orders.Repository,
	enrollRepo enrollments.Repository,
	cartRepo cart.Repository,
	order *models.Order,
	record *models.Cart,
	report *cart.IntegrityReport,
	result **CheckoutResult,
	now time.Time,
) error {
	batch := enrollments.NewBatch(order.UserID, now)
	for _, item := range order.CartSnapshot.Items {
		existing, err := enrollRepo.FindByUserAndCourse(ctx, order.UserID, item.CourseID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load enrollment")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			existing = nil
		}
		if err := batch.Apply(existing, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "enroll free course")
		}
	}
	if err := batch.Commit(ctx, enrollRepo); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist enrollments")
	}

	if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
		"status":       enums.OrderStatusCompleted,
		"completed_at": now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
	}
	order.Status = enums.OrderStatusCompleted
	order.CompletedAt = &now

	if err := cartRepo.Delete(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}

	*result = &CheckoutResult{
		Order:    order,
		Warnings: report.Warnings,
		Enrolled: batch.Results(),
	}
	return nil
}

func (s *service) createPendingAttempt(ctx context.Context, repo orders.Repository, order *models.Order, now time.Time) (*models.PaymentAttempt, error) {
	code, err := orders.NewTrackingCode(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "tracking code")
	}
	attempt := &models.PaymentAttempt{
		OrderID:      order.ID,
		Method:       enums.PaymentMethodManualReceipt,
		Status:       enums.PaymentAttemptStatusPendingPayment,
		Amount:       order.TotalAmount,
		TrackingCode: code,
	}
	if _, err := repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment attempt")
	}
	return attempt, nil
}
