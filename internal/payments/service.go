package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/internal/audit"
	"github.com/learnsphere/coursemarket-backend/internal/cart"
	"github.com/learnsphere/coursemarket-backend/internal/enrollments"
	"github.com/learnsphere/coursemarket-backend/internal/orders"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reviewMetrics interface {
	IncReview(decision string)
}

// ReceiptInput carries the uploaded receipt reference for an attempt.
type ReceiptInput struct {
	FileName string
	Note     *string
}

// ReviewInput is the admin's decision payload. IdempotencyKey is mandatory;
// the same key replayed returns the prior outcome without new side effects.
type ReviewInput struct {
	AttemptID      uuid.UUID
	AdminUserID    uuid.UUID
	Approved       bool
	IdempotencyKey string
	RejectReason   *string
	IP             string
	UserAgent      string
}

// ReviewResult reports what the review did. Replayed marks an
// idempotency-key replay that short-circuited to the stored outcome.
type ReviewResult struct {
	Attempt   *models.PaymentAttempt   `json:"attempt"`
	Order     *models.Order            `json:"order"`
	Decision  enums.ReviewDecision     `json:"decision"`
	Replayed  bool                     `json:"replayed"`
	Items     []enrollments.ItemResult `json:"items,omitempty"`
	Summaries []string                 `json:"summaries,omitempty"`
}

// Service owns the payment attempt lifecycle after checkout: receipt upload
// by the student and the admin's approve/reject decision.
type Service interface {
	UploadReceipt(ctx context.Context, attemptID, userID uuid.UUID, input ReceiptInput) (*models.PaymentAttempt, error)
	AdminReviewPayment(ctx context.Context, input ReviewInput) (*ReviewResult, error)
}

type service struct {
	tx         txRunner
	ordersRepo orders.Repository
	cartRepo   cart.Repository
	enrollRepo enrollments.Repository
	auditRepo  audit.PaymentAuditRepository
	metrics    reviewMetrics
	log        *logger.Logger
}

// NewService builds the payment review orchestrator.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	cartRepo cart.Repository,
	enrollRepo enrollments.Repository,
	auditRepo audit.PaymentAuditRepository,
	metrics reviewMetrics,
	log *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if enrollRepo == nil {
		return nil, fmt.Errorf("enrollments repository required")
	}
	if auditRepo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("payment metrics required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		ordersRepo: ordersRepo,
		cartRepo:   cartRepo,
		enrollRepo: enrollRepo,
		auditRepo:  auditRepo,
		metrics:    metrics,
		log:        log,
	}, nil
}

// UploadReceipt attaches the payer's receipt and hands the attempt to the
// admin queue. Valid only from pending_payment or, after a rejection, from
// failed; a re-upload wipes the previous decision fields.
func (s *service) UploadReceipt(ctx context.Context, attemptID, userID uuid.UUID, input ReceiptInput) (*models.PaymentAttempt, error) {
	if attemptID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id and user id are required")
	}
	if strings.TrimSpace(input.FileName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt file name is required")
	}

	var out *models.PaymentAttempt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)

		attempt, err := ordersRepo.FindAttemptByID(ctx, attemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
		}

		order, err := ordersRepo.FindByIDForUser(ctx, attempt.OrderID, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if !attempt.Status.CanUploadReceipt() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("receipt cannot be uploaded while attempt is %s", attempt.Status))
		}

		now := time.Now()
		rows, err := ordersRepo.UpdateAttemptGuarded(ctx, attempt.ID, attempt.Version, map[string]any{
			"status":              enums.PaymentAttemptStatusAwaitingApproval,
			"receipt_file_name":   input.FileName,
			"receipt_note":        input.Note,
			"receipt_uploaded_at": now,
			"reviewed_by":         nil,
			"reviewed_at":         nil,
			"decision":            nil,
			"reject_reason":       nil,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment attempt")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "payment attempt was modified concurrently")
		}

		if order.Status == enums.OrderStatusDraft {
			// A rejected order re-enters the payment queue with the new
			// receipt.
			if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
				"status": enums.OrderStatusPendingPayment,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen order")
			}
		}

		attempt.Status = enums.PaymentAttemptStatusAwaitingApproval
		attempt.ReceiptFileName = &input.FileName
		attempt.ReceiptNote = input.Note
		attempt.ReceiptUploadedAt = &now
		attempt.ReviewedBy = nil
		attempt.ReviewedAt = nil
		attempt.Decision = nil
		attempt.RejectReason = nil
		attempt.Version++
		out = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AdminReviewPayment approves or rejects an attempt awaiting review. The
// operation is idempotent per (key, admin): a replay returns the stored
// outcome, and concurrent reviews of the same attempt are serialized by the
// version check, with the loser told to retry.
func (s *service) AdminReviewPayment(ctx context.Context, input ReviewInput) (*ReviewResult, error) {
	if input.AttemptID == uuid.Nil || input.AdminUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attempt id and admin user id are required")
	}
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}

	ctx = s.log.WithAttemptID(ctx, input.AttemptID.String())

	if prior, err := s.auditRepo.FindFinalByKeyAndAdmin(ctx, input.IdempotencyKey, input.AdminUserID); err == nil {
		return s.replayedResult(ctx, prior)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "audit replay lookup")
	}

	var result *ReviewResult
	var entry audit.Entry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		enrollRepo := s.enrollRepo.WithTx(tx)

		attempt, err := ordersRepo.FindAttemptByID(ctx, input.AttemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
		}

		order, err := ordersRepo.FindByID(ctx, attempt.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		// Loaded so rejection decisions can see how many attempts the
		// order already burned.
		siblings, err := ordersRepo.FindAttemptsByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sibling attempts")
		}

		newStatus := enums.PaymentAttemptStatusFailed
		decision := enums.ReviewDecisionRejected
		if input.Approved {
			newStatus = enums.PaymentAttemptStatusPaid
			decision = enums.ReviewDecisionApproved
		}
		entry = audit.Entry{
			IdempotencyKey: input.IdempotencyKey,
			AdminUserID:    input.AdminUserID,
			AttemptID:      attempt.ID,
			OrderID:        order.ID,
			PreviousStatus: attempt.Status,
			NewStatus:      newStatus,
			Amount:         attempt.Amount,
			IP:             input.IP,
			UserAgent:      input.UserAgent,
		}

		// The pre-action entry goes through the unbound repository so it
		// survives a rollback of the decision itself. A duplicate here only
		// proves a request with this key started before; the review is
		// replayed only when a final row confirms it completed, otherwise
		// the retry runs the decision again.
		entry.Context = fmt.Sprintf("review requested, order has %d attempt(s)", len(siblings))
		if err := s.auditRepo.Append(ctx, entry.Row(enums.AuditPhasePreAction)); err != nil {
			if errors.Is(err, audit.ErrAlreadyRecorded) {
				prior, lookupErr := s.auditRepo.FindFinalByKeyAndAdmin(ctx, input.IdempotencyKey, input.AdminUserID)
				if lookupErr == nil {
					replay, rErr := s.replayedResult(ctx, prior)
					if rErr != nil {
						return rErr
					}
					result = replay
					return nil
				}
				if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, lookupErr, "audit replay lookup")
				}
			} else {
				s.log.Error(ctx, "pre-action audit write failed", err)
			}
		}

		if !attempt.Status.RequiresAdminApproval() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("attempt in state %s cannot be reviewed", attempt.Status))
		}

		now := time.Now()
		fields := map[string]any{
			"status":      newStatus,
			"reviewed_by": input.AdminUserID,
			"reviewed_at": now,
			"decision":    decision,
		}
		if !input.Approved {
			fields["reject_reason"] = input.RejectReason
		}
		rows, err := ordersRepo.UpdateAttemptGuarded(ctx, attempt.ID, attempt.Version, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist review decision")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConcurrency, "payment attempt was reviewed concurrently")
		}
		attempt.Status = newStatus
		attempt.ReviewedBy = &input.AdminUserID
		attempt.ReviewedAt = &now
		attempt.Decision = &decision
		attempt.RejectReason = input.RejectReason
		attempt.Version++

		result = &ReviewResult{Attempt: attempt, Order: order, Decision: decision}
		if input.Approved {
			return s.approve(ctx, ordersRepo, enrollRepo, order, result, now)
		}
		return s.reject(ctx, ordersRepo, order, now)
	})
	if err != nil {
		return nil, err
	}
	if result.Replayed {
		return result, nil
	}

	// Post-commit effects are deliberately non-fatal: the decision stands
	// even when the audit trail or the cart cleanup misbehaves.
	entry.Context = strings.Join(result.Summaries, "; ")
	if err := s.auditRepo.Append(ctx, entry.Row(enums.AuditPhaseFinal)); err != nil &&
		!errors.Is(err, audit.ErrAlreadyRecorded) {
		s.log.Error(ctx, "final audit write failed", err)
	}
	if input.Approved {
		if err := s.cartRepo.Delete(ctx, result.Order.CartID); err != nil &&
			!errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error(ctx, "cart clear after approval failed", err)
		}
	}

	s.metrics.IncReview(string(result.Decision))
	return result, nil
}

// approve completes the order and converts every snapshot line into a paid
// enrollment. A single failing line discards the staged batch and aborts
// the whole transaction, leaving the cart intact for the user.
func (s *service) approve(
	ctx context.Context,
	ordersRepo orders.Repository,
	enrollRepo enrollments.Repository,
	order *models.Order,
	result *ReviewResult,
	now time.Time,
) error {
	if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
		"status":       enums.OrderStatusCompleted,
		"completed_at": now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
	}
	order.Status = enums.OrderStatusCompleted
	order.CompletedAt = &now

	batch := enrollments.NewBatch(order.UserID, now)
	for _, item := range order.CartSnapshot.Items {
		existing, err := enrollRepo.FindByUserAndCourse(ctx, order.UserID, item.CourseID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			batch.Discard()
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load enrollment")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			existing = nil
		}
		if err := batch.Apply(existing, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "apply enrollment")
		}
	}
	if err := batch.Commit(ctx, enrollRepo); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist enrollments")
	}

	result.Items = batch.Results()
	result.Summaries = batch.Summaries()
	return nil
}

// reject sends the order back to draft rather than cancelling it, so the
// user can upload a fresh receipt without rebuilding a cart.
func (s *service) reject(ctx context.Context, ordersRepo orders.Repository, order *models.Order, now time.Time) error {
	if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
		"status": enums.OrderStatusDraft,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset order to draft")
	}
	order.Status = enums.OrderStatusDraft
	return nil
}

// replayedResult reconstructs the success payload for an already processed
// key. The prior entry is always a final-phase row, so its recorded status
// carries the decision even if the attempt has moved on since.
func (s *service) replayedResult(ctx context.Context, prior *models.PaymentAuditLog) (*ReviewResult, error) {
	attempt, err := s.ordersRepo.FindAttemptByID(ctx, prior.PaymentAttemptID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replayed attempt")
	}
	order, err := s.ordersRepo.FindByID(ctx, attempt.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replayed order")
	}

	decision := enums.ReviewDecisionRejected
	if prior.NewStatus == enums.PaymentAttemptStatusPaid {
		decision = enums.ReviewDecisionApproved
	}
	if attempt.Decision != nil {
		decision = *attempt.Decision
	}
	return &ReviewResult{
		Attempt:  attempt,
		Order:    order,
		Decision: decision,
		Replayed: true,
	}, nil
}
