package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/pkg/db"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
)

// ErrAlreadyRecorded signals that an audit row for the same
// (idempotency key, admin, phase) tuple already exists. The review
// orchestrator treats it as proof of a replayed request.
var ErrAlreadyRecorded = errors.New("audit entry already recorded")

// PaymentAuditRepository appends and reads the payment decision trail. Rows
// are append-only; there is no update surface.
type PaymentAuditRepository interface {
	WithTx(tx *gorm.DB) PaymentAuditRepository
	Append(ctx context.Context, entry *models.PaymentAuditLog) error
	FindFinalByKeyAndAdmin(ctx context.Context, idempotencyKey string, adminUserID uuid.UUID) (*models.PaymentAuditLog, error)
	FindByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.PaymentAuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) PaymentAuditRepository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) PaymentAuditRepository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Append inserts the entry. A unique violation on the dedup index comes back
// as ErrAlreadyRecorded; the insert constraint, not the earlier lookup, is
// the real guard against racing replays.
func (r *repository) Append(ctx context.Context, entry *models.PaymentAuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyRecorded
		}
		return err
	}
	return nil
}

// FindFinalByKeyAndAdmin returns the final-phase entry for the pair. Only a
// final row proves the review completed; a pre-action row alone marks a
// request that started and may have rolled back, so it never gates a retry.
func (r *repository) FindFinalByKeyAndAdmin(ctx context.Context, idempotencyKey string, adminUserID uuid.UUID) (*models.PaymentAuditLog, error) {
	var entry models.PaymentAuditLog
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND admin_user_id = ? AND phase = ?",
			idempotencyKey, adminUserID, enums.AuditPhaseFinal).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.PaymentAuditLog, error) {
	var entries []models.PaymentAuditLog
	err := r.db.WithContext(ctx).
		Where("payment_attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Entry captures the per-request fields the orchestrator stamps onto both
// audit phases of one review.
type Entry struct {
	IdempotencyKey string
	AdminUserID    uuid.UUID
	AttemptID      uuid.UUID
	OrderID        uuid.UUID
	PreviousStatus enums.PaymentAttemptStatus
	NewStatus      enums.PaymentAttemptStatus
	Amount         int64
	IP             string
	UserAgent      string
	Context        string
}

// Row maps the entry into the persistence model for the given phase.
func (e Entry) Row(phase enums.AuditPhase) *models.PaymentAuditLog {
	return &models.PaymentAuditLog{
		IdempotencyKey:   e.IdempotencyKey,
		AdminUserID:      e.AdminUserID,
		Phase:            phase,
		PaymentAttemptID: e.AttemptID,
		OrderID:          e.OrderID,
		PreviousStatus:   e.PreviousStatus,
		NewStatus:        e.NewStatus,
		Amount:           e.Amount,
		IP:               e.IP,
		UserAgent:        e.UserAgent,
		Context:          e.Context,
	}
}
