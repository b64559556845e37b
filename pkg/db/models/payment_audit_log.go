package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/pkg/enums"
)

// PaymentAuditLog is the append-only record of admin payment decisions. The
// unique (idempotency_key, admin_user_id, phase) constraint is the actual
// dedup safety net for replayed reviews; rows are never updated.
type PaymentAuditLog struct {
	ID               uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IdempotencyKey   string                     `gorm:"column:idempotency_key;not null;uniqueIndex:idx_audit_key_admin_phase"`
	AdminUserID      uuid.UUID                  `gorm:"column:admin_user_id;type:uuid;not null;uniqueIndex:idx_audit_key_admin_phase"`
	Phase            enums.AuditPhase           `gorm:"column:phase;type:text;not null;uniqueIndex:idx_audit_key_admin_phase"`
	PaymentAttemptID uuid.UUID                  `gorm:"column:payment_attempt_id;type:uuid;not null;index"`
	OrderID          uuid.UUID                  `gorm:"column:order_id;type:uuid;not null"`
	PreviousStatus   enums.PaymentAttemptStatus `gorm:"column:previous_status;type:text;not null"`
	NewStatus        enums.PaymentAttemptStatus `gorm:"column:new_status;type:text;not null"`
	Amount           int64                      `gorm:"column:amount;not null"`
	IP               string                     `gorm:"column:ip"`
	UserAgent        string                     `gorm:"column:user_agent"`
	Context          string                     `gorm:"column:context;type:text"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
