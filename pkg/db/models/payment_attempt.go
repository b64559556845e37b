package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/pkg/enums"
)

// PaymentAttempt is one attempt to pay for an order via the manual
// receipt-upload method. Version backs the optimistic-concurrency check on
// admin review updates.
type PaymentAttempt struct {
	ID                uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index"`
	Method            enums.PaymentMethod        `gorm:"column:method;type:text;not null;default:'manual_receipt'"`
	Status            enums.PaymentAttemptStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	Amount            int64                      `gorm:"column:amount;not null"`
	TrackingCode      string                     `gorm:"column:tracking_code;not null;uniqueIndex"`
	ReceiptFileName   *string                    `gorm:"column:receipt_file_name"`
	ReceiptNote       *string                    `gorm:"column:receipt_note"`
	ReceiptUploadedAt *time.Time                 `gorm:"column:receipt_uploaded_at"`
	ReviewedBy        *uuid.UUID                 `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt        *time.Time                 `gorm:"column:reviewed_at"`
	Decision          *enums.ReviewDecision      `gorm:"column:decision;type:text"`
	RejectReason      *string                    `gorm:"column:reject_reason"`
	Version           int64                      `gorm:"column:version;not null;default:0"`
	CreatedAt         time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
