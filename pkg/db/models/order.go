package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	"github.com/learnsphere/coursemarket-backend/pkg/types"
)

// Order is the immutable purchase record created from a cart at checkout.
// The cart snapshot is serialized into the row so enrollments can still be
// created after the cart is cleared. Payment attempts are loaded through the
// repository, not held as a navigation property.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string              `gorm:"column:order_number;not null;uniqueIndex"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:idx_orders_user_idem"`
	CartID         uuid.UUID           `gorm:"column:cart_id;type:uuid;not null;index"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'draft'"`
	TotalAmount    int64               `gorm:"column:total_amount;not null"`
	Currency       enums.Currency      `gorm:"column:currency;type:text;not null;default:'IRR'"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'manual_receipt'"`
	CartSnapshot   types.CartSnapshot  `gorm:"column:cart_snapshot;type:jsonb;serializer:json"`
	IdempotencyKey *string             `gorm:"column:idempotency_key;uniqueIndex:idx_orders_user_idem"`
	Notes          *string             `gorm:"column:notes"`
	CompletedAt    *time.Time          `gorm:"column:completed_at"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
