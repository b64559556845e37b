package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a user's in-progress course selection. It is created lazily on the
// first add and destroyed once its content converts into a completed order or
// the payment is approved.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalAmount is always recomputed from the item snapshots, never stored.
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice
	}
	return total
}

// IsExpired reports whether the cart's expiry has passed at the given time.
func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// HasCourse reports whether the cart already holds the given course.
func (c *Cart) HasCourse(courseID uuid.UUID) bool {
	for _, item := range c.Items {
		if item.CourseID == courseID {
			return true
		}
	}
	return false
}
