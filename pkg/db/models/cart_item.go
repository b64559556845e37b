package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem freezes a course's display data and price at add time. The
// snapshot is deliberate: editing a course later must not silently change a
// cart. Integrity checks surface drift as warnings instead of mutating it.
type CartItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_course"`
	CourseID       uuid.UUID `gorm:"column:course_id;type:uuid;not null;uniqueIndex:idx_cart_items_cart_course"`
	Title          string    `gorm:"column:title;not null"`
	InstructorName string    `gorm:"column:instructor_name;not null"`
	Thumbnail      string    `gorm:"column:thumbnail"`
	UnitPrice      int64     `gorm:"column:unit_price;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
