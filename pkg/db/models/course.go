package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/learnsphere/coursemarket-backend/pkg/enums"
)

// Course is the live catalog entry carts snapshot from. Catalog CRUD is
// managed elsewhere; the checkout core reads it through the courses service.
type Course struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string             `gorm:"column:title;not null"`
	Description     string             `gorm:"column:description;type:text"`
	InstructorName  string             `gorm:"column:instructor_name;not null"`
	Thumbnail       string             `gorm:"column:thumbnail"`
	Price           int64              `gorm:"column:price;not null;default:0"`
	DiscountPercent float64            `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	Status          enums.CourseStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	Tags            pq.StringArray     `gorm:"column:tags;type:text[]"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
