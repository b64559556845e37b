package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/pkg/enums"
)

// Enrollment is a student's paid (or partially paid) registration in one
// course. At most one row exists per (user, course); approvals of later
// installments top up PaidAmount instead of creating duplicates.
type Enrollment struct {
	ID            uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID                     `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_enrollments_user_course"`
	CourseID      uuid.UUID                     `gorm:"column:course_id;type:uuid;not null;uniqueIndex:idx_enrollments_user_course"`
	CourseTitle   string                        `gorm:"column:course_title;not null"`
	TotalAmount   int64                         `gorm:"column:total_amount;not null"`
	PaidAmount    int64                         `gorm:"column:paid_amount;not null;default:0"`
	PaymentStatus enums.EnrollmentPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	EnrolledAt    time.Time                     `gorm:"column:enrolled_at;not null"`
	CreatedAt     time.Time                     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingBalance is the amount still owed on the enrollment.
func (e *Enrollment) RemainingBalance() int64 {
	remaining := e.TotalAmount - e.PaidAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AddPayment applies an approved payment to the enrollment. PaidAmount never
// exceeds TotalAmount; overpaying is rejected rather than clamped.
func (e *Enrollment) AddPayment(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("payment amount must be positive, got %d", amount)
	}
	if e.PaidAmount+amount > e.TotalAmount {
		return fmt.Errorf("payment of %d exceeds remaining balance %d", amount, e.RemainingBalance())
	}
	e.PaidAmount += amount
	e.PaymentStatus = enums.DeriveEnrollmentPaymentStatus(e.PaidAmount, e.TotalAmount)
	return nil
}
