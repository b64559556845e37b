package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/internal/courses"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
)

// IssueSeverity distinguishes drift that blocks checkout from drift that is
// merely surfaced to the user.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

// IntegrityIssue describes one divergence between a cart snapshot and the
// live course it references.
type IntegrityIssue struct {
	CourseID uuid.UUID     `json:"course_id"`
	Severity IssueSeverity `json:"severity"`
	Field    string        `json:"field"`
	Message  string        `json:"message"`
}

// IntegrityReport groups the issues found for a cart. Errors block checkout;
// warnings do not. Price drift is a warning on purpose: once a course is in
// the cart its price is locked until the cart expires, and the order is
// built from the snapshot price rather than the live one.
type IntegrityReport struct {
	Errors   []IntegrityIssue `json:"errors"`
	Warnings []IntegrityIssue `json:"warnings"`
}

// OK reports whether the cart may proceed to checkout.
func (r *IntegrityReport) OK() bool {
	return len(r.Errors) == 0
}

type courseBatchLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Course, error)
}

// Validator re-checks live course data against cart snapshots before a cart
// is allowed to convert into an order.
type Validator struct {
	courses courseBatchLoader
}

// NewValidator builds a cart validator backed by the course store.
func NewValidator(courseRepo courseBatchLoader) (*Validator, error) {
	if courseRepo == nil {
		return nil, fmt.Errorf("course loader required")
	}
	return &Validator{courses: courseRepo}, nil
}

// ValidateForCheckout enforces the structural preconditions on a cart before
// checkout. Expiry is deliberately not checked here: an actively checking-out
// user gets their cart expiry extended instead of being rejected.
func ValidateForCheckout(cart *models.Cart) error {
	if cart == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if cart.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart has no persisted id")
	}
	if len(cart.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return nil
}

// CheckCourseIntegrity compares every cart line against the live course rows.
// A missing or unpublished course is a hard error. Price drift and renamed
// titles or instructors only produce warnings; the snapshot stays untouched.
func (v *Validator) CheckCourseIntegrity(ctx context.Context, cart *models.Cart) (*IntegrityReport, error) {
	report := &IntegrityReport{}
	if cart == nil || len(cart.Items) == 0 {
		return report, nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.CourseID)
	}
	live, err := v.courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart courses")
	}
	byID := make(map[uuid.UUID]*models.Course, len(live))
	for i := range live {
		byID[live[i].ID] = &live[i]
	}

	for _, item := range cart.Items {
		course, ok := byID[item.CourseID]
		if !ok {
			report.Errors = append(report.Errors, IntegrityIssue{
				CourseID: item.CourseID,
				Severity: SeverityError,
				Field:    "course",
				Message:  fmt.Sprintf("course %q no longer exists", item.Title),
			})
			continue
		}
		if course.Status != enums.CourseStatusPublished {
			report.Errors = append(report.Errors, IntegrityIssue{
				CourseID: item.CourseID,
				Severity: SeverityError,
				Field:    "status",
				Message:  fmt.Sprintf("course %q is no longer available", item.Title),
			})
			continue
		}
		if livePrice := courses.EffectivePrice(course.Price, course.DiscountPercent); livePrice != item.UnitPrice {
			report.Warnings = append(report.Warnings, IntegrityIssue{
				CourseID: item.CourseID,
				Severity: SeverityWarning,
				Field:    "price",
				Message:  fmt.Sprintf("price changed from %d to %d; the cart keeps the price it was added at", item.UnitPrice, livePrice),
			})
		}
		if course.Title != item.Title {
			report.Warnings = append(report.Warnings, IntegrityIssue{
				CourseID: item.CourseID,
				Severity: SeverityInfo,
				Field:    "title",
				Message:  fmt.Sprintf("title changed from %q to %q", item.Title, course.Title),
			})
		}
		if course.InstructorName != item.InstructorName {
			report.Warnings = append(report.Warnings, IntegrityIssue{
				CourseID: item.CourseID,
				Severity: SeverityInfo,
				Field:    "instructor",
				Message:  fmt.Sprintf("instructor changed from %q to %q", item.InstructorName, course.InstructorName),
			})
		}
	}
	return report, nil
}
