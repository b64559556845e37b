package enrollments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	"github.com/learnsphere/coursemarket-backend/pkg/types"
)

// ItemOutcome classifies what an approved payment did for one snapshot line.
type ItemOutcome string

const (
	OutcomeEnrolled       ItemOutcome = "enrolled"
	OutcomeToppedUp       ItemOutcome = "topped_up"
	OutcomeAlreadySettled ItemOutcome = "already_settled"
	OutcomeError          ItemOutcome = "error"
)

// ItemResult is the human-readable per-course summary returned to the admin
// UI after a review.
type ItemResult struct {
	CourseID uuid.UUID   `json:"course_id"`
	Title    string      `json:"title"`
	Outcome  ItemOutcome `json:"outcome"`
	Summary  string      `json:"summary"`
}

// Batch stages the enrollment effects of one approved payment and flushes
// them in a single pass. Nothing is persisted until Commit; a per-item
// failure discards every staged mutation from this invocation so a retried
// transaction never re-persists partially built rows. Prior, already
// committed enrollments are left alone.
type Batch struct {
	userID  uuid.UUID
	now     time.Time
	creates []*models.Enrollment
	updates []*models.Enrollment
	results []ItemResult
}

// NewBatch starts an empty change set for the given student.
func NewBatch(userID uuid.UUID, now time.Time) *Batch {
	return &Batch{userID: userID, now: now}
}

// Apply stages the effect of one snapshot line. The existing enrollment, if
// any, must have been loaded inside the same transaction that will commit
// the batch. On error the whole batch is discarded before returning.
func (b *Batch) Apply(existing *models.Enrollment, item types.CartSnapshotItem) error {
	if existing == nil {
		enrollment := &models.Enrollment{
			UserID:        b.userID,
			CourseID:      item.CourseID,
			CourseTitle:   item.Title,
			TotalAmount:   item.UnitPrice,
			PaidAmount:    item.UnitPrice,
			PaymentStatus: enums.DeriveEnrollmentPaymentStatus(item.UnitPrice, item.UnitPrice),
			EnrolledAt:    b.now,
		}
		b.creates = append(b.creates, enrollment)
		b.results = append(b.results, ItemResult{
			CourseID: item.CourseID,
			Title:    item.Title,
			Outcome:  OutcomeEnrolled,
			Summary:  fmt.Sprintf("Course %s: enrolled and paid", item.Title),
		})
		return nil
	}

	remaining := existing.RemainingBalance()
	if remaining == 0 {
		b.results = append(b.results, ItemResult{
			CourseID: item.CourseID,
			Title:    item.Title,
			Outcome:  OutcomeAlreadySettled,
			Summary:  fmt.Sprintf("Course %s: already settled", item.Title),
		})
		return nil
	}

	payment := item.UnitPrice
	if payment > remaining {
		payment = remaining
	}
	if err := existing.AddPayment(payment); err != nil {
		b.Discard()
		b.results = append(b.results, ItemResult{
			CourseID: item.CourseID,
			Title:    item.Title,
			Outcome:  OutcomeError,
			Summary:  fmt.Sprintf("Course %s: error", item.Title),
		})
		return fmt.Errorf("top up enrollment for course %s: %w", item.CourseID, err)
	}
	b.updates = append(b.updates, existing)
	b.results = append(b.results, ItemResult{
		CourseID: item.CourseID,
		Title:    item.Title,
		Outcome:  OutcomeToppedUp,
		Summary:  fmt.Sprintf("Course %s: enrolled and paid", item.Title),
	})
	return nil
}

// Discard drops every staged mutation, keeping already recorded results so
// the caller can still report what happened before the failure.
func (b *Batch) Discard() {
	b.creates = nil
	b.updates = nil
}

// Commit flushes the staged mutations through the provided repository, which
// is expected to be bound to the enclosing transaction.
func (b *Batch) Commit(ctx context.Context, repo Repository) error {
	for _, enrollment := range b.creates {
		if _, err := repo.Create(ctx, enrollment); err != nil {
			b.Discard()
			return fmt.Errorf("create enrollment for course %s: %w", enrollment.CourseID, err)
		}
	}
	for _, enrollment := range b.updates {
		if _, err := repo.Update(ctx, enrollment); err != nil {
			b.Discard()
			return fmt.Errorf("update enrollment for course %s: %w", enrollment.CourseID, err)
		}
	}
	return nil
}

// Results returns the per-item summaries in apply order.
func (b *Batch) Results() []ItemResult {
	return b.results
}

// Summaries flattens the results into display lines.
func (b *Batch) Summaries() []string {
	lines := make([]string, 0, len(b.results))
	for _, res := range b.results {
		lines = append(lines, res.Summary)
	}
	return lines
}
