package enrollments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	"github.com/learnsphere/coursemarket-backend/pkg/types"
)

type recordingRepo struct {
	Repository
	created []*models.Enrollment
	updated []*models.Enrollment
}

func (r *recordingRepo) Create(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	r.created = append(r.created, e)
	return e, nil
}

func (r *recordingRepo) Update(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	r.updated = append(r.updated, e)
	return e, nil
}

func (r *recordingRepo) WithTx(tx *gorm.DB) Repository { return r }

func TestBatchCreatesPrepaidEnrollment(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	batch := NewBatch(userID, time.Now())
	item := types.CartSnapshotItem{CourseID: uuid.New(), Title: "Go Fundamentals", UnitPrice: 150000}

	if err := batch.Apply(nil, item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := &recordingRepo{}
	if err := batch.Commit(context.Background(), repo); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}
	if len(repo.created) != 1 || len(repo.updated) != 0 {
		t.Fatalf("expected one create and no updates, got %d/%d", len(repo.created), len(repo.updated))
	}
	created := repo.created[0]
	if created.PaidAmount != 150000 || created.PaymentStatus != enums.EnrollmentPaymentStatusPaid {
		t.Fatalf("expected fully paid enrollment, got %+v", created)
	}
	if batch.Results()[0].Outcome != OutcomeEnrolled {
		t.Fatalf("unexpected outcome: %v", batch.Results()[0].Outcome)
	}
}

func TestBatchTopsUpPartialEnrollment(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	courseID := uuid.New()
	existing := &models.Enrollment{
		UserID:        userID,
		CourseID:      courseID,
		TotalAmount:   200000,
		PaidAmount:    50000,
		PaymentStatus: enums.EnrollmentPaymentStatusPartial,
	}
	batch := NewBatch(userID, time.Now())
	item := types.CartSnapshotItem{CourseID: courseID, Title: "Advanced Go", UnitPrice: 200000}

	if err := batch.Apply(existing, item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := &recordingRepo{}
	if err := batch.Commit(context.Background(), repo); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}
	if len(repo.updated) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updated))
	}
	if existing.PaidAmount != 200000 || existing.PaymentStatus != enums.EnrollmentPaymentStatusPaid {
		t.Fatalf("expected top-up to settle the balance, got %+v", existing)
	}
}

func TestBatchSkipsSettledEnrollment(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	courseID := uuid.New()
	existing := &models.Enrollment{
		UserID:        userID,
		CourseID:      courseID,
		TotalAmount:   100000,
		PaidAmount:    100000,
		PaymentStatus: enums.EnrollmentPaymentStatusPaid,
	}
	batch := NewBatch(userID, time.Now())
	item := types.CartSnapshotItem{CourseID: courseID, Title: "Go Fundamentals", UnitPrice: 100000}

	if err := batch.Apply(existing, item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo := &recordingRepo{}
	if err := batch.Commit(context.Background(), repo); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}
	if len(repo.created) != 0 || len(repo.updated) != 0 {
		t.Fatal("expected no staged mutations for a settled enrollment")
	}
	if got := batch.Results()[0]; got.Outcome != OutcomeAlreadySettled || got.Summary != "Course Go Fundamentals: already settled" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestBatchDiscardDropsPendingMutations(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	batch := NewBatch(userID, time.Now())
	if err := batch.Apply(nil, types.CartSnapshotItem{CourseID: uuid.New(), Title: "One", UnitPrice: 1000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := batch.Apply(nil, types.CartSnapshotItem{CourseID: uuid.New(), Title: "Two", UnitPrice: 2000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batch.Discard()

	repo := &recordingRepo{}
	if err := batch.Commit(context.Background(), repo); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected discarded batch to persist nothing, got %d creates", len(repo.created))
	}
	if len(batch.Results()) != 2 {
		t.Fatalf("expected results to survive a discard, got %d", len(batch.Results()))
	}
}
