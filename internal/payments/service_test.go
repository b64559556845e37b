package payments

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/internal/audit"
	"github.com/learnsphere/coursemarket-backend/internal/cart"
	"github.com/learnsphere/coursemarket-backend/internal/enrollments"
	"github.com/learnsphere/coursemarket-backend/internal/orders"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
	"github.com/learnsphere/coursemarket-backend/pkg/types"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubMetrics struct {
	decisions []string
}

func (s *stubMetrics) IncReview(decision string) {
	s.decisions = append(s.decisions, decision)
}

type stubOrdersRepo struct {
	orders.Repository
	attempt        *models.PaymentAttempt
	order          *models.Order
	guardRows      int64
	attemptUpdates map[string]any
	orderUpdates   map[string]any
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) FindAttemptByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	if s.attempt == nil || s.attempt.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.attempt, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id || s.order.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindAttemptsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentAttempt, error) {
	if s.attempt == nil {
		return nil, nil
	}
	return []models.PaymentAttempt{*s.attempt}, nil
}

func (s *stubOrdersRepo) UpdateAttemptGuarded(ctx context.Context, id uuid.UUID, expectedVersion int64, fields map[string]any) (int64, error) {
	s.attemptUpdates = fields
	return s.guardRows, nil
}

func (s *stubOrdersRepo) UpdateOrder(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	s.orderUpdates = fields
	return nil
}

type stubCartRepo struct {
	cart.Repository
	deleted bool
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *stubCartRepo) Delete(ctx context.Context, cartID uuid.UUID) error {
	s.deleted = true
	return nil
}

type stubEnrollRepo struct {
	enrollments.Repository
	existing  map[uuid.UUID]*models.Enrollment
	created   []*models.Enrollment
	updated   []*models.Enrollment
	createErr error
}

func (s *stubEnrollRepo) WithTx(tx *gorm.DB) enrollments.Repository { return s }

func (s *stubEnrollRepo) FindByUserAndCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	if e, ok := s.existing[courseID]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubEnrollRepo) Create(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, e)
	return e, nil
}

func (s *stubEnrollRepo) Update(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	s.updated = append(s.updated, e)
	return e, nil
}

type stubAuditRepo struct {
	prior     *models.PaymentAuditLog
	appended  []*models.PaymentAuditLog
	appendErr error
}

func (s *stubAuditRepo) WithTx(tx *gorm.DB) audit.PaymentAuditRepository { return s }

func (s *stubAuditRepo) Append(ctx context.Context, entry *models.PaymentAuditLog) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	for _, e := range s.appended {
		if e.IdempotencyKey == entry.IdempotencyKey && e.AdminUserID == entry.AdminUserID && e.Phase == entry.Phase {
			return audit.ErrAlreadyRecorded
		}
	}
	s.appended = append(s.appended, entry)
	return nil
}

func (s *stubAuditRepo) FindFinalByKeyAndAdmin(ctx context.Context, key string, adminID uuid.UUID) (*models.PaymentAuditLog, error) {
	if s.prior != nil {
		return s.prior, nil
	}
	for _, e := range s.appended {
		if e.IdempotencyKey == key && e.AdminUserID == adminID && e.Phase == enums.AuditPhaseFinal {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAuditRepo) FindByAttempt(ctx context.Context, attemptID uuid.UUID) ([]models.PaymentAuditLog, error) {
	return nil, nil
}

type fixture struct {
	svc     Service
	orders  *stubOrdersRepo
	cart    *stubCartRepo
	enroll  *stubEnrollRepo
	audit   *stubAuditRepo
	metrics *stubMetrics
}

func newFixture(t *testing.T, attemptStatus enums.PaymentAttemptStatus) *fixture {
	t.Helper()

	userID := uuid.New()
	order := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		CartID:      uuid.New(),
		Status:      enums.OrderStatusPendingPayment,
		TotalAmount: 200000,
		CartSnapshot: types.CartSnapshot{Items: []types.CartSnapshotItem{
			{CourseID: uuid.New(), Title: "Go Fundamentals", UnitPrice: 120000},
			{CourseID: uuid.New(), Title: "Advanced Go", UnitPrice: 80000},
		}},
	}
	attempt := &models.PaymentAttempt{
		ID:      uuid.New(),
		OrderID: order.ID,
		Status:  attemptStatus,
		Amount:  200000,
		Version: 3,
	}

	f := &fixture{
		orders:  &stubOrdersRepo{attempt: attempt, order: order, guardRows: 1},
		cart:    &stubCartRepo{},
		enroll:  &stubEnrollRepo{},
		audit:   &stubAuditRepo{},
		metrics: &stubMetrics{},
	}
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(stubTxRunner{}, f.orders, f.cart, f.enroll, f.audit, f.metrics, log)
	if err != nil {
		t.Fatalf("unexpected error building service: %v", err)
	}
	f.svc = svc
	return f
}

func reviewInput(f *fixture, approved bool) ReviewInput {
	return ReviewInput{
		AttemptID:      f.orders.attempt.ID,
		AdminUserID:    uuid.New(),
		Approved:       approved,
		IdempotencyKey: "review-" + uuid.NewString(),
		IP:             "203.0.113.7",
		UserAgent:      "admin-ui",
	}
}

func TestAdminReviewApprovalHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)

	res, err := f.svc.AdminReviewPayment(context.Background(), reviewInput(f, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != enums.ReviewDecisionApproved || res.Replayed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Attempt.Status != enums.PaymentAttemptStatusPaid {
		t.Fatalf("expected paid attempt, got %s", res.Attempt.Status)
	}
	if res.Order.Status != enums.OrderStatusCompleted || res.Order.CompletedAt == nil {
		t.Fatalf("expected completed order, got %+v", res.Order)
	}
	if len(f.enroll.created) != 2 {
		t.Fatalf("expected 2 enrollments, got %d", len(f.enroll.created))
	}
	if !f.cart.deleted {
		t.Fatal("expected cart to be cleared after approval")
	}
	if len(f.audit.appended) != 2 {
		t.Fatalf("expected pre-action and final audit entries, got %d", len(f.audit.appended))
	}
	if f.audit.appended[0].Phase != enums.AuditPhasePreAction || f.audit.appended[1].Phase != enums.AuditPhaseFinal {
		t.Fatalf("unexpected audit phases: %+v", f.audit.appended)
	}
	if len(res.Summaries) != 2 || res.Summaries[0] != "Course Go Fundamentals: enrolled and paid" {
		t.Fatalf("unexpected summaries: %v", res.Summaries)
	}
	if len(f.metrics.decisions) != 1 || f.metrics.decisions[0] != "approved" {
		t.Fatalf("unexpected metrics: %v", f.metrics.decisions)
	}
}

func TestAdminReviewRejectionResetsOrderToDraft(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)
	input := reviewInput(f, false)
	reason := "amount on receipt does not match"
	input.RejectReason = &reason

	res, err := f.svc.AdminReviewPayment(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != enums.ReviewDecisionRejected {
		t.Fatalf("unexpected decision: %s", res.Decision)
	}
	if res.Attempt.Status != enums.PaymentAttemptStatusFailed {
		t.Fatalf("expected failed attempt, got %s", res.Attempt.Status)
	}
	if res.Order.Status != enums.OrderStatusDraft {
		t.Fatalf("expected order back in draft, got %s", res.Order.Status)
	}
	if res.Attempt.RejectReason == nil || *res.Attempt.RejectReason != reason {
		t.Fatalf("expected reject reason to be recorded, got %+v", res.Attempt.RejectReason)
	}
	if len(f.enroll.created) != 0 {
		t.Fatal("rejection must not create enrollments")
	}
	if f.cart.deleted {
		t.Fatal("rejection must not clear the cart")
	}
}

func TestAdminReviewRequiresIdempotencyKey(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)
	input := reviewInput(f, true)
	input.IdempotencyKey = "   "

	_, err := f.svc.AdminReviewPayment(context.Background(), input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdminReviewReplayReturnsPriorOutcome(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusPaid)
	decision := enums.ReviewDecisionApproved
	f.orders.attempt.Decision = &decision
	f.orders.order.Status = enums.OrderStatusCompleted
	f.audit.prior = &models.PaymentAuditLog{
		IdempotencyKey:   "review-1",
		PaymentAttemptID: f.orders.attempt.ID,
		OrderID:          f.orders.order.ID,
		NewStatus:        enums.PaymentAttemptStatusPaid,
	}

	res, err := f.svc.AdminReviewPayment(context.Background(), reviewInput(f, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Replayed || res.Decision != enums.ReviewDecisionApproved {
		t.Fatalf("expected replayed approval, got %+v", res)
	}
	if len(f.audit.appended) != 0 {
		t.Fatal("replay must not write new audit entries")
	}
	if f.orders.attemptUpdates != nil {
		t.Fatal("replay must not touch the attempt")
	}
	if f.cart.deleted {
		t.Fatal("replay must not repeat side effects")
	}
}

func TestAdminReviewWrongStateRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusPendingPayment)

	_, err := f.svc.AdminReviewPayment(context.Background(), reviewInput(f, true))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	// The pre-action entry still records the rejected precondition.
	if len(f.audit.appended) != 1 || f.audit.appended[0].Phase != enums.AuditPhasePreAction {
		t.Fatalf("expected only the pre-action audit entry, got %+v", f.audit.appended)
	}
}

func TestAdminReviewConcurrentModificationConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)
	f.orders.guardRows = 0

	_, err := f.svc.AdminReviewPayment(context.Background(), reviewInput(f, true))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConcurrency {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.enroll.created) != 0 {
		t.Fatal("a lost version race must not enroll anyone")
	}
}

func TestAdminReviewEnrollmentFailureAbortsApproval(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)
	f.enroll.createErr = fmt.Errorf("insert failed")

	_, err := f.svc.AdminReviewPayment(context.Background(), reviewInput(f, true))
	if err == nil {
		t.Fatal("expected enrollment failure to surface")
	}
	if f.cart.deleted {
		t.Fatal("cart must stay intact when enrollment creation fails")
	}
	if len(f.metrics.decisions) != 0 {
		t.Fatalf("failed review must not count as a decision, got %v", f.metrics.decisions)
	}
}

func TestAdminReviewRetryAfterAbortedApprovalRunsDecision(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)
	f.enroll.createErr = fmt.Errorf("insert failed")

	input := reviewInput(f, true)
	if _, err := f.svc.AdminReviewPayment(context.Background(), input); err == nil {
		t.Fatal("expected the first review to fail on enrollment creation")
	}

	// The transaction rolled back everything except the durable pre-action
	// audit row; restore the attempt and order to their committed state and
	// clear the transient fault.
	f.enroll.createErr = nil
	f.orders.attempt.Status = enums.PaymentAttemptStatusAwaitingApproval
	f.orders.attempt.Decision = nil
	f.orders.attempt.ReviewedBy = nil
	f.orders.attempt.ReviewedAt = nil
	f.orders.attempt.Version = 3
	f.orders.order.Status = enums.OrderStatusPendingPayment
	f.orders.order.CompletedAt = nil

	res, err := f.svc.AdminReviewPayment(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if res.Replayed {
		t.Fatal("a retry after a rolled-back review must run the decision, not replay it")
	}
	if res.Decision != enums.ReviewDecisionApproved {
		t.Fatalf("unexpected decision: %s", res.Decision)
	}
	if res.Attempt.Status != enums.PaymentAttemptStatusPaid {
		t.Fatalf("expected paid attempt, got %s", res.Attempt.Status)
	}
	if len(f.enroll.created) != 2 {
		t.Fatalf("expected 2 enrollments on retry, got %d", len(f.enroll.created))
	}
	finals := 0
	for _, e := range f.audit.appended {
		if e.Phase == enums.AuditPhaseFinal {
			finals++
		}
	}
	if finals != 1 {
		t.Fatalf("expected exactly one final audit entry, got %d", finals)
	}
}

func TestAdminReviewApprovalTopsUpExistingEnrollment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)
	first := f.orders.order.CartSnapshot.Items[0]
	f.enroll.existing = map[uuid.UUID]*models.Enrollment{
		first.CourseID: {
			UserID:      f.orders.order.UserID,
			CourseID:    first.CourseID,
			TotalAmount: first.UnitPrice,
			PaidAmount:  first.UnitPrice / 2,
		},
	}

	res, err := f.svc.AdminReviewPayment(context.Background(), reviewInput(f, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.enroll.updated) != 1 || len(f.enroll.created) != 1 {
		t.Fatalf("expected one top-up and one create, got %d/%d", len(f.enroll.updated), len(f.enroll.created))
	}
	if f.enroll.updated[0].PaidAmount != first.UnitPrice {
		t.Fatalf("expected balance settled, got %d", f.enroll.updated[0].PaidAmount)
	}
	if res.Items[0].Outcome != enrollments.OutcomeToppedUp {
		t.Fatalf("unexpected outcome: %v", res.Items[0].Outcome)
	}
}

func TestAdminReviewAuditFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)
	f.audit.appendErr = fmt.Errorf("audit store down")

	res, err := f.svc.AdminReviewPayment(context.Background(), reviewInput(f, true))
	if err != nil {
		t.Fatalf("audit failure must not fail the review: %v", err)
	}
	if res.Attempt.Status != enums.PaymentAttemptStatusPaid {
		t.Fatalf("expected approval to stand, got %s", res.Attempt.Status)
	}
}

func TestUploadReceiptMovesToAwaitingApproval(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusPendingPayment)

	attempt, err := f.svc.UploadReceipt(context.Background(), f.orders.attempt.ID, f.orders.order.UserID, ReceiptInput{
		FileName: "receipt-001.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Status != enums.PaymentAttemptStatusAwaitingApproval {
		t.Fatalf("expected awaiting_admin_approval, got %s", attempt.Status)
	}
	if attempt.ReceiptFileName == nil || *attempt.ReceiptFileName != "receipt-001.jpg" {
		t.Fatalf("expected receipt file recorded, got %+v", attempt.ReceiptFileName)
	}
	if attempt.Version != 4 {
		t.Fatalf("expected version bump, got %d", attempt.Version)
	}
}

func TestUploadReceiptRetryAfterRejectionReopensOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusFailed)
	f.orders.order.Status = enums.OrderStatusDraft
	reason := "blurry image"
	f.orders.attempt.RejectReason = &reason

	attempt, err := f.svc.UploadReceipt(context.Background(), f.orders.attempt.ID, f.orders.order.UserID, ReceiptInput{
		FileName: "receipt-002.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempt.Status != enums.PaymentAttemptStatusAwaitingApproval {
		t.Fatalf("expected retriable attempt back in queue, got %s", attempt.Status)
	}
	if attempt.RejectReason != nil || attempt.Decision != nil {
		t.Fatal("expected prior decision fields to be wiped")
	}
	if f.orders.orderUpdates["status"] != enums.OrderStatusPendingPayment {
		t.Fatalf("expected order reopened, got %+v", f.orders.orderUpdates)
	}
}

func TestUploadReceiptInvalidState(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusAwaitingApproval)

	_, err := f.svc.UploadReceipt(context.Background(), f.orders.attempt.ID, f.orders.order.UserID, ReceiptInput{
		FileName: "receipt.jpg",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUploadReceiptWrongUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusPendingPayment)

	_, err := f.svc.UploadReceipt(context.Background(), f.orders.attempt.ID, uuid.New(), ReceiptInput{
		FileName: "receipt.jpg",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUploadReceiptConcurrentModification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, enums.PaymentAttemptStatusPendingPayment)
	f.orders.guardRows = 0

	_, err := f.svc.UploadReceipt(context.Background(), f.orders.attempt.ID, f.orders.order.UserID, ReceiptInput{
		FileName: "receipt.jpg",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConcurrency {
		t.Fatalf("unexpected error: %v", err)
	}
}
