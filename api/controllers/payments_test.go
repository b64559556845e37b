package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	paymentsvc "github.com/learnsphere/coursemarket-backend/internal/payments"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
)

type stubPaymentsService struct {
	attempt   *models.PaymentAttempt
	result    *paymentsvc.ReviewResult
	uploadErr error
	reviewErr error

	receiptInput paymentsvc.ReceiptInput
	reviewInput  paymentsvc.ReviewInput
}

func (s *stubPaymentsService) UploadReceipt(ctx context.Context, attemptID, userID uuid.UUID, input paymentsvc.ReceiptInput) (*models.PaymentAttempt, error) {
	s.receiptInput = input
	return s.attempt, s.uploadErr
}

func (s *stubPaymentsService) AdminReviewPayment(ctx context.Context, input paymentsvc.ReviewInput) (*paymentsvc.ReviewResult, error) {
	s.reviewInput = input
	return s.result, s.reviewErr
}

func TestUploadReceiptSuccess(t *testing.T) {
	attemptID := uuid.New()
	svc := &stubPaymentsService{attempt: &models.PaymentAttempt{
		ID:     attemptID,
		Status: enums.PaymentAttemptStatusAwaitingApproval,
	}}
	handler := UploadReceipt(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/payments/"+attemptID.String()+"/receipt", `{"file_name":"  receipt-001.jpg  ","note":"paid via transfer"}`)
	req = withURLParam(req, "attemptId", attemptID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.receiptInput.FileName != "receipt-001.jpg" {
		t.Fatalf("expected trimmed file name, got %q", svc.receiptInput.FileName)
	}
	if svc.receiptInput.Note == nil || *svc.receiptInput.Note != "paid via transfer" {
		t.Fatalf("expected note forwarded")
	}
}

func TestUploadReceiptRequiresFileName(t *testing.T) {
	attemptID := uuid.New()
	handler := UploadReceipt(&stubPaymentsService{}, nil)

	req := authedRequest(http.MethodPost, "/api/v1/payments/"+attemptID.String()+"/receipt", `{}`)
	req = withURLParam(req, "attemptId", attemptID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUploadReceiptWrongState(t *testing.T) {
	attemptID := uuid.New()
	svc := &stubPaymentsService{uploadErr: pkgerrors.New(pkgerrors.CodeStateConflict, "attempt not awaiting receipt")}
	handler := UploadReceipt(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/payments/"+attemptID.String()+"/receipt", `{"file_name":"r.jpg"}`)
	req = withURLParam(req, "attemptId", attemptID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAdminReviewPaymentApprove(t *testing.T) {
	attemptID := uuid.New()
	svc := &stubPaymentsService{result: &paymentsvc.ReviewResult{
		Attempt:  &models.PaymentAttempt{ID: attemptID, Status: enums.PaymentAttemptStatusPaid},
		Order:    &models.Order{ID: uuid.New(), Status: enums.OrderStatusCompleted},
		Decision: enums.ReviewDecisionApproved,
	}}
	handler := AdminReviewPayment(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/admin/payments/"+attemptID.String()+"/review", `{"approved":true}`)
	req.Header.Set("Idempotency-Key", "rev-1")
	req.Header.Set("User-Agent", "admin-console/2.1")
	req = withURLParam(req, "attemptId", attemptID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.reviewInput.AttemptID != attemptID {
		t.Fatalf("unexpected attempt id %s", svc.reviewInput.AttemptID)
	}
	if !svc.reviewInput.Approved {
		t.Fatalf("expected approved input")
	}
	if svc.reviewInput.IdempotencyKey != "rev-1" {
		t.Fatalf("expected idempotency key forwarded, got %q", svc.reviewInput.IdempotencyKey)
	}
	if svc.reviewInput.UserAgent != "admin-console/2.1" {
		t.Fatalf("expected user agent captured, got %q", svc.reviewInput.UserAgent)
	}
	if svc.reviewInput.IP == "" {
		t.Fatalf("expected remote address captured")
	}

	var envelope struct {
		Data paymentsvc.ReviewResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Decision != enums.ReviewDecisionApproved {
		t.Fatalf("unexpected decision %s", envelope.Data.Decision)
	}
}

func TestAdminReviewPaymentReject(t *testing.T) {
	attemptID := uuid.New()
	svc := &stubPaymentsService{result: &paymentsvc.ReviewResult{
		Attempt:  &models.PaymentAttempt{ID: attemptID, Status: enums.PaymentAttemptStatusFailed},
		Order:    &models.Order{ID: uuid.New(), Status: enums.OrderStatusDraft},
		Decision: enums.ReviewDecisionRejected,
	}}
	handler := AdminReviewPayment(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/admin/payments/"+attemptID.String()+"/review", `{"approved":false,"reject_reason":"receipt unreadable"}`)
	req.Header.Set("Idempotency-Key", "rev-2")
	req = withURLParam(req, "attemptId", attemptID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.reviewInput.Approved {
		t.Fatalf("expected rejection input")
	}
	if svc.reviewInput.RejectReason == nil || *svc.reviewInput.RejectReason != "receipt unreadable" {
		t.Fatalf("expected reject reason forwarded")
	}
}

func TestAdminReviewPaymentRequiresDecision(t *testing.T) {
	attemptID := uuid.New()
	handler := AdminReviewPayment(&stubPaymentsService{}, nil)

	req := authedRequest(http.MethodPost, "/api/v1/admin/payments/"+attemptID.String()+"/review", `{}`)
	req.Header.Set("Idempotency-Key", "rev-3")
	req = withURLParam(req, "attemptId", attemptID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminReviewPaymentConcurrencyConflict(t *testing.T) {
	attemptID := uuid.New()
	svc := &stubPaymentsService{reviewErr: pkgerrors.New(pkgerrors.CodeConcurrency, "attempt was modified concurrently")}
	handler := AdminReviewPayment(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/admin/payments/"+attemptID.String()+"/review", `{"approved":true}`)
	req.Header.Set("Idempotency-Key", "rev-4")
	req = withURLParam(req, "attemptId", attemptID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected retry-after header on concurrency conflict")
	}
}
