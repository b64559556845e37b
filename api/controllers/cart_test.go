package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/learnsphere/coursemarket-backend/api/middleware"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	pkgerrors "github.com/learnsphere/coursemarket-backend/pkg/errors"
)

type stubCartService struct {
	cart     *models.Cart
	err      error
	clearErr error
}

func (s stubCartService) AddCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Cart, error) {
	return s.cart, s.err
}

func (s stubCartService) RemoveCourse(ctx context.Context, userID, courseID uuid.UUID) (*models.Cart, error) {
	return s.cart, s.err
}

func (s stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.clearErr
}

func (s stubCartService) GetActive(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.cart, s.err
}

func authedRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func testCart() *models.Cart {
	courseID := uuid.New()
	return &models.Cart{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
		Items: []models.CartItem{
			{
				ID:             uuid.New(),
				CourseID:       courseID,
				Title:          "Go Fundamentals",
				InstructorName: "Jane Smith",
				UnitPrice:      150000,
			},
		},
	}
}

func TestCartAddItemSuccess(t *testing.T) {
	record := testCart()
	handler := CartAddItem(stubCartService{cart: record}, nil)

	req := authedRequest(http.MethodPost, "/api/v1/cart/items", `{"course_id":"`+uuid.NewString()+`"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != record.ID {
		t.Fatalf("unexpected cart id: %s", envelope.Data.ID)
	}
	if envelope.Data.TotalAmount != 150000 {
		t.Fatalf("expected total 150000 got %d", envelope.Data.TotalAmount)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(envelope.Data.Items))
	}
}

func TestCartAddItemRequiresCourseID(t *testing.T) {
	handler := CartAddItem(stubCartService{cart: testCart()}, nil)

	req := authedRequest(http.MethodPost, "/api/v1/cart/items", `{}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddItemRequiresAuth(t *testing.T) {
	handler := CartAddItem(stubCartService{cart: testCart()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"course_id":"`+uuid.NewString()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItemConflict(t *testing.T) {
	handler := CartAddItem(stubCartService{err: pkgerrors.New(pkgerrors.CodeConflict, "course already in cart")}, nil)

	req := authedRequest(http.MethodPost, "/api/v1/cart/items", `{"course_id":"`+uuid.NewString()+`"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestCartRemoveItemInvalidID(t *testing.T) {
	handler := CartRemoveItem(stubCartService{cart: testCart()}, nil)

	req := authedRequest(http.MethodDelete, "/api/v1/cart/items/not-a-uuid", "")
	req = withURLParam(req, "courseId", "not-a-uuid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartRemoveItemSuccess(t *testing.T) {
	record := testCart()
	handler := CartRemoveItem(stubCartService{cart: record}, nil)

	courseID := uuid.NewString()
	req := authedRequest(http.MethodDelete, "/api/v1/cart/items/"+courseID, "")
	req = withURLParam(req, "courseId", courseID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartGetNotFound(t *testing.T) {
	handler := CartGet(stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")}, nil)

	req := authedRequest(http.MethodGet, "/api/v1/cart", "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartClearSuccess(t *testing.T) {
	handler := CartClear(stubCartService{}, nil)

	req := authedRequest(http.MethodDelete, "/api/v1/cart", "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
