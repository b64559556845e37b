package models

import (
	"testing"

	"github.com/learnsphere/coursemarket-backend/pkg/enums"
)

func TestEnrollmentAddPayment(t *testing.T) {
	e := &Enrollment{TotalAmount: 100000, PaidAmount: 0, PaymentStatus: enums.EnrollmentPaymentStatusUnpaid}

	if err := e.AddPayment(40000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.PaidAmount != 40000 || e.PaymentStatus != enums.EnrollmentPaymentStatusPartial {
		t.Fatalf("unexpected state after partial payment: %d %s", e.PaidAmount, e.PaymentStatus)
	}

	if err := e.AddPayment(60000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.PaidAmount != 100000 || e.PaymentStatus != enums.EnrollmentPaymentStatusPaid {
		t.Fatalf("unexpected state after settlement: %d %s", e.PaidAmount, e.PaymentStatus)
	}
}

func TestEnrollmentAddPaymentRejectsOverpay(t *testing.T) {
	e := &Enrollment{TotalAmount: 100000, PaidAmount: 70000, PaymentStatus: enums.EnrollmentPaymentStatusPartial}

	if err := e.AddPayment(50000); err == nil {
		t.Fatal("expected overpayment beyond the remaining balance to be rejected")
	}
	if e.PaidAmount != 70000 || e.PaymentStatus != enums.EnrollmentPaymentStatusPartial {
		t.Fatalf("rejected payment must not change the enrollment: %d %s", e.PaidAmount, e.PaymentStatus)
	}
}

func TestEnrollmentAddPaymentRejectsNonPositive(t *testing.T) {
	e := &Enrollment{TotalAmount: 100000, PaidAmount: 0}

	if err := e.AddPayment(0); err == nil {
		t.Fatal("expected zero payment to be rejected")
	}
	if err := e.AddPayment(-5000); err == nil {
		t.Fatal("expected negative payment to be rejected")
	}
	if e.PaidAmount != 0 {
		t.Fatalf("rejected payments must not change PaidAmount, got %d", e.PaidAmount)
	}
}
