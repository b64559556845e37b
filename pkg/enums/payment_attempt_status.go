package enums

import "fmt"

// PaymentAttemptStatus tracks the lifecycle of a single manual payment attempt.
type PaymentAttemptStatus string

const (
	PaymentAttemptStatusDraft            PaymentAttemptStatus = "draft"
	PaymentAttemptStatusPendingPayment   PaymentAttemptStatus = "pending_payment"
	PaymentAttemptStatusAwaitingApproval PaymentAttemptStatus = "awaiting_admin_approval"
	PaymentAttemptStatusPaid             PaymentAttemptStatus = "paid"
	PaymentAttemptStatusFailed           PaymentAttemptStatus = "failed"
)

var validPaymentAttemptStatuses = []PaymentAttemptStatus{
	PaymentAttemptStatusDraft,
	PaymentAttemptStatusPendingPayment,
	PaymentAttemptStatusAwaitingApproval,
	PaymentAttemptStatusPaid,
	PaymentAttemptStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentAttemptStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentAttemptStatus.
func (p PaymentAttemptStatus) IsValid() bool {
	for _, candidate := range validPaymentAttemptStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// CanUploadReceipt reports whether a receipt may be uploaded in this state.
// Failed attempts are retriable via a fresh receipt.
func (p PaymentAttemptStatus) CanUploadReceipt() bool {
	return p == PaymentAttemptStatusPendingPayment || p == PaymentAttemptStatusFailed
}

// RequiresAdminApproval reports whether the attempt is waiting on an admin
// decision.
func (p PaymentAttemptStatus) RequiresAdminApproval() bool {
	return p == PaymentAttemptStatusAwaitingApproval
}

// ParsePaymentAttemptStatus converts raw input into a PaymentAttemptStatus.
func ParsePaymentAttemptStatus(value string) (PaymentAttemptStatus, error) {
	for _, candidate := range validPaymentAttemptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment attempt status %q", value)
}
