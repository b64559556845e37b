package enums

import "fmt"

// EnrollmentPaymentStatus is derived from paid vs total amount on an enrollment.
type EnrollmentPaymentStatus string

const (
	EnrollmentPaymentStatusUnpaid  EnrollmentPaymentStatus = "unpaid"
	EnrollmentPaymentStatusPartial EnrollmentPaymentStatus = "partial"
	EnrollmentPaymentStatusPaid    EnrollmentPaymentStatus = "paid"
)

var validEnrollmentPaymentStatuses = []EnrollmentPaymentStatus{
	EnrollmentPaymentStatusUnpaid,
	EnrollmentPaymentStatusPartial,
	EnrollmentPaymentStatusPaid,
}

// String implements fmt.Stringer.
func (e EnrollmentPaymentStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EnrollmentPaymentStatus.
func (e EnrollmentPaymentStatus) IsValid() bool {
	for _, candidate := range validEnrollmentPaymentStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// DeriveEnrollmentPaymentStatus computes the status from amounts.
func DeriveEnrollmentPaymentStatus(paid, total int64) EnrollmentPaymentStatus {
	switch {
	case paid <= 0:
		return EnrollmentPaymentStatusUnpaid
	case paid < total:
		return EnrollmentPaymentStatusPartial
	default:
		return EnrollmentPaymentStatusPaid
	}
}

// ParseEnrollmentPaymentStatus converts raw input into an EnrollmentPaymentStatus.
func ParseEnrollmentPaymentStatus(value string) (EnrollmentPaymentStatus, error) {
	for _, candidate := range validEnrollmentPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid enrollment payment status %q", value)
}
