package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Ambiguous characters (0/O, 1/I) are excluded so support staff can read
// order numbers back over the phone.
const orderNumberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const orderNumberSuffixLen = 6

// NewOrderNumber generates a human-readable order number of the form
// ORD-YYYYMMDD-XXXXXX. Uniqueness is enforced by the database index; the
// random suffix only makes collisions unlikely, not impossible.
func NewOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, orderNumberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), string(buf)), nil
}

// NewTrackingCode generates the reference shown to the payer for a single
// payment attempt.
func NewTrackingCode(now time.Time) (string, error) {
	buf := make([]byte, orderNumberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate tracking code: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102"), string(buf)), nil
}
