package enums

import "fmt"

// ReviewDecision captures the admin's call on a payment attempt.
type ReviewDecision string

const (
	ReviewDecisionApproved ReviewDecision = "approved"
	ReviewDecisionRejected ReviewDecision = "rejected"
)

var validReviewDecisions = []ReviewDecision{
	ReviewDecisionApproved,
	ReviewDecisionRejected,
}

// String implements fmt.Stringer.
func (r ReviewDecision) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReviewDecision.
func (r ReviewDecision) IsValid() bool {
	for _, candidate := range validReviewDecisions {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReviewDecision converts raw input into a ReviewDecision.
func ParseReviewDecision(value string) (ReviewDecision, error) {
	for _, candidate := range validReviewDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid review decision %q", value)
}
