package enums

import "fmt"

// AuditPhase distinguishes the pre-action audit entry from the final outcome
// entry written by the admin review flow.
type AuditPhase string

const (
	AuditPhasePreAction AuditPhase = "pre_action"
	AuditPhaseFinal     AuditPhase = "final"
)

var validAuditPhases = []AuditPhase{
	AuditPhasePreAction,
	AuditPhaseFinal,
}

// String implements fmt.Stringer.
func (a AuditPhase) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditPhase.
func (a AuditPhase) IsValid() bool {
	for _, candidate := range validAuditPhases {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditPhase converts raw input into an AuditPhase.
func ParseAuditPhase(value string) (AuditPhase, error) {
	for _, candidate := range validAuditPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit phase %q", value)
}
