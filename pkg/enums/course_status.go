package enums

import "fmt"

// CourseStatus tracks whether a course can be purchased.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

var validCourseStatuses = []CourseStatus{
	CourseStatusDraft,
	CourseStatusPublished,
	CourseStatusArchived,
}

// String implements fmt.Stringer.
func (c CourseStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CourseStatus.
func (c CourseStatus) IsValid() bool {
	for _, candidate := range validCourseStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsPurchasable reports whether the course may be added to a cart.
func (c CourseStatus) IsPurchasable() bool {
	return c == CourseStatusPublished
}

// ParseCourseStatus converts raw input into a CourseStatus.
func ParseCourseStatus(value string) (CourseStatus, error) {
	for _, candidate := range validCourseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid course status %q", value)
}
