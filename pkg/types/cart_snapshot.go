package types

import "github.com/google/uuid"

// CartSnapshotItem is one frozen line of a cart at checkout time. The order
// keeps the full snapshot as JSON so enrollments can be created after the
// cart itself is cleared.
type CartSnapshotItem struct {
	CourseID       uuid.UUID `json:"course_id"`
	Title          string    `json:"title"`
	InstructorName string    `json:"instructor_name"`
	Thumbnail      string    `json:"thumbnail,omitempty"`
	UnitPrice      int64     `json:"unit_price"`
}

// CartSnapshot is the ordered set of frozen items an order was created from.
type CartSnapshot struct {
	CartID uuid.UUID          `json:"cart_id"`
	Items  []CartSnapshotItem `json:"items"`
}

// Total sums the frozen unit prices.
func (s CartSnapshot) Total() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.UnitPrice
	}
	return total
}
