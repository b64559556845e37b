package courses

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/learnsphere/coursemarket-backend/pkg/enums"
)

// CourseDTO is the projection the purchase flows consume. EffectivePrice has
// the course discount already applied; carts snapshot this value.
type CourseDTO struct {
	ID             uuid.UUID
	Title          string
	InstructorName string
	Thumbnail      string
	Status         enums.CourseStatus
	ListPrice      int64
	EffectivePrice int64
}

// EffectivePrice applies a percent discount to the list price, rounding to
// the nearest whole currency unit. Discounts outside [0, 100] are ignored.
func EffectivePrice(listPrice int64, discountPercent float64) int64 {
	if discountPercent <= 0 || discountPercent > 100 {
		return listPrice
	}
	price := decimal.NewFromInt(listPrice)
	factor := decimal.NewFromInt(100).
		Sub(decimal.NewFromFloat(discountPercent)).
		Div(decimal.NewFromInt(100))
	return price.Mul(factor).Round(0).IntPart()
}
