package checkout

import (
	errx "github.com/ucp-agent-poc/server/internal/core/error"
)

// discountSpec is one compiled-in discount. Exactly one of percent or amount
// is set.
type discountSpec struct {
	title   string
	percent int64
	amount  int64
}

// amountFor computes the discount value for the given subtotal. Percentage
// discounts floor to the nearest minor unit.
func (d discountSpec) amountFor(subtotal int64) int64 {
	if d.percent > 0 {
		return subtotal * d.percent / 100
	}
	return d.amount
}

var discountTable = map[string]discountSpec{
	"10OFF":    {title: "10% Off", percent: 10},
	"SAVE20":   {title: "20% Off", percent: 20},
	"FREESHIP": {title: "Free Shipping", amount: 500},
}

func errInvalidDiscountCode(code string) *errx.Error {
	return errx.InvalidArgument("invalid discount code: %s", code)
}
