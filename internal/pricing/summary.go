package pricing

import "github.com/example/plantshop-checkout/internal/cart"

// TaxRate is the flat tax applied to the subtotal. A configuration
// constant, not derived from anything.
const TaxRate = 0.08

// Shipping fees per option, in rupees.
const (
	StandardShippingFee = 0.0
	ExpressShippingFee  = 500.0
)

// Summary is the projected order total breakdown shown at every
// checkout step. Cart review and final review must both come from
// Project so the two never disagree.
type Summary struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// Project computes the order summary from the cart snapshot, the
// shipping fee decided upstream by the selected option, and the applied
// discount. The displayed discount never exceeds the subtotal even if
// the caller failed to clamp, and the total never goes negative.
func Project(items []cart.LineItem, shipping, discount float64) Summary {
	var subtotal float64
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}

	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}

	tax := subtotal * TaxRate
	total := subtotal + shipping + tax - discount
	if total < 0 {
		total = 0
	}

	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    total,
	}
}

// ShippingFee maps a shipping option name to its flat fee. Unknown
// options fall back to standard.
func ShippingFee(option string) float64 {
	if option == "express" {
		return ExpressShippingFee
	}
	return StandardShippingFee
}
