package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/plantshop-checkout/internal/cart"
)

func TestProject_PercentageCouponScenario(t *testing.T) {
	// cart = [{price: 100, qty: 2}], 10% coupon -> discount 20
	items := []cart.LineItem{
		{ProductID: "p1", UnitPrice: 100, Quantity: 2},
	}

	summary := Project(items, 0, 20)

	assert.Equal(t, 200.0, summary.Subtotal)
	assert.Equal(t, 0.0, summary.Shipping)
	assert.InDelta(t, 16.0, summary.Tax, 1e-9)
	assert.Equal(t, 20.0, summary.Discount)
	assert.InDelta(t, 196.0, summary.Total, 1e-9)
}

func TestProject_FixedCouponClampsToSubtotal(t *testing.T) {
	// cart = [{price: 50, qty: 1}], fixed 100 coupon -> discount clamps to 50
	items := []cart.LineItem{
		{ProductID: "p1", UnitPrice: 50, Quantity: 1},
	}

	summary := Project(items, 0, 100)

	assert.Equal(t, 50.0, summary.Subtotal)
	assert.Equal(t, 50.0, summary.Discount)
	assert.InDelta(t, 4.0, summary.Tax, 1e-9)
	assert.InDelta(t, 4.0, summary.Total, 1e-9)
}

func TestProject_TotalNeverNegative(t *testing.T) {
	tests := []struct {
		name     string
		items    []cart.LineItem
		shipping float64
		discount float64
	}{
		{"empty cart with discount", nil, 0, 100},
		{"discount above subtotal plus tax", []cart.LineItem{{UnitPrice: 10, Quantity: 1}}, 0, 1000},
		{"negative discount ignored", []cart.LineItem{{UnitPrice: 10, Quantity: 1}}, 0, -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := Project(tt.items, tt.shipping, tt.discount)
			assert.GreaterOrEqual(t, summary.Total, 0.0)
			assert.GreaterOrEqual(t, summary.Discount, 0.0)
			assert.LessOrEqual(t, summary.Discount, summary.Subtotal)
		})
	}
}

func TestProject_ExpressShippingIncluded(t *testing.T) {
	items := []cart.LineItem{
		{ProductID: "p1", UnitPrice: 100, Quantity: 1},
	}

	summary := Project(items, ShippingFee("express"), 0)

	assert.Equal(t, 500.0, summary.Shipping)
	assert.InDelta(t, 100+500+8.0, summary.Total, 1e-9)
}

func TestShippingFee(t *testing.T) {
	assert.Equal(t, 0.0, ShippingFee("standard"))
	assert.Equal(t, 500.0, ShippingFee("express"))
	assert.Equal(t, 0.0, ShippingFee("something-else"))
}

func TestProject_MultipleLineItems(t *testing.T) {
	items := []cart.LineItem{
		{ProductID: "tulsi", UnitPrice: 120, Quantity: 2},
		{ProductID: "neem-oil", UnitPrice: 80.50, Quantity: 1},
		{ProductID: "pot", UnitPrice: 0, Quantity: 3}, // freebie
	}

	summary := Project(items, 0, 0)

	assert.InDelta(t, 320.50, summary.Subtotal, 1e-9)
	assert.InDelta(t, 320.50*TaxRate, summary.Tax, 1e-9)
	assert.InDelta(t, 320.50*1.08, summary.Total, 1e-9)
}
