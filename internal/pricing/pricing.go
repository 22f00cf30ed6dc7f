package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ashendes/pickle-storefront/internal/models"
)

// Checkout rate rules. Amounts are in the same currency unit as item prices.
var (
	TaxRate               = decimal.RequireFromString("0.05")
	FreeShippingThreshold = decimal.NewFromInt(500)
	FlatShippingFee       = decimal.NewFromInt(40)
)

// Breakdown is the derived price of a cart. Values are exact; round only for display.
type Breakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Calculate prices the given line items. Inputs are not validated here;
// the cart never holds non-positive quantities.
func Calculate(items []models.LineItem) Breakdown {
	subtotal := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}

	tax := subtotal.Mul(TaxRate)

	shipping := FlatShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// Amounts returns the breakdown as float64 values for storage on an order
func (b Breakdown) Amounts() (subtotal, tax, shipping, total float64) {
	return b.Subtotal.InexactFloat64(), b.Tax.InexactFloat64(),
		b.Shipping.InexactFloat64(), b.Total.InexactFloat64()
}

// Display renders the breakdown rounded to two decimals
func (b Breakdown) Display() map[string]string {
	return map[string]string{
		"subtotal": Format(b.Subtotal),
		"tax":      Format(b.Tax),
		"shipping": Format(b.Shipping),
		"total":    Format(b.Total),
	}
}

// Format rounds an amount to two decimals for display
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatFloat is Format for amounts already stored as float64
func FormatFloat(f float64) string {
	return Format(decimal.NewFromFloat(f))
}

// Matches reports whether stored order amounts agree with a fresh calculation to the cent
func Matches(order *models.Order) bool {
	b := Calculate(order.Items)
	cent := decimal.RequireFromString("0.01")
	within := func(want decimal.Decimal, got float64) bool {
		return want.Sub(decimal.NewFromFloat(got)).Abs().LessThan(cent)
	}
	return within(b.Subtotal, order.Subtotal) &&
		within(b.Tax, order.Tax) &&
		within(b.Shipping, order.Shipping) &&
		within(b.Total, order.Total)
}
