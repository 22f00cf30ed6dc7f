package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ashendes/pickle-storefront/internal/models"
)

func item(price float64, qty int) models.LineItem {
	return models.LineItem{ProductID: "p", Size: "250g", Price: price, Quantity: qty}
}

func TestCalculate_ShippingBoundary(t *testing.T) {
	tests := []struct {
		name     string
		items    []models.LineItem
		shipping string
	}{
		{"below threshold", []models.LineItem{item(499, 1)}, "40"},
		{"exactly threshold is not free", []models.LineItem{item(500, 1)}, "40"},
		{"just above threshold is free", []models.LineItem{item(500.01, 1)}, "0"},
		{"empty cart", nil, "40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Calculate(tt.items)
			assert.True(t, b.Shipping.Equal(decimal.RequireFromString(tt.shipping)),
				"shipping = %s", b.Shipping)
		})
	}
}

func TestCalculate_TaxIsFivePercent(t *testing.T) {
	b := Calculate([]models.LineItem{item(123.45, 3)})

	assert.Equal(t, "370.35", b.Subtotal.String())
	assert.Equal(t, "18.5175", b.Tax.String())
	assert.Equal(t, "18.52", Format(b.Tax))
	assert.Equal(t, "428.87", Format(b.Total))
}

func TestCalculate_EndToEndCart(t *testing.T) {
	b := Calculate([]models.LineItem{
		{ProductID: "avakai", Name: "Andhra Avakai", Size: "250g", Price: 220, Quantity: 2},
		{ProductID: "gongura", Name: "Gongura Pickle", Size: "500g", Price: 460, Quantity: 1},
	})

	subtotal, tax, shipping, total := b.Amounts()
	assert.Equal(t, 900.0, subtotal)
	assert.Equal(t, 45.0, tax)
	assert.Equal(t, 0.0, shipping)
	assert.Equal(t, 945.0, total)
	assert.Equal(t, map[string]string{
		"subtotal": "900.00",
		"tax":      "45.00",
		"shipping": "0.00",
		"total":    "945.00",
	}, b.Display())
}

func TestMatches(t *testing.T) {
	order := &models.Order{
		Items:    []models.LineItem{item(220, 2)},
		Subtotal: 440,
		Tax:      22,
		Shipping: 40,
		Total:    502,
	}
	assert.True(t, Matches(order))

	order.Total = 400
	assert.False(t, Matches(order))
}
