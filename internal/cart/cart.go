// Package cart holds the shopper's active cart and keeps it in step with
// whichever backing store owns it for the current identity.
package cart

import (
	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/pricing"
)

// Cart is an ordered list of line items, unique by (productId, size).
// The zero value is an empty cart. Cart is not safe for concurrent use;
// Session guards it.
type Cart struct {
	items []models.LineItem
}

// NewCart builds a cart from stored items, merging duplicate lines and
// dropping lines without a positive quantity.
func NewCart(items []models.LineItem) *Cart {
	c := &Cart{}
	for _, item := range items {
		c.Add(item)
	}
	return c
}

func (c *Cart) index(productID, size string) int {
	for i := range c.items {
		if c.items[i].SameLine(productID, size) {
			return i
		}
	}
	return -1
}

// Add merges item into the cart: an existing line with the same key gains
// item.Quantity, otherwise item is appended.
func (c *Cart) Add(item models.LineItem) {
	if item.Quantity <= 0 {
		return
	}
	if i := c.index(item.ProductID, item.Size); i >= 0 {
		c.items[i].Quantity += item.Quantity
		return
	}
	c.items = append(c.items, item)
}

// Remove deletes the matching line. Removing an absent line is a no-op.
func (c *Cart) Remove(productID, size string) {
	i := c.index(productID, size)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
}

// UpdateQuantity sets the absolute quantity of a line. A quantity of zero
// or less removes the line.
func (c *Cart) UpdateQuantity(productID, size string, quantity int) {
	if quantity <= 0 {
		c.Remove(productID, size)
		return
	}
	if i := c.index(productID, size); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines in insertion order
func (c *Cart) Items() []models.LineItem {
	return models.CloneItems(c.items)
}

// Len returns the number of distinct lines
func (c *Cart) Len() int {
	return len(c.items)
}

// TotalItems is the sum of quantities
func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// TotalPrice is the sum of price × quantity over all lines
func (c *Cart) TotalPrice() float64 {
	return pricing.Calculate(c.items).Subtotal.InexactFloat64()
}
