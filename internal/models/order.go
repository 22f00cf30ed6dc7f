package models

import "time"

// LineItem represents one product+size+quantity entry in a cart or order
type LineItem struct {
	ProductID string  `json:"productId" binding:"required"`
	Name      string  `json:"name"`
	Price     float64 `json:"price" binding:"gte=0"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Size      string  `json:"size" binding:"required"`
	Image     string  `json:"image"`
}

// SameLine reports whether two line items share the (productId, size) key
func (li LineItem) SameLine(productID, size string) bool {
	return li.ProductID == productID && li.Size == size
}

// Address represents a shipping address
type Address struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Order represents a placed order. Items and amounts never change after creation.
type Order struct {
	OrderID          string     `json:"orderId"`
	UserID           string     `json:"userId"`
	Items            []LineItem `json:"items" binding:"required,dive"`
	Subtotal         float64    `json:"subtotal"`
	Tax              float64    `json:"tax"`
	Shipping         float64    `json:"shipping"`
	Total            float64    `json:"total"`
	Status           string     `json:"status"`
	Address          Address    `json:"address"`
	PaymentMethod    string     `json:"paymentMethod"`
	PaymentReference string     `json:"paymentReference,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// OrderStatus constants
const (
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CartDocument is the wire shape of an account cart
type CartDocument struct {
	UserID    string     `json:"userId"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SaveCartRequest represents the body of PUT /carts/me
type SaveCartRequest struct {
	Items []LineItem `json:"items" binding:"dive"`
}

// CreateOrderResponse represents the response after persisting an order
type CreateOrderResponse struct {
	OrderID string  `json:"orderId"`
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Total   float64 `json:"total"`
}

// CloneItems returns a copy of items that shares no backing array
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
