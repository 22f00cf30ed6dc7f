package models

import "time"

// Payment method identifiers accepted at checkout
const (
	PaymentMethodCOD  = "cod"
	PaymentMethodCard = "card"
	PaymentMethodUPI  = "upi"
)

// PaymentDetails carries the method-specific fields entered at checkout
type PaymentDetails struct {
	CardNumber string `json:"cardNumber,omitempty"`
	CardExpiry string `json:"cardExpiry,omitempty"`
	CardCVV    string `json:"cardCVV,omitempty"`
	UPIID      string `json:"upiId,omitempty"`
}

// Transaction represents a payment transaction
type Transaction struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionStatus constants
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusVoided    = "voided"
)

// ChargeRequest represents a payment charge request
type ChargeRequest struct {
	OrderID string  `json:"order_id" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Method  string  `json:"method" binding:"required,oneof=cod card upi"`
	// Last4 is the only card datum forwarded to the gateway
	Last4 string `json:"last4,omitempty"`
}

// ChargeResponse represents a payment charge response
type ChargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}
