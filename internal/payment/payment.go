// Package payment authorizes checkout payments, either against the payment
// service over HTTP or in-process.
package payment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashendes/pickle-storefront/internal/models"
)

// DeclinedCardSuffix marks the test card number the gateway always declines
const DeclinedCardSuffix = "0002"

// Authorization is the outcome of an authorization attempt
type Authorization struct {
	Approved  bool
	Reference string
	Message   string
}

// Authorizer approves or declines a payment. A decline is not an error;
// errors mean the outcome is unknown. Void reverses an approved
// authorization by its reference.
type Authorizer interface {
	Authorize(ctx context.Context, orderID, method string, details models.PaymentDetails, amount float64) (Authorization, error)
	Void(ctx context.Context, reference string) error
}

// Simulated approves every payment after a fixed delay, except the test
// card ending in DeclinedCardSuffix
type Simulated struct {
	Delay time.Duration
}

// Authorize implements Authorizer
func (s Simulated) Authorize(ctx context.Context, orderID, method string, details models.PaymentDetails, amount float64) (Authorization, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return Authorization{}, ctx.Err()
		}
	}

	if Declines(method, Last4(details.CardNumber)) {
		return Authorization{Message: "Card declined"}, nil
	}
	return Authorization{
		Approved:  true,
		Reference: "SIM-" + uuid.New().String(),
		Message:   "Payment processed successfully",
	}, nil
}

// Void implements Authorizer; nothing was charged
func (s Simulated) Void(ctx context.Context, reference string) error {
	return ctx.Err()
}

// Declines reports whether the gateway refuses a charge
func Declines(method, last4 string) bool {
	return method == models.PaymentMethodCard && last4 == DeclinedCardSuffix
}

// Last4 returns the last four digits of a card number, ignoring separators
func Last4(cardNumber string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
