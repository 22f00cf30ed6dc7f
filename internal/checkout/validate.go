package checkout

import (
	"sort"
	"strings"

	"github.com/ashendes/pickle-storefront/internal/models"
)

// ValidationError lists the checkout form fields that need fixing
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, k+": "+e.Fields[k])
	}
	return "invalid checkout details: " + strings.Join(msgs, "; ")
}

// Request is what the shopper enters at checkout
type Request struct {
	Address       models.Address
	PaymentMethod string
	Payment       models.PaymentDetails
}

// Validate checks the shipping and payment details. It returns a
// *ValidationError naming every bad field, or nil.
func Validate(req Request) error {
	fields := map[string]string{}
	a := req.Address

	required := []struct{ name, value string }{
		{"name", a.Name},
		{"phone", a.Phone},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"pincode", a.Pincode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fields[f.name] = "is required"
		}
	}

	if _, missing := fields["phone"]; !missing && !digits(a.Phone, 10) {
		fields["phone"] = "must be a 10-digit phone number"
	}
	if _, missing := fields["pincode"]; !missing && !digits(a.Pincode, 6) {
		fields["pincode"] = "must be a 6-digit pincode"
	}

	p := req.Payment
	switch req.PaymentMethod {
	case models.PaymentMethodCOD:
	case models.PaymentMethodCard:
		if len(onlyDigits(p.CardNumber)) < 13 {
			fields["cardNumber"] = "must have at least 13 digits"
		}
		if strings.TrimSpace(p.CardExpiry) == "" {
			fields["cardExpiry"] = "is required"
		}
		if strings.TrimSpace(p.CardCVV) == "" {
			fields["cardCVV"] = "is required"
		}
	case models.PaymentMethodUPI:
		if strings.TrimSpace(p.UPIID) == "" {
			fields["upiId"] = "is required"
		}
	default:
		fields["paymentMethod"] = "must be one of cod, card, upi"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func digits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	return onlyDigits(s) == s
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
