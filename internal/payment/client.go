package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/patterns"
)

// GatewayClient authorizes payments through the payment service
type GatewayClient struct {
	client   *resty.Client
	circuit  *patterns.CircuitBreakerWrapper
	bulkhead *patterns.Bulkhead
	baseURL  string
}

// NewGatewayClient creates a client for the payment service at baseURL
func NewGatewayClient(baseURL string, breaker patterns.BreakerSettings) *GatewayClient {
	return &GatewayClient{
		client: resty.New().
			SetTimeout(patterns.SlowServiceTimeout).
			SetRetryCount(0),
		circuit:  patterns.NewCircuitBreaker("Payment", "shop", breaker),
		bulkhead: patterns.NewBulkhead(10, "payment", "shop"),
		baseURL:  baseURL,
	}
}

// Authorize charges the payment service with circuit breaker and bulkhead
// protection. Only the card's last four digits leave the client.
func (g *GatewayClient) Authorize(ctx context.Context, orderID, method string, details models.PaymentDetails, amount float64) (Authorization, error) {
	req := models.ChargeRequest{
		OrderID: orderID,
		Amount:  amount,
		Method:  method,
	}
	if method == models.PaymentMethodCard {
		req.Last4 = Last4(details.CardNumber)
	}

	var auth Authorization
	err := g.bulkhead.Execute(ctx, func() error {
		_, cbErr := g.circuit.Execute(func() (interface{}, error) {
			var body models.ChargeResponse
			resp, httpErr := g.client.R().
				SetContext(ctx).
				SetHeader("Content-Type", "application/json").
				SetBody(req).
				SetResult(&body).
				SetError(&body).
				Post(g.baseURL + "/payment/charge")

			if httpErr != nil {
				return nil, fmt.Errorf("HTTP error: %w", httpErr)
			}

			switch resp.StatusCode() {
			case http.StatusOK:
				auth = Authorization{Approved: true, Reference: body.TransactionID, Message: body.Message}
				return nil, nil
			case http.StatusPaymentRequired:
				auth = Authorization{Reference: body.TransactionID, Message: body.Message}
				return nil, nil
			default:
				return nil, fmt.Errorf("payment service returned status %d: %s", resp.StatusCode(), resp.String())
			}
		})
		return patterns.FormatError("Payment", cbErr)
	})

	if err != nil {
		return Authorization{}, err
	}
	if !auth.Approved {
		log.WithFields(log.Fields{
			"order_id": orderID,
			"method":   method,
		}).Warn("Payment declined")
		return auth, nil
	}

	log.WithFields(log.Fields{
		"order_id":       orderID,
		"transaction_id": auth.Reference,
	}).Info("Payment authorized")
	return auth, nil
}

// Void releases an approved authorization (rollback operation)
func (g *GatewayClient) Void(ctx context.Context, reference string) error {
	resp, err := g.client.R().
		SetContext(ctx).
		Post(g.baseURL + "/payment/transactions/" + reference + "/void")

	if err != nil {
		return fmt.Errorf("HTTP error: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("payment service returned status %d", resp.StatusCode())
	}

	log.WithField("transaction_id", reference).Info("Payment voided")
	return nil
}

// CircuitState returns the breaker state name
func (g *GatewayClient) CircuitState() string {
	return g.circuit.GetState()
}
