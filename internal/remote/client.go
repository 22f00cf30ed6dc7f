// Package remote is the shopper-side client of the storefront service.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/docstore"
	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/patterns"
)

// ErrNoCredential is returned for account calls on a user without a token
var ErrNoCredential = errors.New("no credential for user")

// apiError is the error body the storefront returns
type apiError struct {
	Error string `json:"error"`
}

// Client calls the storefront service through a circuit breaker. It keeps
// the bearer token of each signed-in user, so calls on behalf of one user
// can never be made with another user's token.
type Client struct {
	client  *resty.Client
	circuit *patterns.CircuitBreakerWrapper
	baseURL string

	mu     sync.RWMutex
	tokens map[string]string
}

// NewClient creates a client for the storefront at baseURL
func NewClient(baseURL string, breaker patterns.BreakerSettings) *Client {
	return &Client{
		client: resty.New().
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0),
		circuit: patterns.NewCircuitBreaker("Storefront", "shop", breaker),
		baseURL: baseURL,
		tokens:  make(map[string]string),
	}
}

// SetTimeout overrides the per-request timeout
func (c *Client) SetTimeout(d time.Duration) *Client {
	if d > 0 {
		c.client.SetTimeout(d)
	}
	return c
}

// Remember associates token with userID
func (c *Client) Remember(userID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[userID] = token
}

// Forget drops the token of userID
func (c *Client) Forget(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, userID)
}

func (c *Client) token(userID string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tokens[userID]
	if !ok || userID == "" {
		return "", fmt.Errorf("%w %s", ErrNoCredential, userID)
	}
	return t, nil
}

// CircuitState returns the breaker state name
func (c *Client) CircuitState() string {
	return c.circuit.GetState()
}

// do runs one request through the breaker. Client errors (4xx) do not count
// against the breaker; they are returned as *StatusError.
func (c *Client) do(ctx context.Context, method, path, token string, body, result interface{}) error {
	return c.send(ctx, method, path, body, result, func(req *resty.Request) {
		if token != "" {
			req.SetAuthToken(token)
		}
	})
}

func (c *Client) send(ctx context.Context, method, path string, body, result interface{}, authorize func(*resty.Request)) error {
	var statusErr *StatusError

	err := c.circuit.Run(func() error {
		req := c.client.R().SetContext(ctx).SetError(&apiError{})
		authorize(req)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}
		if result != nil {
			req.SetResult(result)
		}

		resp, httpErr := req.Execute(method, c.baseURL+path)
		if httpErr != nil {
			return fmt.Errorf("HTTP error: %w", httpErr)
		}

		code := resp.StatusCode()
		if code < 300 {
			return nil
		}
		msg := resp.String()
		if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
			msg = e.Error
		}
		if code >= 500 {
			return fmt.Errorf("storefront returned status %d: %s", code, msg)
		}
		statusErr = &StatusError{Code: code, Message: msg}
		return nil
	})
	if err != nil {
		return err
	}
	if statusErr != nil {
		return statusErr
	}
	return nil
}

// StatusError is a 4xx answer from the storefront
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("storefront returned status %d: %s", e.Code, e.Message)
}

// Is maps statuses onto the sentinel errors callers compare against
func (e *StatusError) Is(target error) bool {
	switch target {
	case docstore.ErrNotFound:
		return e.Code == http.StatusNotFound
	case auth.ErrInvalidToken:
		return e.Code == http.StatusUnauthorized
	}
	return false
}

// SaveCart overwrites the account cart of userID
func (c *Client) SaveCart(ctx context.Context, userID string, items []models.LineItem) error {
	token, err := c.token(userID)
	if err != nil {
		return err
	}
	body := models.SaveCartRequest{Items: models.CloneItems(items)}
	if err := c.do(ctx, http.MethodPut, "/carts/me", token, body, nil); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// LoadCart fetches the account cart of userID
func (c *Client) LoadCart(ctx context.Context, userID string) ([]models.LineItem, error) {
	token, err := c.token(userID)
	if err != nil {
		return nil, err
	}
	var doc models.CartDocument
	if err := c.do(ctx, http.MethodGet, "/carts/me", token, nil, &doc); err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if doc.UserID != "" && doc.UserID != userID {
		log.WithFields(log.Fields{
			"want": userID,
			"got":  doc.UserID,
		}).Error("Storefront returned another user's cart")
		return nil, fmt.Errorf("cart belongs to %s, not %s", doc.UserID, userID)
	}
	return models.CloneItems(doc.Items), nil
}

// SaveOrder persists a placed order
func (c *Client) SaveOrder(ctx context.Context, order *models.Order) error {
	token, err := c.token(order.UserID)
	if err != nil {
		return err
	}
	var resp models.CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", token, order, &resp); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// GetOrdersByUser lists the orders of userID, newest first
func (c *Client) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	token, err := c.token(userID)
	if err != nil {
		return nil, err
	}
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders", token, nil, &orders); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetProducts returns the catalog
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/products", "", nil, &products); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct returns one product
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+id, "", nil, &p); err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return &p, nil
}

// Chat asks the storefront's assistant a question
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	var resp models.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", "", req, &resp); err != nil {
		return models.ChatResponse{}, fmt.Errorf("chat failed: %w", err)
	}
	return resp, nil
}
