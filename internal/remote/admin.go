package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/models"
)

// AdminCredential authenticates catalog management calls. Password is the
// shared admin secret; when it is empty, Token must belong to an account
// on the admin allowlist.
type AdminCredential struct {
	Password string
	Token    string
}

func (cred AdminCredential) apply(req *resty.Request) {
	if cred.Password != "" {
		req.SetHeader(auth.PasswordHeader, cred.Password)
		return
	}
	if cred.Token != "" {
		req.SetAuthToken(cred.Token)
	}
}

// AdminProducts lists the catalog through the admin API
func (c *Client) AdminProducts(ctx context.Context, cred AdminCredential) ([]models.Product, error) {
	var products []models.Product
	if err := c.send(ctx, http.MethodGet, "/api/admin/products", nil, &products, cred.apply); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// SaveProduct creates or replaces a catalog entry
func (c *Client) SaveProduct(ctx context.Context, cred AdminCredential, p *models.Product) (models.SaveProductResponse, error) {
	var resp models.SaveProductResponse
	if err := c.send(ctx, http.MethodPost, "/api/admin/products", p, &resp, cred.apply); err != nil {
		return models.SaveProductResponse{}, fmt.Errorf("failed to save product %s: %w", p.ID, err)
	}
	return resp, nil
}

// DeleteProduct removes a catalog entry
func (c *Client) DeleteProduct(ctx context.Context, cred AdminCredential, id string) error {
	if err := c.send(ctx, http.MethodDelete, "/api/admin/products/"+id, nil, nil, cred.apply); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}
