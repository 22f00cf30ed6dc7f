package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashendes/pickle-storefront/internal/api"
	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/chat"
	"github.com/ashendes/pickle-storefront/internal/docstore"
	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/patterns"
	"github.com/ashendes/pickle-storefront/internal/pricing"
)

func newStorefront(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	db, err := docstore.OpenDB(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	store, err := docstore.New(ctx, redis.NewClient(&redis.Options{Addr: mr.Addr()}), db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, err = store.Seed(ctx, docstore.SeedCatalog())
	require.NoError(t, err)

	accounts, err := auth.NewService(ctx, store.DB(), store.Redis(), time.Hour)
	require.NoError(t, err)
	admin := auth.NewAdminAuthenticator(accounts, "hunter2", []string{"admin@example.com"})

	srv := httptest.NewServer(api.NewServer(store, accounts, admin, chat.NewService(nil)).Router())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, patterns.DefaultBreakerSettings())
}

func signedIn(t *testing.T, c *Client, email string) models.SignInResponse {
	t.Helper()
	ctx := context.Background()
	created, err := c.SignUp(ctx, models.SignUpRequest{Email: email, Password: "secret123", DisplayName: "Shopper"})
	require.NoError(t, err)
	require.NoError(t, c.VerifyEmail(ctx, created.VerificationCode))
	resp, err := c.SignIn(ctx, email, "secret123")
	require.NoError(t, err)
	return resp
}

func TestAccountLifecycle(t *testing.T) {
	c := newStorefront(t)
	ctx := context.Background()

	created, err := c.SignUp(ctx, models.SignUpRequest{Email: "ravi@example.com", Password: "secret123", DisplayName: "Ravi"})
	require.NoError(t, err)

	_, err = c.SignUp(ctx, models.SignUpRequest{Email: "ravi@example.com", Password: "secret123", DisplayName: "Ravi"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)

	_, err = c.SignIn(ctx, "ravi@example.com", "secret123")
	assert.ErrorIs(t, err, auth.ErrEmailNotVerified)

	assert.ErrorIs(t, c.VerifyEmail(ctx, "bogus"), auth.ErrInvalidCode)
	require.NoError(t, c.VerifyEmail(ctx, created.VerificationCode))

	_, err = c.SignIn(ctx, "ravi@example.com", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	resp, err := c.SignIn(ctx, "ravi@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, resp.Identity.UserID)

	id, err := c.Me(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", id.DisplayName)

	require.NoError(t, c.SignOut(ctx, models.Credential{Token: resp.Token, Identity: resp.Identity}))
	_, err = c.Me(ctx, resp.Token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = c.LoadCart(ctx, resp.Identity.UserID)
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.Equal(t, "closed", c.CircuitState())
}

func TestCartsAndOrders(t *testing.T) {
	c := newStorefront(t)
	ctx := context.Background()
	one := signedIn(t, c, "one@example.com")
	two := signedIn(t, c, "two@example.com")

	items := []models.LineItem{
		{ProductID: "avakai", Name: "Andhra Avakai", Price: 220, Quantity: 2, Size: "250g"},
		{ProductID: "gongura", Name: "Gongura Pickle", Price: 460, Quantity: 1, Size: "500g"},
	}
	require.NoError(t, c.SaveCart(ctx, one.Identity.UserID, items))

	got, err := c.LoadCart(ctx, one.Identity.UserID)
	require.NoError(t, err)
	assert.Equal(t, items, got)

	other, err := c.LoadCart(ctx, two.Identity.UserID)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = c.LoadCart(ctx, "stranger")
	assert.ErrorIs(t, err, ErrNoCredential)

	subtotal, tax, shipping, total := pricing.Calculate(items).Amounts()
	order := &models.Order{
		OrderID:  "ORD1",
		UserID:   one.Identity.UserID,
		Items:    items,
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    total,
		Status:   models.OrderStatusProcessing,
	}
	require.NoError(t, c.SaveOrder(ctx, order))

	dup := c.SaveOrder(ctx, order)
	var se *StatusError
	require.ErrorAs(t, dup, &se)
	assert.Equal(t, http.StatusConflict, se.Code)

	orders, err := c.GetOrdersByUser(ctx, one.Identity.UserID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 945.0, orders[0].Total)

	none, err := c.GetOrdersByUser(ctx, two.Identity.UserID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalogAndChat(t *testing.T) {
	c := newStorefront(t)
	ctx := context.Background()

	products, err := c.GetProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)

	p, err := c.GetProduct(ctx, "gongura")
	require.NoError(t, err)
	assert.Equal(t, "Leaf Pickle", p.Category)

	_, err = c.GetProduct(ctx, "mystery")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	resp, err := c.Chat(ctx, models.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.ChatSourceRuleBased, resp.Source)
}

func TestAdminCatalog(t *testing.T) {
	c := newStorefront(t)
	ctx := context.Background()
	admin := signedIn(t, c, "admin@example.com")
	shopper := signedIn(t, c, "shopper@example.com")

	var se *StatusError
	_, err := c.AdminProducts(ctx, AdminCredential{Password: "wrong"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)

	_, err = c.AdminProducts(ctx, AdminCredential{Token: shopper.Token})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)

	products, err := c.AdminProducts(ctx, AdminCredential{Token: admin.Token})
	require.NoError(t, err)
	assert.Len(t, products, 3)

	mango := &models.Product{
		ID:      "mango",
		Name:    "Mango Thokku",
		Sizes:   []models.ProductSize{{Label: "250g", Price: 210, Weight: "250g"}},
		InStock: true,
	}
	resp, err := c.SaveProduct(ctx, AdminCredential{Password: "hunter2"}, mango)
	require.NoError(t, err)
	assert.Equal(t, auth.MethodPassword, resp.AuthMethod)

	got, err := c.GetProduct(ctx, "mango")
	require.NoError(t, err)
	assert.Equal(t, "Mango Thokku", got.Name)
	assert.Equal(t, "₹210", got.Display.BuyNow.Price)

	_, err = c.SaveProduct(ctx, AdminCredential{Password: "hunter2"}, &models.Product{ID: "nameless"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)

	require.NoError(t, c.DeleteProduct(ctx, AdminCredential{Token: admin.Token}, "mango"))
	_, err = c.GetProduct(ctx, "mango")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, c.DeleteProduct(ctx, AdminCredential{Token: admin.Token}, "mango"), docstore.ErrNotFound)
	assert.Equal(t, "closed", c.CircuitState())
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, patterns.DefaultBreakerSettings())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.GetProducts(ctx)
		require.Error(t, err)
	}

	_, err := c.GetProducts(ctx)
	assert.ErrorIs(t, err, patterns.ErrUnavailable)
	assert.Equal(t, "open", c.CircuitState())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Product not found"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, patterns.DefaultBreakerSettings())
	for i := 0; i < 5; i++ {
		_, err := c.GetProduct(context.Background(), "x")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
		assert.Contains(t, err.Error(), "Product not found")
	}
	assert.Equal(t, "closed", c.CircuitState())
}
