package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashendes/pickle-storefront/internal/models"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	db, err := OpenDB(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)

	s, err := New(context.Background(), rdb, db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestCartRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	items, err := s.LoadCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	want := []models.LineItem{{ProductID: "avakai", Name: "Andhra Avakai", Price: 220, Quantity: 2, Size: "250g"}}
	require.NoError(t, s.SaveCart(ctx, "u1", want))
	assert.True(t, mr.Exists("carts:u1"))

	got, err := s.LoadCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.SaveCart(ctx, "u1", nil))
	got, err = s.LoadCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := s.LoadCart(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLoadCartRedisDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.LoadCart(context.Background(), "u1")
	assert.Error(t, err)
}

func TestOrders(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	first := &models.Order{OrderID: "ORD1", UserID: "u1", Status: models.OrderStatusProcessing, Total: 945, CreatedAt: base,
		Items: []models.LineItem{{ProductID: "avakai", Price: 220, Quantity: 1, Size: "250g"}}}
	second := &models.Order{OrderID: "ORD2", UserID: "u1", Status: models.OrderStatusProcessing, Total: 271, CreatedAt: base.Add(time.Hour)}
	foreign := &models.Order{OrderID: "ORD3", UserID: "u2", Status: models.OrderStatusProcessing, Total: 100, CreatedAt: base}

	require.NoError(t, s.SaveOrder(ctx, first))
	require.NoError(t, s.SaveOrder(ctx, second))
	require.NoError(t, s.SaveOrder(ctx, foreign))

	err := s.SaveOrder(ctx, first)
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	orders, err := s.GetOrdersByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD2", orders[0].OrderID)
	assert.Equal(t, "ORD1", orders[1].OrderID)

	got, err := s.GetOrder(ctx, "ORD1")
	require.NoError(t, err)
	assert.Equal(t, first.Items, got.Items)
	assert.Equal(t, 945.0, got.Total)

	_, err = s.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	none, err := s.GetOrdersByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSeedAndProducts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	seeded, err := s.Seed(ctx, SeedCatalog())
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = s.Seed(ctx, SeedCatalog())
	require.NoError(t, err)
	assert.False(t, seeded)

	products, err := s.GetProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "avakai", products[0].ID)
	assert.Equal(t, "gongura", products[1].ID)
	assert.Equal(t, "tomato", products[2].ID)

	avakai := products[0]
	assert.Equal(t, "Heritage in a Jar", avakai.Display.Details.Title)
	assert.Equal(t, "per 250g glass jar", avakai.Display.BuyNow.Unit)

	gongura, err := s.GetProduct(ctx, "gongura")
	require.NoError(t, err)
	require.NotNil(t, gongura.Display)
	assert.Equal(t, gongura.LongDescription, gongura.Display.Details.Description)
	assert.Equal(t, "Naturally Preserved", gongura.Display.Freshness.Title)
	assert.Equal(t, "Preserved with traditional methods", gongura.Display.Freshness.Description)
	assert.Equal(t, []string{"Sun Cured", "Stone Ground", "Oil Preserved"}, gongura.Display.BuyNow.ProcessingParams)
	assert.Equal(t, "₹240", gongura.Display.BuyNow.Price)
	assert.Equal(t, "per 250g", gongura.Display.BuyNow.Unit)

	_, err = s.GetProduct(ctx, "lemon")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndDeleteProduct(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	lemon := models.Product{ID: "lemon", Name: "Lemon Pickle", Sizes: []models.ProductSize{{Label: "250g", Price: 180, Weight: "250g"}}}
	require.NoError(t, s.SaveProduct(ctx, models.Product{ID: "avakai", Name: "Andhra Avakai"}))
	require.NoError(t, s.SaveProduct(ctx, lemon))

	lemon.Name = "Spicy Lemon Pickle"
	require.NoError(t, s.SaveProduct(ctx, lemon))

	products, err := s.GetProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "avakai", products[0].ID)
	assert.Equal(t, "Spicy Lemon Pickle", products[1].Name)

	require.NoError(t, s.DeleteProduct(ctx, "lemon"))
	assert.ErrorIs(t, s.DeleteProduct(ctx, "lemon"), ErrNotFound)
}

func TestResolveDisplayKeepsExplicitValues(t *testing.T) {
	p := models.Product{
		Name:            "X",
		LongDescription: "long",
		Display: &models.DisplayExtras{
			Freshness: &models.FreshnessSection{Title: "Fresh"},
			BuyNow:    &models.BuyNowSection{Price: "₹1"},
		},
	}
	ResolveDisplay(&p)

	assert.Equal(t, "Fresh", p.Display.Freshness.Title)
	assert.Equal(t, "Preserved with traditional methods", p.Display.Freshness.Description)
	assert.Equal(t, "₹1", p.Display.BuyNow.Price)
	assert.Equal(t, "per 250g", p.Display.BuyNow.Unit)
	assert.Equal(t, "long", p.Display.Details.Description)
	assert.NotNil(t, p.Features)
}
