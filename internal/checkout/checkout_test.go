package checkout

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashendes/pickle-storefront/internal/cart"
	"github.com/ashendes/pickle-storefront/internal/docstore"
	"github.com/ashendes/pickle-storefront/internal/localstore"
	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/payment"
)

var (
	shopper = models.Identity{UserID: "u1", Email: "ravi@example.com", EmailVerified: true}

	avakai250  = models.LineItem{ProductID: "avakai", Name: "Andhra Avakai", Price: 220, Quantity: 2, Size: "250g", Image: "/PNG_LOGO.png"}
	gongura500 = models.LineItem{ProductID: "gongura", Name: "Gongura Pickle", Price: 460, Quantity: 1, Size: "500g", Image: "/pic_logo_main_try.png"}
)

func validRequest() Request {
	return Request{
		Address: models.Address{
			Name:    "Ravi",
			Phone:   "9876543210",
			Street:  "12 MG Road",
			City:    "Vijayawada",
			State:   "Andhra Pradesh",
			Pincode: "520001",
		},
		PaymentMethod: models.PaymentMethodUPI,
		Payment:       models.PaymentDetails{UPIID: "ravi@upi"},
	}
}

type fixture struct {
	docs    *docstore.Store
	local   *localstore.Store
	session *cart.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	db, err := docstore.OpenDB(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	docs, err := docstore.New(ctx, redis.NewClient(&redis.Options{Addr: mr.Addr()}), db)
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })

	local, err := localstore.OpenPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	session := cart.NewSession(local, docs, cart.Options{})
	t.Cleanup(func() { session.Close() })

	return &fixture{docs: docs, local: local, session: session}
}

func (f *fixture) signIn(t *testing.T, id models.Identity, items ...models.LineItem) {
	t.Helper()
	ctx := context.Background()
	if len(items) > 0 {
		require.NoError(t, f.docs.SaveCart(ctx, id.UserID, items))
	}
	f.session.SetIdentity(id)
	require.NoError(t, f.session.AwaitLoaded(ctx))
}

func (f *fixture) remoteCart(t *testing.T, userID string) []models.LineItem {
	t.Helper()
	require.NoError(t, f.session.Sync(context.Background()))
	items, err := f.docs.LoadCart(context.Background(), userID)
	require.NoError(t, err)
	return items
}

type authorizerFunc func(ctx context.Context, orderID, method string, details models.PaymentDetails, amount float64) (payment.Authorization, error)

func (f authorizerFunc) Authorize(ctx context.Context, orderID, method string, details models.PaymentDetails, amount float64) (payment.Authorization, error) {
	return f(ctx, orderID, method, details, amount)
}

func (f authorizerFunc) Void(context.Context, string) error {
	return nil
}

// voidRecorder approves like payment.Simulated and remembers voided references
type voidRecorder struct {
	payment.Simulated

	mu       sync.Mutex
	approved []string
	voided   []string
}

func (v *voidRecorder) Authorize(ctx context.Context, orderID, method string, details models.PaymentDetails, amount float64) (payment.Authorization, error) {
	auth, err := v.Simulated.Authorize(ctx, orderID, method, details, amount)
	if err == nil && auth.Approved {
		v.mu.Lock()
		v.approved = append(v.approved, auth.Reference)
		v.mu.Unlock()
	}
	return auth, err
}

func (v *voidRecorder) Void(_ context.Context, reference string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.voided = append(v.voided, reference)
	return nil
}

// reloadingSession reports a loaded cart from AwaitLoaded but hands out
// snapshots of a cart still loading for the first few calls
type reloadingSession struct {
	pending   int
	snapshots int
	loaded    cart.Snapshot
}

func (r *reloadingSession) AwaitLoaded(ctx context.Context) error {
	return ctx.Err()
}

func (r *reloadingSession) Snapshot() cart.Snapshot {
	r.snapshots++
	if r.snapshots <= r.pending {
		return cart.Snapshot{Identity: r.loaded.Identity, State: cart.StateLoading}
	}
	return r.loaded
}

func (r *reloadingSession) ClearAfterCheckout(cart.Snapshot) {}

type recordingOrders struct {
	saved []*models.Order
}

func (r *recordingOrders) SaveOrder(_ context.Context, order *models.Order) error {
	r.saved = append(r.saved, order)
	return nil
}

type failingOrders struct{}

func (failingOrders) SaveOrder(context.Context, *models.Order) error {
	return errors.New("disk full")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Request)
		fields []string
	}{
		{"valid upi", func(r *Request) {}, nil},
		{"valid cod", func(r *Request) { r.PaymentMethod = models.PaymentMethodCOD }, nil},
		{"valid card", func(r *Request) {
			r.PaymentMethod = models.PaymentMethodCard
			r.Payment = models.PaymentDetails{CardNumber: "4111 1111 1111 1111", CardExpiry: "12/30", CardCVV: "123"}
		}, nil},
		{"missing address", func(r *Request) { r.Address = models.Address{} }, []string{"name", "phone", "street", "city", "state", "pincode"}},
		{"short phone", func(r *Request) { r.Address.Phone = "98765" }, []string{"phone"}},
		{"letters in phone", func(r *Request) { r.Address.Phone = "98765abcde" }, []string{"phone"}},
		{"bad pincode", func(r *Request) { r.Address.Pincode = "5200011" }, []string{"pincode"}},
		{"short card", func(r *Request) {
			r.PaymentMethod = models.PaymentMethodCard
			r.Payment = models.PaymentDetails{CardNumber: "411111111111"}
		}, []string{"cardNumber", "cardExpiry", "cardCVV"}},
		{"missing upi", func(r *Request) { r.Payment = models.PaymentDetails{} }, []string{"upiId"}},
		{"unknown method", func(r *Request) { r.PaymentMethod = "cash" }, []string{"paymentMethod"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.modify(&req)
			err := Validate(req)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			got := make([]string, 0, len(verr.Fields))
			for k := range verr.Fields {
				got = append(got, k)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t, shopper)

	f.session.AddToCart(avakai250)
	f.session.AddToCart(gongura500)
	require.Equal(t, 3, f.session.TotalItems())

	svc := NewService(f.session, f.docs, payment.Simulated{})
	receipt, err := svc.PlaceOrder(ctx, validRequest())
	require.NoError(t, err)

	assert.Equal(t, 945.0, receipt.Total)
	assert.Equal(t, receipt.OrderID, receipt.Order.OrderID)
	assert.Regexp(t, `^ORD\d{13}[0-9A-F]{6}$`, receipt.OrderID)

	want := &models.Order{
		UserID:        "u1",
		Items:         []models.LineItem{avakai250, gongura500},
		Subtotal:      900,
		Tax:           45,
		Shipping:      0,
		Total:         945,
		Status:        models.OrderStatusProcessing,
		Address:       validRequest().Address,
		PaymentMethod: models.PaymentMethodUPI,
	}
	ignore := cmpopts.IgnoreFields(models.Order{}, "OrderID", "CreatedAt", "PaymentReference")
	if diff := cmp.Diff(want, receipt.Order, ignore); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, receipt.Order.PaymentReference)

	saved, err := f.docs.GetOrdersByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	if diff := cmp.Diff(*receipt.Order, saved[0], cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("stored order mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, f.session.Items())
	assert.Empty(t, f.remoteCart(t, "u1"))
}

func TestPlaceOrderSaveFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, shopper, avakai250)

	authorizer := &voidRecorder{}
	svc := NewService(f.session, failingOrders{}, authorizer)
	_, err := svc.PlaceOrder(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	require.Len(t, authorizer.approved, 1)
	assert.Equal(t, authorizer.approved, authorizer.voided, "approved payment must be voided")

	assert.Equal(t, []models.LineItem{avakai250}, f.session.Items())
	assert.Equal(t, []models.LineItem{avakai250}, f.remoteCart(t, "u1"))
}

func TestPlaceOrderVoidsNothingOnSuccess(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, shopper, avakai250)

	authorizer := &voidRecorder{}
	_, err := NewService(f.session, f.docs, authorizer).PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Len(t, authorizer.approved, 1)
	assert.Empty(t, authorizer.voided)
}

func TestPlaceOrderWaitsForLoadedSnapshot(t *testing.T) {
	session := &reloadingSession{
		pending: 2,
		loaded: cart.Snapshot{
			Identity: shopper,
			State:    cart.StateLoaded,
			Items:    []models.LineItem{avakai250},
		},
	}
	orders := &recordingOrders{}

	receipt, err := NewService(session, orders, payment.Simulated{}).PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err, "a snapshot taken mid-reload must not read as an empty cart")
	assert.Equal(t, 3, session.snapshots)
	assert.Equal(t, []models.LineItem{avakai250}, receipt.Order.Items)
	assert.Len(t, orders.saved, 1)
}

func TestPlaceOrderDeclined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t, shopper, avakai250)

	req := validRequest()
	req.PaymentMethod = models.PaymentMethodCard
	req.Payment = models.PaymentDetails{CardNumber: "4000000000000002", CardExpiry: "12/30", CardCVV: "123"}

	svc := NewService(f.session, f.docs, payment.Simulated{})
	_, err := svc.PlaceOrder(ctx, req)
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	orders, err := f.docs.GetOrdersByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, []models.LineItem{avakai250}, f.session.Items())
}

func TestPlaceOrderAuthorizerError(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, shopper, avakai250)

	svc := NewService(f.session, f.docs, authorizerFunc(func(context.Context, string, string, models.PaymentDetails, float64) (payment.Authorization, error) {
		return payment.Authorization{}, errors.New("gateway timeout")
	}))
	_, err := svc.PlaceOrder(context.Background(), validRequest())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, []models.LineItem{avakai250}, f.session.Items())
}

func TestPlaceOrderPreconditions(t *testing.T) {
	ctx := context.Background()
	calls := 0
	counting := authorizerFunc(func(context.Context, string, string, models.PaymentDetails, float64) (payment.Authorization, error) {
		calls++
		return payment.Authorization{Approved: true}, nil
	})

	t.Run("guest", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, models.Identity{})
		f.session.AddToCart(avakai250)

		_, err := NewService(f.session, f.docs, counting).PlaceOrder(ctx, validRequest())
		assert.ErrorIs(t, err, ErrNotSignedIn)
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, shopper)

		_, err := NewService(f.session, f.docs, counting).PlaceOrder(ctx, validRequest())
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("invalid form", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, shopper, avakai250)

		req := validRequest()
		req.Address.Pincode = "1"
		_, err := NewService(f.session, f.docs, counting).PlaceOrder(ctx, req)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, []models.LineItem{avakai250}, f.session.Items())
	})

	assert.Zero(t, calls)
}

func TestIdentityChangeDuringCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guestItem := models.LineItem{ProductID: "tomato", Name: "Tomato Pickle", Price: 200, Quantity: 1, Size: "250g"}
	require.NoError(t, f.local.Save(ctx, cart.GuestCartKey, []models.LineItem{guestItem}))
	f.signIn(t, shopper, avakai250)

	authorizing := make(chan struct{})
	proceed := make(chan struct{})
	blocking := authorizerFunc(func(context.Context, string, string, models.PaymentDetails, float64) (payment.Authorization, error) {
		close(authorizing)
		<-proceed
		return payment.Authorization{Approved: true, Reference: "ref"}, nil
	})

	type result struct {
		receipt *Receipt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		r, err := NewService(f.session, f.docs, blocking).PlaceOrder(ctx, validRequest())
		done <- result{r, err}
	}()

	<-authorizing
	f.session.SetIdentity(models.Identity{})
	require.NoError(t, f.session.AwaitLoaded(ctx))
	close(proceed)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "u1", res.receipt.Order.UserID)
	assert.Equal(t, []models.LineItem{avakai250}, res.receipt.Order.Items)

	assert.Equal(t, []models.LineItem{guestItem}, f.session.Items())
	assert.Empty(t, f.remoteCart(t, "u1"))

	guest, found, err := f.local.Load(ctx, cart.GuestCartKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []models.LineItem{guestItem}, guest)
}

func TestNewOrderID(t *testing.T) {
	now := time.UnixMilli(1767225600000)
	a, b := NewOrderID(now), NewOrderID(now)
	assert.Regexp(t, `^ORD1767225600000[0-9A-F]{6}$`, a)
	assert.NotEqual(t, a, b)
}
