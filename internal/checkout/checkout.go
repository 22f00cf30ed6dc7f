// Package checkout turns the active cart into a placed order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/cart"
	"github.com/ashendes/pickle-storefront/internal/metrics"
	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/payment"
	"github.com/ashendes/pickle-storefront/internal/pricing"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNotSignedIn     = errors.New("sign in to place an order")
	ErrPaymentDeclined = errors.New("payment declined")
)

// OrderStore persists placed orders
type OrderStore interface {
	SaveOrder(ctx context.Context, order *models.Order) error
}

// Session is the part of *cart.Session checkout needs
type Session interface {
	AwaitLoaded(ctx context.Context) error
	Snapshot() cart.Snapshot
	ClearAfterCheckout(snap cart.Snapshot)
}

// Receipt describes a placed order
type Receipt struct {
	OrderID string
	Total   float64
	Order   *models.Order
}

// Service places orders from a cart session
type Service struct {
	session    Session
	orders     OrderStore
	authorizer payment.Authorizer
	now        func() time.Time
}

// NewService wires a checkout service
func NewService(session Session, orders OrderStore, authorizer payment.Authorizer) *Service {
	return &Service{
		session:    session,
		orders:     orders,
		authorizer: authorizer,
		now:        time.Now,
	}
}

// PlaceOrder validates req, authorizes payment for the current cart, saves
// the order and only then empties the cart. On any failure the cart is left
// as it was.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Receipt, error) {
	if err := Validate(req); err != nil {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		return nil, err
	}

	snap, err := s.loadedSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Identity.IsGuest() {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		return nil, ErrNotSignedIn
	}
	if len(snap.Items) == 0 {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		return nil, ErrEmptyCart
	}

	now := s.now()
	subtotal, tax, shipping, total := pricing.Calculate(snap.Items).Amounts()
	order := &models.Order{
		OrderID:       NewOrderID(now),
		UserID:        snap.Identity.UserID,
		Items:         models.CloneItems(snap.Items),
		Subtotal:      subtotal,
		Tax:           tax,
		Shipping:      shipping,
		Total:         total,
		Status:        models.OrderStatusProcessing,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now.UTC(),
	}

	logger := log.WithFields(log.Fields{
		"order_id": order.OrderID,
		"user_id":  order.UserID,
		"items":    len(order.Items),
		"total":    order.Total,
	})
	logger.Info("Processing new order")

	auth, err := s.authorizer.Authorize(ctx, order.OrderID, req.PaymentMethod, req.Payment, order.Total)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues("payment_failed").Inc()
		logger.WithError(err).Error("Payment authorization failed")
		return nil, fmt.Errorf("payment processing failed: %w", err)
	}
	if !auth.Approved {
		metrics.OrdersTotal.WithLabelValues("payment_declined").Inc()
		logger.WithField("reason", auth.Message).Warn("Payment declined")
		return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, auth.Message)
	}
	order.PaymentReference = auth.Reference

	if err := s.orders.SaveOrder(ctx, order); err != nil {
		metrics.OrdersTotal.WithLabelValues("failed").Inc()
		logger.WithError(err).Error("Failed to save order, cart kept")

		// Rollback: release the authorization of an order that does not exist
		if voidErr := s.authorizer.Void(context.WithoutCancel(ctx), auth.Reference); voidErr != nil {
			logger.WithField("payment_reference", auth.Reference).Error("Failed to void payment during rollback: ", voidErr)
		}

		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.session.ClearAfterCheckout(snap)
	metrics.OrdersTotal.WithLabelValues("completed").Inc()
	logger.Info("Order placed")

	return &Receipt{OrderID: order.OrderID, Total: order.Total, Order: order}, nil
}

// loadedSnapshot waits for a snapshot of a fully loaded cart. The identity
// may change between AwaitLoaded and Snapshot, in which case it waits again.
func (s *Service) loadedSnapshot(ctx context.Context) (cart.Snapshot, error) {
	for {
		if err := s.session.AwaitLoaded(ctx); err != nil {
			return cart.Snapshot{}, fmt.Errorf("cart not ready: %w", err)
		}
		if snap := s.session.Snapshot(); snap.State == cart.StateLoaded {
			return snap, nil
		}
		log.Debug("Cart reloading for a new identity, waiting again")
	}
}

// NewOrderID returns "ORD" followed by the millisecond timestamp and a short
// random suffix
func NewOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("ORD%d%s", now.UnixMilli(), suffix)
}
