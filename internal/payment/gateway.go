package payment

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/metrics"
	"github.com/ashendes/pickle-storefront/internal/models"
)

const serviceName = "payment-service"

var errChaos = errors.New("simulated failure")

// Gateway is the simulated payment gateway served by payment-service
type Gateway struct {
	processingDelay time.Duration

	transactions map[string]*models.Transaction
	mutex        sync.RWMutex

	chaosEnabled  bool
	chaosSlowMode bool
	chaosMutex    sync.RWMutex

	rng      *rand.Rand
	rngMutex sync.Mutex
}

// NewGateway creates a gateway that takes processingDelay to settle each charge
func NewGateway(processingDelay time.Duration) *Gateway {
	return &Gateway{
		processingDelay: processingDelay,
		transactions:    make(map[string]*models.Transaction),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RegisterRoutes mounts the payment and chaos endpoints
func (g *Gateway) RegisterRoutes(router gin.IRouter) {
	router.GET("/payment/status", g.getStatus)
	router.POST("/payment/charge", g.charge)
	router.GET("/payment/transactions/:id", g.getTransaction)
	router.POST("/payment/transactions/:id/void", g.void)

	router.POST("/chaos/payment/enable", g.enableChaos)
	router.POST("/chaos/payment/disable", g.disableChaos)
	router.POST("/chaos/payment/slow", g.enableSlowMode)
	router.POST("/chaos/payment/slow/disable", g.disableSlowMode)
}

func (g *Gateway) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":          serviceName,
		"status":           "healthy",
		"processing_delay": g.processingDelay.String(),
		"chaos_enabled":    g.getChaosEnabled(),
		"chaos_slow_mode":  g.getSlowMode(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

func (g *Gateway) charge(c *gin.Context) {
	var req models.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ChargeResponse{
			Status:  models.TransactionStatusFailed,
			Message: "Invalid request: " + err.Error(),
		})
		return
	}

	if err := g.simulate(c.Request.Context()); err != nil {
		log.WithFields(log.Fields{
			"order_id": req.OrderID,
			"amount":   req.Amount,
		}).Warn("Chaos: Simulated payment failure")

		c.JSON(http.StatusServiceUnavailable, models.ChargeResponse{
			Status:  models.TransactionStatusFailed,
			Message: "Payment service temporarily unavailable: " + err.Error(),
		})
		return
	}

	tx := &models.Transaction{
		ID:        uuid.New().String(),
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		Method:    req.Method,
		Status:    models.TransactionStatusCompleted,
		Timestamp: time.Now(),
	}
	declined := Declines(req.Method, req.Last4)
	if declined {
		tx.Status = models.TransactionStatusFailed
	}

	g.mutex.Lock()
	g.transactions[tx.ID] = tx
	g.mutex.Unlock()

	if declined {
		log.WithFields(log.Fields{
			"transaction_id": tx.ID,
			"order_id":       req.OrderID,
		}).Info("Payment declined")
		c.JSON(http.StatusPaymentRequired, models.ChargeResponse{
			TransactionID: tx.ID,
			Status:        models.TransactionStatusFailed,
			Message:       "Card declined",
		})
		return
	}

	metrics.PaymentAmount.Observe(req.Amount)

	log.WithFields(log.Fields{
		"transaction_id": tx.ID,
		"order_id":       req.OrderID,
		"amount":         req.Amount,
		"method":         req.Method,
	}).Info("Payment processed successfully")

	c.JSON(http.StatusOK, models.ChargeResponse{
		TransactionID: tx.ID,
		Status:        models.TransactionStatusCompleted,
		Message:       "Payment processed successfully",
	})
}

func (g *Gateway) getTransaction(c *gin.Context) {
	id := c.Param("id")

	g.mutex.RLock()
	tx, ok := g.transactions[id]
	g.mutex.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found", "transaction_id": id})
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (g *Gateway) void(c *gin.Context) {
	id := c.Param("id")

	g.mutex.Lock()
	tx, ok := g.transactions[id]
	if ok && tx.Status == models.TransactionStatusCompleted {
		tx.Status = models.TransactionStatusVoided
	}
	var status string
	if ok {
		status = tx.Status
	}
	g.mutex.Unlock()

	switch {
	case !ok:
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found", "transaction_id": id})
	case status != models.TransactionStatusVoided:
		c.JSON(http.StatusConflict, gin.H{"error": "Transaction was not charged", "transaction_id": id})
	default:
		log.WithField("transaction_id", id).Info("Payment voided")
		c.JSON(http.StatusOK, models.ChargeResponse{
			TransactionID: id,
			Status:        models.TransactionStatusVoided,
			Message:       "Payment voided",
		})
	}
}

func (g *Gateway) enableChaos(c *gin.Context) {
	g.setChaosEnabled(true)
	metrics.ChaosFailureRate.WithLabelValues(serviceName).Set(1)

	log.Info("Chaos mode ENABLED for payment service")
	c.JSON(http.StatusOK, gin.H{
		"message": "Chaos mode enabled",
		"info":    "40% of requests will fail randomly",
	})
}

func (g *Gateway) disableChaos(c *gin.Context) {
	g.setChaosEnabled(false)
	g.setSlowMode(false)
	metrics.ChaosFailureRate.WithLabelValues(serviceName).Set(0)
	metrics.ChaosSlowMode.WithLabelValues(serviceName).Set(0)

	log.Info("Chaos mode DISABLED for payment service")
	c.JSON(http.StatusOK, gin.H{"message": "Chaos mode disabled"})
}

func (g *Gateway) enableSlowMode(c *gin.Context) {
	g.setSlowMode(true)
	metrics.ChaosSlowMode.WithLabelValues(serviceName).Set(1)

	log.Info("Slow mode ENABLED for payment service")
	c.JSON(http.StatusOK, gin.H{
		"message": "Slow mode enabled",
		"info":    "Requests will have 5-10 second delays",
	})
}

func (g *Gateway) disableSlowMode(c *gin.Context) {
	g.setSlowMode(false)
	metrics.ChaosSlowMode.WithLabelValues(serviceName).Set(0)

	log.Info("Slow mode DISABLED for payment service")
	c.JSON(http.StatusOK, gin.H{"message": "Slow mode disabled"})
}

func (g *Gateway) setChaosEnabled(enabled bool) {
	g.chaosMutex.Lock()
	defer g.chaosMutex.Unlock()
	g.chaosEnabled = enabled
}

func (g *Gateway) getChaosEnabled() bool {
	g.chaosMutex.RLock()
	defer g.chaosMutex.RUnlock()
	return g.chaosEnabled
}

func (g *Gateway) setSlowMode(enabled bool) {
	g.chaosMutex.Lock()
	defer g.chaosMutex.Unlock()
	g.chaosSlowMode = enabled
}

func (g *Gateway) getSlowMode() bool {
	g.chaosMutex.RLock()
	defer g.chaosMutex.RUnlock()
	return g.chaosSlowMode
}

// simulate waits out the processing delay plus any chaos delay, then fails
// 40% of calls while chaos mode is on
func (g *Gateway) simulate(ctx context.Context) error {
	delay := g.processingDelay
	if g.getSlowMode() {
		delay += time.Duration(5000+g.intn(5000)) * time.Millisecond
	}
	if delay > 0 {
		log.WithField("delay_ms", delay.Milliseconds()).Debug("Processing payment")
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if g.getChaosEnabled() && g.float32() < 0.4 {
		return errChaos
	}
	return nil
}

func (g *Gateway) intn(n int) int {
	g.rngMutex.Lock()
	defer g.rngMutex.Unlock()
	return g.rng.Intn(n)
}

func (g *Gateway) float32() float32 {
	g.rngMutex.Lock()
	defer g.rngMutex.Unlock()
	return g.rng.Float32()
}
