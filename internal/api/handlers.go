package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/docstore"
	"github.com/ashendes/pickle-storefront/internal/metrics"
	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/pricing"
)

func internalError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (s *Server) signUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := s.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if errors.Is(err, auth.ErrEmailTaken) {
		metrics.AuthAttempts.WithLabelValues("signup", "taken").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		internalError(c, "Failed to create account", err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("signup", "ok").Inc()
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) verifyEmail(c *gin.Context) {
	var req models.VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	id, err := s.auth.VerifyEmail(c.Request.Context(), req.Code)
	if errors.Is(err, auth.ErrInvalidCode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification code"})
		return
	}
	if err != nil {
		internalError(c, "Failed to verify email", err)
		return
	}
	c.JSON(http.StatusOK, id)
}

func (s *Server) signIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, auth.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email before signing in"})
	case err != nil:
		internalError(c, "Failed to sign in", err)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.auth.SignOut(c.Request.Context(), auth.TokenFrom(c)); err != nil {
		internalError(c, "Failed to sign out", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, auth.IdentityFrom(c))
}

func (s *Server) getCart(c *gin.Context) {
	id := auth.IdentityFrom(c)
	doc, err := s.store.GetCart(c.Request.Context(), id.UserID)
	if err != nil {
		internalError(c, "Failed to load cart", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) saveCart(c *gin.Context) {
	var req models.SaveCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	id := auth.IdentityFrom(c)
	if err := s.store.SaveCart(c.Request.Context(), id.UserID, req.Items); err != nil {
		internalError(c, "Failed to save cart", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createOrder(c *gin.Context) {
	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	id := auth.IdentityFrom(c)
	if order.UserID != id.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Order does not belong to the signed-in user"})
		return
	}
	if msg := validateOrder(&order); msg != "" {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: " + msg, "order_id": order.OrderID})
		return
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	err := s.store.SaveOrder(c.Request.Context(), &order)
	if errors.Is(err, docstore.ErrDuplicateOrder) {
		c.JSON(http.StatusConflict, gin.H{"error": "Order already exists", "order_id": order.OrderID})
		return
	}
	if err != nil {
		internalError(c, "Failed to save order", err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateOrderResponse{
		OrderID: order.OrderID,
		Status:  order.Status,
		Message: "Order placed successfully",
		Total:   order.Total,
	})
}

// validateOrder returns a message describing the first problem, or ""
func validateOrder(order *models.Order) string {
	if order.OrderID == "" {
		return "orderId is required"
	}
	if len(order.Items) == 0 {
		return "order has no items"
	}
	if order.Status == "" {
		order.Status = models.OrderStatusProcessing
	}
	if order.Status != models.OrderStatusProcessing {
		return "new orders must be processing"
	}
	if !pricing.Matches(order) {
		return "totals do not match items"
	}
	return ""
}

func (s *Server) listOrders(c *gin.Context) {
	id := auth.IdentityFrom(c)
	orders, err := s.store.GetOrdersByUser(c.Request.Context(), id.UserID)
	if err != nil {
		internalError(c, "Failed to list orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.store.GetProducts(c.Request.Context())
	if err != nil {
		internalError(c, "Failed to list products", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) getProduct(c *gin.Context) {
	productID := c.Param("id")
	p, err := s.store.GetProduct(c.Request.Context(), productID)
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "product_id": productID})
		return
	}
	if err != nil {
		internalError(c, "Failed to load product", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) adminListProducts(c *gin.Context) {
	s.listProducts(c)
}

func (s *Server) adminSaveProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if p.ID == "" || p.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if err := s.store.SaveProduct(c.Request.Context(), p); err != nil {
		internalError(c, "Failed to save product", err)
		return
	}

	log.WithFields(log.Fields{
		"product_id":  p.ID,
		"auth_method": auth.AdminMethodFrom(c),
	}).Info("Product saved")

	c.JSON(http.StatusCreated, models.SaveProductResponse{
		Message:    "Product saved successfully",
		Product:    p,
		AuthMethod: auth.AdminMethodFrom(c),
	})
}

func (s *Server) adminDeleteProduct(c *gin.Context) {
	productID := c.Param("id")
	err := s.store.DeleteProduct(c.Request.Context(), productID)
	if errors.Is(err, docstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "product_id": productID})
		return
	}
	if err != nil {
		internalError(c, "Failed to delete product", err)
		return
	}

	log.WithFields(log.Fields{
		"product_id":  productID,
		"auth_method": auth.AdminMethodFrom(c),
	}).Info("Product deleted")
	c.Status(http.StatusNoContent)
}

func (s *Server) chatMessage(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.WithError(err).Warn("Unreadable chat request")
		c.JSON(http.StatusOK, models.ChatResponse{
			Response: chatFallback(),
			Source:   models.ChatSourceRuleBasedError,
		})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}
	c.JSON(http.StatusOK, s.chat.Answer(c.Request.Context(), req))
}
