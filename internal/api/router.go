// Package api is the HTTP surface of the storefront service.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/chat"
	"github.com/ashendes/pickle-storefront/internal/docstore"
	"github.com/ashendes/pickle-storefront/internal/metrics"
)

const serviceName = "storefront-service"

// Server holds the storefront's handlers and their dependencies
type Server struct {
	store *docstore.Store
	auth  *auth.Service
	admin *auth.AdminAuthenticator
	chat  *chat.Service
}

// NewServer wires the handlers
func NewServer(store *docstore.Store, accounts *auth.Service, admin *auth.AdminAuthenticator, chatService *chat.Service) *Server {
	return &Server{
		store: store,
		auth:  accounts,
		admin: admin,
		chat:  chatService,
	}
}

// Router builds the gin engine with every storefront route
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(metrics.PrometheusMiddleware(serviceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := router.Group("/auth")
	authGroup.POST("/signup", s.signUp)
	authGroup.POST("/verify", s.verifyEmail)
	authGroup.POST("/signin", s.signIn)

	user := router.Group("/", auth.RequireUser(s.auth))
	user.POST("/auth/signout", s.signOut)
	user.GET("/auth/me", s.me)
	user.GET("/carts/me", s.getCart)
	user.PUT("/carts/me", s.saveCart)
	user.POST("/orders", s.createOrder)
	user.GET("/orders", s.listOrders)

	router.GET("/products", s.listProducts)
	router.GET("/products/:id", s.getProduct)

	admin := router.Group("/api/admin", s.admin.Middleware())
	admin.GET("/products", s.adminListProducts)
	admin.POST("/products", s.adminSaveProduct)
	admin.DELETE("/products/:id", s.adminDeleteProduct)

	router.POST("/api/chat", s.chatMessage)

	return router
}

// chatFallback is the greeting returned when a chat request cannot be read
func chatFallback() string {
	return chat.Reply("hi")
}
