package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/config"
	"github.com/ashendes/pickle-storefront/internal/metrics"
	"github.com/ashendes/pickle-storefront/internal/payment"
	"github.com/ashendes/pickle-storefront/internal/server"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	configPath := flag.String("config", os.Getenv("STOREFRONT_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	cfg.SetupLogging()
	gin.SetMode(gin.ReleaseMode)

	gateway := payment.NewGateway(cfg.Payment.ProcessingDelay)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Add Prometheus middleware
	router.Use(metrics.PrometheusMiddleware("payment-service"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	gateway.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("processing_delay", cfg.Payment.ProcessingDelay.String()).Info("Payment service configured")
	if err := server.Run(ctx, "payment-service", cfg.Payment.Addr, router); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
