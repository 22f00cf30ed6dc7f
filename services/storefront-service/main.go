package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/api"
	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/chat"
	"github.com/ashendes/pickle-storefront/internal/config"
	"github.com/ashendes/pickle-storefront/internal/docstore"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc := cfg.Storefront
	store, err := docstore.Open(ctx, sc.RedisURL, sc.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open document store: ", err)
	}
	defer store.Close()

	if sc.SeedCatalog {
		if _, err := store.Seed(ctx, docstore.SeedCatalog()); err != nil {
			log.Fatal("Failed to seed catalog: ", err)
		}
	}

	accounts, err := auth.NewService(ctx, store.DB(), store.Redis(), sc.TokenTTL)
	if err != nil {
		log.Fatal("Failed to initialize accounts: ", err)
	}
	admin := auth.NewAdminAuthenticator(accounts, sc.AdminPassword, sc.AdminEmails)

	var llm chat.Responder
	if sc.Chat.APIKey != "" {
		gemini, err := chat.NewGemini(ctx, sc.Chat.APIKey, sc.Chat.Model)
		if err != nil {
			log.WithError(err).Warn("Gemini unavailable, chat is rule-based only")
		} else {
			llm = gemini
		}
	} else {
		log.Info("No Gemini API key, chat is rule-based only")
	}

	srv := api.NewServer(store, accounts, admin, chat.NewService(llm))

	log.WithFields(log.Fields{
		"redis":        sc.RedisURL,
		"database":     sc.DatabasePath,
		"admin_emails": len(sc.AdminEmails),
		"chat_llm":     llm != nil,
	}).Info("Storefront service configured")

	if err := server.Run(ctx, "storefront-service", sc.Addr, srv.Router()); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
