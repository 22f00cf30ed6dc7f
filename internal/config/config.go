package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ashendes/pickle-storefront/internal/patterns"
)

// Config holds configuration for all storefront binaries. Each binary reads
// only the sections it needs.
type Config struct {
	Storefront StorefrontConfig `yaml:"storefront"`
	Payment    PaymentConfig    `yaml:"payment"`
	Shop       ShopConfig       `yaml:"shop"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorefrontConfig configures storefront-service
type StorefrontConfig struct {
	Addr          string        `yaml:"addr"`
	RedisURL      string        `yaml:"redis_url"`
	DatabasePath  string        `yaml:"database_path"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminEmails   []string      `yaml:"admin_emails"`
	AdminPassword string        `yaml:"admin_password"` // shared secret accepted in x-admin-password
	SeedCatalog   bool          `yaml:"seed_catalog"`
	Chat          ChatConfig    `yaml:"chat"`
}

// ChatConfig configures the chat responder
type ChatConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// PaymentConfig configures payment-service
type PaymentConfig struct {
	Addr            string        `yaml:"addr"`
	ProcessingDelay time.Duration `yaml:"processing_delay"`
}

// ShopConfig configures the shopper CLI
type ShopConfig struct {
	StorefrontURL string                   `yaml:"storefront_url"`
	PaymentURL    string                   `yaml:"payment_url"`
	Home          string                   `yaml:"home"` // device-local store: guest cart, saved sign-in
	Timeout       time.Duration            `yaml:"timeout"`
	Breaker       patterns.BreakerSettings `yaml:"breaker"`
}

// LoggingConfig configures logrus
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		Storefront: StorefrontConfig{
			Addr:         ":8080",
			RedisURL:     "redis://localhost:6379/0",
			DatabasePath: "storefront.db",
			TokenTTL:     7 * 24 * time.Hour,
			SeedCatalog:  true,
			Chat: ChatConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Payment: PaymentConfig{
			Addr:            ":8082",
			ProcessingDelay: 2 * time.Second,
		},
		Shop: ShopConfig{
			StorefrontURL: "http://localhost:8080",
			PaymentURL:    "http://localhost:8082",
			Home:          filepath.Join(home, ".pickle-shop"),
			Timeout:       patterns.DefaultTimeout,
			Breaker:       patterns.DefaultBreakerSettings(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Storefront.Addr = getEnv("STOREFRONT_ADDR", c.Storefront.Addr)
	c.Storefront.RedisURL = getEnv("REDIS_URL", c.Storefront.RedisURL)
	c.Storefront.DatabasePath = getEnv("STOREFRONT_DB", c.Storefront.DatabasePath)
	c.Storefront.AdminPassword = getEnv("ADMIN_PASSWORD", c.Storefront.AdminPassword)
	c.Storefront.Chat.APIKey = getEnv("GEMINI_API_KEY", c.Storefront.Chat.APIKey)
	if emails, ok := os.LookupEnv("ADMIN_EMAILS"); ok {
		c.Storefront.AdminEmails = SplitList(emails)
	}

	c.Payment.Addr = getEnv("PAYMENT_ADDR", c.Payment.Addr)

	c.Shop.StorefrontURL = getEnv("STOREFRONT_URL", c.Shop.StorefrontURL)
	c.Shop.PaymentURL = getEnv("PAYMENT_SERVICE_URL", c.Shop.PaymentURL)
	c.Shop.Home = getEnv("SHOP_HOME", c.Shop.Home)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

// Validate rejects configurations no binary can run with
func (c *Config) Validate() error {
	if c.Storefront.TokenTTL <= 0 {
		return fmt.Errorf("storefront.token_ttl must be positive")
	}
	if c.Payment.ProcessingDelay < 0 {
		return fmt.Errorf("payment.processing_delay must not be negative")
	}
	if c.Shop.Timeout <= 0 {
		return fmt.Errorf("shop.timeout must be positive")
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// SetupLogging applies the logging section to the standard logrus logger
func (c *Config) SetupLogging() {
	if c.Logging.Format == "text" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// SplitList splits a comma separated list, trimming blanks and lowercasing entries
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
