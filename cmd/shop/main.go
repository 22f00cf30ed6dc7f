// Command shop is the shopper client of the pickle storefront. It keeps the
// guest cart and the saved sign-in on the device and talks to the
// storefront service for everything else.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/cart"
	"github.com/ashendes/pickle-storefront/internal/checkout"
	"github.com/ashendes/pickle-storefront/internal/config"
	"github.com/ashendes/pickle-storefront/internal/docstore"
	"github.com/ashendes/pickle-storefront/internal/identity"
	"github.com/ashendes/pickle-storefront/internal/localstore"
	"github.com/ashendes/pickle-storefront/internal/patterns"
	"github.com/ashendes/pickle-storefront/internal/remote"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "shop",
	Short: "Browse and order pickles from the terminal",
	Long: `shop is the command line storefront for handcrafted pickles.

Your cart is kept on this device until you sign in; after that it follows
your account. Totals include 5% tax, and shipping is free above 500.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.SetupLogging()
		switch {
		case verbose:
			log.SetLevel(log.DebugLevel)
		case log.GetLevel() > log.WarnLevel:
			log.SetLevel(log.WarnLevel)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	},
}

func init() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetLevel(log.WarnLevel)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("SHOP_CONFIG"), "path to YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return userErrorf("%v\nUsage: %s", err, cmd.UseLine())
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, friendlyError(err))
		os.Exit(1)
	}
}

type configKey struct{}

func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

// shop is one run of the client: the device store, the storefront client,
// the signed-in identity and the cart session following it.
type shop struct {
	cfg         *config.Config
	local       *localstore.Store
	remote      *remote.Client
	tracker     *identity.Tracker
	session     *cart.Session
	unsubscribe func()
}

func openShop(ctx context.Context) (*shop, error) {
	cfg := configFrom(ctx)

	local, err := localstore.Open(cfg.Shop.Home)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	rc := remote.NewClient(cfg.Shop.StorefrontURL, cfg.Shop.Breaker).SetTimeout(cfg.Shop.Timeout)
	tracker := identity.NewTracker(rc, local)

	if _, err := tracker.Restore(ctx); err != nil {
		log.WithError(err).Warn("Could not restore sign-in, continuing as guest")
	}

	session := cart.NewSession(local, rc, cart.Options{
		LoadTimeout:  cfg.Shop.Timeout,
		WriteTimeout: cfg.Shop.Timeout,
	})
	unsubscribe := tracker.Subscribe(session.SetIdentity)

	s := &shop{
		cfg:         cfg,
		local:       local,
		remote:      rc,
		tracker:     tracker,
		session:     session,
		unsubscribe: unsubscribe,
	}
	if err := session.AwaitLoaded(ctx); err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return s, nil
}

// close flushes pending cart writes and releases the device store
func (s *shop) close(ctx context.Context) {
	if err := s.session.Sync(ctx); err != nil {
		log.WithError(err).Warn("Cart changes may not have been saved")
	}
	s.unsubscribe()
	if err := s.session.Close(); err != nil {
		log.WithError(err).Warn("Failed to close cart session")
	}
	if err := s.local.Close(); err != nil {
		log.WithError(err).Warn("Failed to close local store")
	}
}

// withShop adapts a command body that needs an open shop
func withShop(run func(cmd *cobra.Command, s *shop, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openShop(ctx)
		if err != nil {
			return err
		}
		defer s.close(ctx)
		return run(cmd, s, args)
	}
}

// friendlyError turns an error into a message fit for shoppers
func friendlyError(err error) string {
	var (
		verr *checkout.ValidationError
		uerr *userError
		serr *remote.StatusError
	)
	switch {
	case errors.As(err, &uerr):
		return uerr.msg
	case errors.As(err, &verr):
		return "Please check your details:\n  " + joinFields(verr.Fields)
	case errors.Is(err, checkout.ErrNotSignedIn):
		return "Please sign in to place an order."
	case errors.Is(err, checkout.ErrEmptyCart):
		return "Your cart is empty."
	case errors.Is(err, checkout.ErrPaymentDeclined):
		return "Your payment was declined. Your cart has been kept; please try another payment method."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, auth.ErrEmailNotVerified):
		return "Please verify your email address before signing in."
	case errors.Is(err, auth.ErrEmailTaken):
		return "An account with this email already exists."
	case errors.Is(err, auth.ErrInvalidCode):
		return "That verification code is not valid."
	case errors.Is(err, docstore.ErrNotFound):
		return "We couldn't find that product."
	case errors.Is(err, auth.ErrInvalidToken):
		return "You are not signed in with access to this. Please sign in again."
	case errors.As(err, &serr) && serr.Code == http.StatusForbidden:
		return "Your account is not allowed to do that."
	case errors.Is(err, patterns.ErrUnavailable):
		return "The store is temporarily unavailable. Please try again in a moment."
	}
	log.WithError(err).Debug("Command failed")
	return "Something went wrong. Please try again."
}

// userError is a mistake in what the shopper typed, shown as is
type userError struct {
	msg string
}

func (e *userError) Error() string {
	return e.msg
}

func userErrorf(format string, args ...interface{}) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

// argsBetween is cobra.RangeArgs with a shopper-facing message
func argsBetween(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return userErrorf("Usage: %s", cmd.UseLine())
		}
		return nil
	}
}
