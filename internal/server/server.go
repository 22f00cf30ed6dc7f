// Package server runs an HTTP handler until its context ends.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long in-flight requests get to finish
var ShutdownTimeout = 10 * time.Second

// Run serves handler on addr and shuts down gracefully once ctx is done
func Run(ctx context.Context, name, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{
			"service": name,
			"addr":    addr,
		}).Info("Service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		log.WithField("service", name).Info("Service shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
