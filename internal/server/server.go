// internal/server/server.go
//
// HTTP server construction and graceful shutdown.
//
// WriteTimeout must stay above the generator's per-call deadline, or the
// server cuts off update responses while the provider is still thinking.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// New constructs an *http.Server with timeouts sized for generator-backed
// handlers.  genTimeout is the configured per-call generator deadline.
func New(addr string, handler http.Handler, genTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: genTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 s.  A snapshot-then-write already in progress completes; only the
// HTTP response may be lost on a hard deadline.
func Run(srv *http.Server, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infow("shutting down", "drain", "30s")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
