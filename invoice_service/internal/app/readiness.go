package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// ReadinessCheck probes one dependency the service cannot serve without.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Ready runs all checks concurrently within timeout and answers 503 when any of them fails.
func Ready(checks []ReadinessCheck, timeout time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		eg, ctx := errgroup.WithContext(ctx)
		for _, c := range checks {
			eg.Go(func() error {
				if err := c.Check(ctx); err != nil {
					return fmt.Errorf("%s: %w", c.Name, err)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			logger.ErrorContext(r.Context(), "Readiness probe failed: dependency is not ready", "error", err)
			http.Error(w, "Service Unavailable: dependency is not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
