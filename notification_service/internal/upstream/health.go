// Package upstream checks the health of the invoice service before the notifier reports ready.
package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type HealthChecker struct {
	client  healthpb.HealthClient
	service string
	logger  *slog.Logger
}

// NewHealthChecker queries service on client; an empty service checks the whole server.
func NewHealthChecker(client healthpb.HealthClient, service string, logger *slog.Logger) *HealthChecker {
	return &HealthChecker{client: client, service: service, logger: logger.With("component", "upstream")}
}

// Check returns nil only when the upstream reports SERVING.
func (h *HealthChecker) Check(ctx context.Context) error {
	resp, err := h.client.Check(ctx, &healthpb.HealthCheckRequest{Service: h.service})
	if err != nil {
		return fmt.Errorf("health check of %q failed: %w", h.service, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q is %s", h.service, resp.GetStatus())
	}
	return nil
}

// WaitReady polls Check every interval until it succeeds or ctx is done.
func (h *HealthChecker) WaitReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		err := h.Check(ctx)
		if err == nil {
			h.logger.InfoContext(ctx, "Upstream is serving", "service", h.service)
			return nil
		}
		h.logger.WarnContext(ctx, "Upstream is not ready yet", "service", h.service, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
