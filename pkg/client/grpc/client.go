package grpc

import (
	"fmt"
	"log/slog"

	"github.com/abgdnv/stockbook/pkg/client/grpc/interceptors"
	"github.com/abgdnv/stockbook/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// NewClient dials target with the timeout, retry and circuit breaker interceptors in that order.
// The retry interceptor sits inside the timeout so every attempt shares one deadline.
func NewClient(cfg config.GrpcClientConfig, resilience config.ResilienceConfig, logger *slog.Logger, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(
			interceptors.UnaryClientTimeoutInterceptor(cfg.Timeout),
			interceptors.NewRetryInterceptor(resilience.Retry),
			interceptors.NewCircuitBreaker(resilience.CircuitBreaker, logger.With("component", "grpc-client", "target", cfg.Addr)),
		),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, extra...)

	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client for %s: %w", cfg.Addr, err)
	}
	return conn, nil
}
