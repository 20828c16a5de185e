package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// ServeHTTP runs srv in g and shuts it down within timeout once ctx is done.
func ServeHTTP(ctx context.Context, g *errgroup.Group, name string, srv *http.Server, timeout time.Duration, logger *slog.Logger) {
	logger = logger.With("server", name)
	g.Go(func() error {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// ServeGRPC listens on addr and serves srv in g. Once ctx is done the server drains its
// calls, and is stopped hard when that takes longer than timeout.
func ServeGRPC(ctx context.Context, g *errgroup.Group, addr string, srv *grpc.Server, timeout time.Duration, logger *slog.Logger) {
	logger = logger.With("server", "grpc")
	g.Go(func() error {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC address %s: %w", addr, err)
		}
		logger.Info("Server listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server")
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			return nil
		case <-time.After(timeout):
			logger.Warn("Graceful stop timed out, forcing stop")
			srv.Stop()
			return errors.New("grpc server graceful stop timed out")
		}
	})
}
