package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/stockbook/pkg/config"
	"github.com/abgdnv/stockbook/pkg/web"
	"github.com/go-chi/chi/v5"
)

// NewHTTPServer binds handler to the configured port with the configured limits.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Timeout.Read,
		WriteTimeout:      cfg.Timeout.Write,
		IdleTimeout:       cfg.Timeout.Idle,
		ReadHeaderTimeout: cfg.Timeout.ReadHeader,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// NewChiRouter creates a router that tags every request with an id, logs it and recovers from panics.
// extra middlewares run after those three.
func NewChiRouter(logger *slog.Logger, extra ...func(http.Handler) http.Handler) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(web.RequestIDInjector, web.StructuredLogger(logger), web.Recoverer(logger))
	mux.Use(extra...)
	return mux
}
