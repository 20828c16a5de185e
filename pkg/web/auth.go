package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/stockbook/pkg/auth"
)

// BearerAuth verifies the JWT in the Authorization header and stores the caller in the request context.
func BearerAuth(verifier auth.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || tokenString == "" {
				RespondError(w, logger, http.StatusUnauthorized, "Bearer token is required")
				return
			}

			principal, err := verifier.Verify(r.Context(), tokenString)
			switch {
			case errors.Is(err, auth.ErrMissingRole):
				logger.WarnContext(r.Context(), "Token rejected", "error", err)
				RespondError(w, logger, http.StatusForbidden, "Forbidden")
				return
			case err != nil:
				logger.WarnContext(r.Context(), "Token rejected", "error", err)
				RespondError(w, logger, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
