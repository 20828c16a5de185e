package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DateLayout is the calendar date format accepted in query parameters.
const DateLayout = "2006-01-02"

// ParseOptionalGte parses an integer query parameter that must be at least min.
// A missing parameter yields fallback.
func ParseOptionalGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, min, fallback int64) (int64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < min {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, raw))
		return 0, false
	}
	return value, true
}

// ParseDate parses a required YYYY-MM-DD query parameter as midnight UTC.
func ParseDate(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s url parameter is required", key))
		return time.Time{}, false
	}
	date, err := time.Parse(DateLayout, raw)
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s date: %s", key, raw))
		return time.Time{}, false
	}
	return date, true
}
