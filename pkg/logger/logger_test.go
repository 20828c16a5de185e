package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/abgdnv/stockbook/pkg/auth"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestContextHandler_Handle(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	testCases := []struct {
		name        string
		ctx         context.Context
		expectTrace bool
	}{
		{name: "with span", ctx: trace.ContextWithSpanContext(context.Background(), spanCtx), expectTrace: true},
		{name: "without span", ctx: context.Background(), expectTrace: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var buf bytes.Buffer
			log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")

			// when
			log.InfoContext(tc.ctx, "message")

			// then
			var record map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			assert.Equal(t, "test", record["component"])
			if tc.expectTrace {
				assert.Equal(t, traceID.String(), record["trace_id"])
				assert.Equal(t, spanID.String(), record["span_id"])
			} else {
				assert.NotContains(t, record, "trace_id")
			}
		})
	}
}

func TestContextHandler_RequestAndSubject(t *testing.T) {
	// given
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	ctx = auth.WithPrincipal(ctx, auth.Principal{Subject: "clerk-7"})

	// when
	log.InfoContext(ctx, "Invoice created")

	// then
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-42", record["request_id"])
	assert.Equal(t, "clerk-7", record["subject"])
}
