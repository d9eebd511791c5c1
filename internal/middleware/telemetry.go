package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// RequestRecorder receives per-route RED measurements.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, op, status string, duration time.Duration)
	TrackInflight(ctx context.Context, op string) func()
}

// Telemetry wraps each request in a server span and records RED metrics
// keyed by the matched route.
func Telemetry(tracer trace.Tracer, rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		name := c.Request.Method + " " + route
		op := "http " + name

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		var done func()
		if rec != nil {
			done = rec.TrackInflight(ctx, op)
		}

		c.Next()

		code := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", code))
		status := "ok"
		if code >= 500 {
			status = "error"
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", code))
		}

		if rec != nil {
			done()
			rec.RecordRequest(ctx, op, status, time.Since(start))
		}
	}
}
