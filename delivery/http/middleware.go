package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/types"
)

const requestContextKey = "request_context"

// RequestContextMiddleware builds the request context from inbound
// headers and attaches it to both the gin context and the request's
// context.Context so downstream clients propagate the correlation ID.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqCtx := types.NewRequestContext()

		if v := c.GetHeader("X-Correlation-ID"); v != "" {
			if id, err := uuid.Parse(v); err == nil {
				reqCtx.CorrelationID = types.CorrelationID(id)
			}
		}
		if v := c.GetHeader("X-Tenant-ID"); v != "" {
			if id, err := uuid.Parse(v); err == nil {
				reqCtx.TenantID = types.TenantID(id)
			}
		}
		if v := c.GetHeader("X-User-ID"); v != "" {
			if id, err := uuid.Parse(v); err == nil {
				userID := types.UserID(id)
				reqCtx.UserID = &userID
			}
		}
		if v := c.GetHeader("X-Workflow-ID"); v != "" {
			reqCtx.WorkflowID = types.WorkflowID(v)
		}
		if v := c.GetHeader("X-Session-ID"); v != "" {
			reqCtx.SessionID = types.SessionID(v)
		}
		reqCtx.IPAddress = c.ClientIP()

		c.Set(requestContextKey, reqCtx)
		ctx := context.WithValue(c.Request.Context(), types.RequestContextKey, reqCtx)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Correlation-ID", reqCtx.CorrelationID.String())
		c.Next()
	}
}

// RequestLoggerMiddleware logs each request with its outcome.
func RequestLoggerMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)),
		}
		if reqCtx := getRequestContext(c); reqCtx != nil {
			fields = append(fields, logging.String("correlation_id", reqCtx.CorrelationID.String()))
		}

		if c.Writer.Status() >= 500 {
			logger.Error("Request failed", fields...)
		} else {
			logger.Info("Request handled", fields...)
		}
	}
}

// MetricsMiddleware records per-request HTTP metrics.
func MetricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		collector.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

// TracingMiddleware opens a server span per request, continuing any
// trace propagated by the caller.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		spanName := c.Request.Method + " " + c.FullPath()
		ctx, span := tracer.Start(ctx, spanName,
			oteltrace.WithSpanKind(oteltrace.SpanKindServer),
			oteltrace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
			),
		)
		defer span.End()

		if reqCtx := getRequestContext(c); reqCtx != nil && span.SpanContext().IsValid() {
			reqCtx.TraceID = span.SpanContext().TraceID().String()
			reqCtx.SpanID = span.SpanContext().SpanID().String()
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

// RecoveryMiddleware converts panics into 500 responses.
func RecoveryMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Request handler panicked",
					logging.Any("panic", r),
					logging.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(500, gin.H{
					"error":   "internal_error",
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

func getRequestContext(c *gin.Context) *types.RequestContext {
	if v, ok := c.Get(requestContextKey); ok {
		if reqCtx, ok := v.(*types.RequestContext); ok {
			return reqCtx
		}
	}
	return nil
}
