package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const sessionKey = "todoSession"

// SessionMiddleware acquires a storage session before the handler runs and
// releases it once the handler chain returns, whatever the outcome.
func SessionMiddleware(store Store) gin.HandlerFunc {
	tracer := otel.Tracer("session-middleware")

	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "Acquire Session")
		session, err := store.Acquire(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "acquire session")
			span.End()
			abortWithError(c, err)
			return
		}
		span.End()
		defer session.Close()

		c.Set(sessionKey, session)
		c.Next()
	}
}

func GetSession(c *gin.Context) (Session, error) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, errors.New("no session on request")
	}
	session, ok := v.(Session)
	if !ok {
		return nil, errors.New("request session has unexpected type")
	}
	return session, nil
}

// todoChanges names the write routes counted by todo_changes_total.
var todoChanges = map[string]string{
	http.MethodPost + " /todos/":       "create",
	http.MethodPut + " /todos/:id/":    "update",
	http.MethodPatch + " /todos/:id/":  "update",
	http.MethodDelete + " /todos/:id/": "delete",
	http.MethodDelete + " /todos/":     "delete_all",
}

func MetricsMiddleware(mp metric.MeterProvider) gin.HandlerFunc {
	meter := mp.Meter("todo-api")

	requestCounter, _ := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)

	requestDuration, _ := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)

	changeCounter, _ := meter.Int64Counter(
		"todo_changes_total",
		metric.WithDescription("Successful writes to the todo table, by operation"),
	)

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		ctx := c.Request.Context()
		route := c.FullPath()
		status := c.Writer.Status()

		attrs := metric.WithAttributes(
			semconv.HTTPRequestMethodKey.String(c.Request.Method),
			semconv.HTTPRouteKey.String(route),
			semconv.HTTPResponseStatusCodeKey.Int(status),
		)

		requestCounter.Add(ctx, 1, attrs)
		requestDuration.Record(ctx, duration, attrs)

		if op, ok := todoChanges[c.Request.Method+" "+route]; ok && status == http.StatusOK {
			changeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
		}
	}
}

// AccessLogMiddleware logs one line per request, plus any errors handlers
// attached to the context.
func AccessLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		}

		if status >= http.StatusInternalServerError {
			for _, e := range c.Errors.ByType(gin.ErrorTypePrivate) {
				attrs = append(attrs, "error", e.Err)
			}
			logger.Error("request failed", attrs...)
			return
		}
		logger.Info("request", attrs...)
	}
}
