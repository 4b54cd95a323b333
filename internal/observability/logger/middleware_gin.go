package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/shelflife/internal/observability/context"
	"go.uber.org/zap"
)

const (
	DeviceIDHeader  = "X-Device-ID"
	RequestIDHeader = "X-Request-Id"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps the last handler error to (type, code) log fields.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware seeds the request context with the request id, the calling
// device and the client IP, then logs one line per request.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := c.Request.Context()
		ctx = obscontext.WithRequestID(ctx, ensureRequestID(c))
		ctx = obscontext.WithDeviceID(ctx, c.GetHeader(DeviceIDHeader))
		ctx = obscontext.WithClientIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := append(requestFields(c, route, status, start), errorFields(cfg, c, status)...)

		log := FromContext(c.Request.Context())
		switch {
		case isProbe(route):
			log.Debug("http_request", fields...)
		case status >= http.StatusInternalServerError:
			log.Error("http_request", fields...)
		default:
			log.Info("http_request", fields...)
		}
	}
}

func requestFields(c *gin.Context, route string, status int, start time.Time) []zap.Field {
	return []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
		zap.Int("bytes_out", max(c.Writer.Size(), 0)),
	}
}

func errorFields(cfg MiddlewareConfig, c *gin.Context, status int) []zap.Field {
	lastErr := c.Errors.Last()
	if lastErr == nil {
		return nil
	}

	var errorType, errorCode string
	if cfg.ErrorClassifier != nil {
		errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
	}
	fields := []zap.Field{
		zap.String("error_type", errorType),
		zap.String("error_code", errorCode),
	}
	if status >= http.StatusInternalServerError || cfg.Debug {
		fields = append(fields, zap.Error(lastErr.Err))
	}
	return fields
}

// ensureRequestID keeps a caller supplied id so mobile clients can correlate
// retries, and echoes it back.
func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
	if requestID == "" || len(requestID) > 128 {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(RequestIDHeader, requestID)
	return requestID
}

func isProbe(route string) bool {
	return route == "/metrics" || route == "/health"
}
