package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware handles request logging.
type LoggingMiddleware struct {
	logger zerolog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware() *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: log.Logger.With().Str("component", "api").Logger(),
	}
}

// NewLoggingMiddlewareWithLogger creates a new LoggingMiddleware with a custom logger.
func NewLoggingMiddlewareWithLogger(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger,
	}
}

// Logger returns a gin middleware that logs requests.
func (m *LoggingMiddleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		event := m.logger.Info()
		if status >= 400 && status < 500 {
			event = m.logger.Warn()
		} else if status >= 500 {
			event = m.logger.Error()
		}

		event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Msg("request completed")
	}
}

// RequestID assigns a request id, reusing the caller's X-Request-ID when
// present, and stores a request-scoped logger in the context.
func (m *LoggingMiddleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)
		c.Set("logger", m.logger.With().Str("request_id", requestID).Logger())

		c.Next()
	}
}

// GetRequestLogger retrieves the request-scoped logger from context.
func GetRequestLogger(c *gin.Context) zerolog.Logger {
	if logger, exists := c.Get("logger"); exists {
		return logger.(zerolog.Logger)
	}
	return log.Logger
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		return requestID.(string)
	}
	return ""
}
