// Package middleware provides HTTP middleware for the admin API.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/assistant-bot/internal/api/dto"
	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
)

// ErrCodeMethodNotAllowed is returned for a known route with another method.
const ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"

// ErrorMiddleware turns panics and domain errors into JSON responses.
type ErrorMiddleware struct{}

// NewErrorMiddleware creates a new ErrorMiddleware.
func NewErrorMiddleware() *ErrorMiddleware {
	return &ErrorMiddleware{}
}

// Recovery returns a gin middleware that recovers from panics.
func (m *ErrorMiddleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log := GetRequestLogger(c)
				log.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("path", c.Request.URL.Path).
					Msg("Panic recovered")

				respond(c, http.StatusInternalServerError, domainerrors.ErrCodeInternal, "internal server error", "")
			}
		}()
		c.Next()
	}
}

// HandleError aborts the request with the response matching err.
// Upstream failures are expected and logged as warnings.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	log := GetRequestLogger(c)

	domainErr, ok := domainerrors.GetDomainError(err)
	if !ok {
		log.Error().Err(err).Msg("Unhandled error")
		respond(c, http.StatusInternalServerError, domainerrors.ErrCodeInternal, "internal server error", "")
		return
	}

	switch {
	case domainErr.HTTPStatus >= http.StatusInternalServerError && domainerrors.IsUpstream(err):
		log.Warn().Err(err).Msg("Upstream failure")
	case domainErr.HTTPStatus >= http.StatusInternalServerError:
		log.Error().Err(err).Msg("Request failed")
	}
	respond(c, domainErr.HTTPStatus, domainErr.Code, domainErr.Message, domainErr.Details)
}

// NotFound returns a 404 handler.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusNotFound, domainerrors.ErrCodeNotFound, "resource not found", c.Request.URL.Path)
	}
}

// MethodNotAllowed returns a 405 handler.
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed", c.Request.Method)
	}
}

func respond(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: GetRequestID(c),
	})
}
