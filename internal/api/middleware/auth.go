package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
)

// AuthMiddleware protects the admin routes with a static bearer token.
type AuthMiddleware struct {
	token string
}

// NewAuthMiddleware creates a new AuthMiddleware. An empty token rejects
// every request.
func NewAuthMiddleware(token string) *AuthMiddleware {
	return &AuthMiddleware{token: token}
}

// Authenticate returns a gin middleware that validates the Bearer token.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.token == "" {
			abortUnauthorized(c, "admin API token not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(m.token)) != 1 {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	respond(c, http.StatusUnauthorized, domainerrors.ErrCodeUnauthorized, message, "")
}
