package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ramadhanik/account-service/pkg/helpers"
	"github.com/ramadhanik/account-service/pkg/response"
)

const ctxAccountIDKey = "accountID"

// AccountID returns the authenticated account id set by Auth, or 0.
func AccountID(c *gin.Context) int64 {
	return c.GetInt64(ctxAccountIDKey)
}

// Auth validates the bearer access token and injects the account id into the
// context. Missing, malformed, expired, and badly signed tokens all produce
// the same 401; callers learn nothing about which check failed.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthenticated(c)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			abortUnauthenticated(c)
			return
		}
		id, err := claims.AccountID()
		if err != nil {
			abortUnauthenticated(c)
			return
		}
		c.Set(ctxAccountIDKey, id)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func abortUnauthenticated(c *gin.Context) {
	c.Abort()
	response.NonFieldErrors(c, http.StatusUnauthorized, "authentication credentials are missing or invalid")
}
