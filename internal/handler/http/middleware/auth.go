package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdentityKey is the gin context key under which AuthMiddleware stores the
// authenticated identity hash.
const IdentityKey = "identity_hash"

// AccessTokenVerifier verifies a bearer token and returns the identity hash
// it was issued to.
type AccessTokenVerifier interface {
	VerifyAccessToken(tokenString string) (string, error)
}

// AuthMiddleware requires a valid bearer access token and stores its subject
// in the request context.
func AuthMiddleware(verifier AccessTokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		identityHash, err := verifier.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Debug("access token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		c.Set(IdentityKey, identityHash)
		c.Next()
	}
}

// RequireIdentityParam enforces that the :identity path parameter matches the
// authenticated subject. A mismatch is a 403, not a 404: the route exists,
// the caller just may not act on someone else's identity.
func RequireIdentityParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticated := c.GetString(IdentityKey)
		if authenticated == "" || c.Param(param) != authenticated {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied",
				"code":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}
