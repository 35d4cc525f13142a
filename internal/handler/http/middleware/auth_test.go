package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct {
	subject string
	err     error
}

func (v stubVerifier) VerifyAccessToken(string) (string, error) {
	return v.subject, v.err
}

func protectedRouter(verifier AccessTokenVerifier) *gin.Engine {
	router := gin.New()
	group := router.Group("/", AuthMiddleware(verifier, zap.NewNop()))
	group.GET("/me/:identity", RequireIdentityParam("identity"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"identity": c.GetString(IdentityKey)})
	})
	return router
}

func perform(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me/id-hash", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	router := protectedRouter(stubVerifier{subject: "id-hash"})
	rec := perform(router, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_WrongScheme(t *testing.T) {
	router := protectedRouter(stubVerifier{subject: "id-hash"})
	rec := perform(router, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RejectedToken(t *testing.T) {
	router := protectedRouter(stubVerifier{err: errors.New("expired")})
	rec := perform(router, "Bearer some-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_ValidTokenExposesIdentity(t *testing.T) {
	router := protectedRouter(stubVerifier{subject: "id-hash"})
	rec := perform(router, "Bearer some-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "id-hash")
}

func TestRequireIdentityParam_MismatchIsForbidden(t *testing.T) {
	// Token verifies as a different subject than the path parameter.
	router := protectedRouter(stubVerifier{subject: "someone-else"})
	rec := perform(router, "Bearer some-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}
