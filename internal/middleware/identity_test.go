package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(secret))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, CallerID(c))
	})
	return r
}

func whoami(t *testing.T, r *gin.Engine, mutate func(*http.Request)) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestIdentityHeaderWins(t *testing.T) {
	r := identityRouter("")

	got := whoami(t, r, func(req *http.Request) {
		req.Header.Set("userid", "alice")
		req.Header.Set("x-user-id", "bob")
	})
	assert.Equal(t, "alice", got)

	got = whoami(t, r, func(req *http.Request) {
		req.Header.Set("x-user-id", "bob")
	})
	assert.Equal(t, "bob", got)
}

func TestIdentityBearerSubject(t *testing.T) {
	const secret = "test-secret"
	r := identityRouter(secret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "carol",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	got := whoami(t, r, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signed)
	})
	assert.Equal(t, "carol", got)

	// explicit header still beats the token
	got = whoami(t, r, func(req *http.Request) {
		req.Header.Set("userid", "alice")
		req.Header.Set("Authorization", "Bearer "+signed)
	})
	assert.Equal(t, "alice", got)

	// a garbage token falls back to the client address
	got = whoami(t, r, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer not-a-token")
	})
	assert.NotEqual(t, "carol", got)
	assert.NotEmpty(t, got)
}

func TestIdentityFallsBackToClientAddress(t *testing.T) {
	r := identityRouter("")

	// httptest requests carry a remote address, so identity is never empty
	got := whoami(t, r, nil)
	assert.NotEmpty(t, got)
}

func TestCallerIDWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, AnonymousCaller, CallerID(c))
}
