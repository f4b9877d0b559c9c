package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxCallerKey = "caller_id"

// AnonymousCaller is the sentinel identity used when a request carries
// nothing that identifies the caller.
const AnonymousCaller = "anonymous"

// Identity resolves the caller identity for every request and attaches it to
// the request context. Explicit userid / x-user-id headers win, then the
// subject of a verified bearer token when a secret is configured, then the
// client address. Identity is an opaque string here; nothing below the
// gateway treats it as authenticated.
func Identity(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("userid"))
		if id == "" {
			id = strings.TrimSpace(c.GetHeader("x-user-id"))
		}
		if id == "" && jwtSecret != "" {
			id = subjectFromBearer(c.GetHeader("Authorization"), jwtSecret)
		}
		if id == "" {
			id = c.ClientIP()
		}
		if id == "" {
			id = AnonymousCaller
		}

		c.Set(ctxCallerKey, id)
		c.Next()
	}
}

// CallerID returns the identity attached by Identity, or the anonymous
// sentinel when the middleware did not run.
func CallerID(c *gin.Context) string {
	v, ok := c.Get(ctxCallerKey)
	if !ok {
		return AnonymousCaller
	}
	id, _ := v.(string)
	if id == "" {
		return AnonymousCaller
	}
	return id
}

func subjectFromBearer(header, secret string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	raw := strings.TrimSpace(header[len("Bearer "):])

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return claims.Subject
}
