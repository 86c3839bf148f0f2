package app

import (
	"crypto/rsa"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// bearerAuth validates a bearer JWT on every viewer-facing request. It
// accepts RS256 (when a public key is configured) or HS256 (when an HMAC
// secret is configured); if neither is configured, auth is disabled, which
// is the expected local/test configuration.
type bearerAuth struct {
	rsaPublicKey *rsa.PublicKey
	hmacSecret   []byte
}

func newBearerAuth(rsaPublicKey *rsa.PublicKey, hmacSecret string) *bearerAuth {
	var secret []byte
	if hmacSecret != "" {
		secret = []byte(hmacSecret)
	}
	return &bearerAuth{rsaPublicKey: rsaPublicKey, hmacSecret: secret}
}

func (a *bearerAuth) enabled() bool {
	return a.rsaPublicKey != nil || len(a.hmacSecret) > 0
}

func (a *bearerAuth) middleware(next http.Handler) http.Handler {
	if !a.enabled() {
		return next
	}
	fn := func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerTokenFrom(r)
		if !ok {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		_, err := jwt.Parse(tokenStr, a.keyFunc, jwt.WithValidMethods([]string{"RS256", "HS256"}))
		if err != nil {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

func (a *bearerAuth) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.Alg() {
	case "RS256":
		if a.rsaPublicKey == nil {
			return nil, jwt.ErrTokenUnverifiable
		}
		return a.rsaPublicKey, nil
	case "HS256":
		if len(a.hmacSecret) == 0 {
			return nil, jwt.ErrTokenUnverifiable
		}
		return a.hmacSecret, nil
	default:
		return nil, jwt.ErrTokenUnverifiable
	}
}

func bearerTokenFrom(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}
