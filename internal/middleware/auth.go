package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireBearer rejects requests whose Authorization header does not carry
// secret as a bearer token. An empty secret rejects everything, so an
// unconfigured cron endpoint stays closed.
func RequireBearer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="cron"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
