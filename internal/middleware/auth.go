package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/manishonc/car-rental/pkg/problem"
)

// publicPrefixes are served without an API key.
var publicPrefixes = []string{"/health", "/readyz", "/metrics", "/docs"}

// APIKey requires the shared key in X-API-Key or an Authorization bearer header.
func APIKey(apiKey string) func(http.Handler) http.Handler {
	apiKeyBytes := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if subtle.ConstantTimeCompare([]byte(key), apiKeyBytes) != 1 {
				problem.Write(w, http.StatusUnauthorized, "Unauthorized", "Invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isPublic(path string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
