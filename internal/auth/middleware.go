package auth

import (
	"net/http"
	"strings"
)

// publicPaths need no token: authentication itself, and the websocket
// endpoint, which authenticates through its query parameter during the
// upgrade handshake.
var publicPaths = map[string]bool{
	"/login":    true,
	"/register": true,
	"/ws":       true,
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}

// Middleware rejects unauthenticated requests to protected paths before
// they reach a handler. Handlers still resolve the user themselves; this is
// the gateway-level gate.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublicPath(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := BearerToken(r)
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if _, err := s.ValidateToken(token); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
