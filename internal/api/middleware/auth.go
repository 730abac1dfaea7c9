package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/example/unique-shop/internal/auth"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

type contextKey string

const (
	AdminContextKey   contextKey = "admin"
	SessionContextKey contextKey = "session"
	NewSessionKey     contextKey = "new_session"
)

// AdminAuth guards back-office routes with HTTP basic auth checked against a
// bcrypt hash.
func AdminAuth(creds auth.AdminCredentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !creds.Verify(user, password) {
				respondError(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(withAdmin(r.Context(), user)))
		})
	}
}
