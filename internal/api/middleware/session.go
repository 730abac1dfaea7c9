package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type SessionConfig struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// Session makes sure every request carries a visitor session id. Unknown or
// malformed cookie values are replaced with a fresh random id.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					sid = id.String()
				}
			}
			ctx := r.Context()
			if sid == "" {
				sid = uuid.NewString()
				ctx = context.WithValue(ctx, NewSessionKey, true)
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, SessionContextKey, sid)))
		})
	}
}

// GetSessionID returns the visitor session id, or "" outside the Session middleware
func GetSessionID(ctx context.Context) string {
	sid, _ := ctx.Value(SessionContextKey).(string)
	return sid
}

// IsNewSession reports whether the session id was minted for this request
// rather than read from the visitor's cookie.
func IsNewSession(ctx context.Context) bool {
	isNew, _ := ctx.Value(NewSessionKey).(bool)
	return isNew
}

func withAdmin(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, AdminContextKey, user)
}

// GetAdmin returns the authenticated admin user name
func GetAdmin(ctx context.Context) string {
	user, _ := ctx.Value(AdminContextKey).(string)
	return user
}
