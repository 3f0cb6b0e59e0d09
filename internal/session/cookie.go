package session

import (
	"context"
	"net/http"
	"time"

	"github.com/desertthunder/roomcast/internal/shared"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the opaque session id.
const CookieName = "roomcast_session"

const cookieMaxAge = 14 * 24 * time.Hour

type contextKey struct{}

// CookieOpts configures the session cookie.
type CookieOpts struct {
	Secure bool
	MaxAge time.Duration
}

// Middleware makes sure every request carries a session id, minting a new one (and setting
// the cookie) when the request has none or an invalid one. Handlers read it with [FromContext].
func Middleware(opts CookieOpts) func(http.Handler) http.Handler {
	if opts.MaxAge <= 0 {
		opts.MaxAge = cookieMaxAge
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(CookieName); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}

			if id == "" {
				id = shared.GenerateID()
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(opts.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// WithID returns a copy of ctx carrying session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the session id set by [Middleware], or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
