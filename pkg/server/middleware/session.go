package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the session cookie.
const SessionName = "marathon"

// Preferences are operator choices remembered between visits.
type Preferences struct {
	Email   string `json:"email"`
	Product string `json:"product"`
	RunMode string `json:"run_mode"`
}

// Sessions keeps Preferences in a signed cookie.
type Sessions struct {
	store sessions.Store
}

// NewSessions signs cookies with secret.
func NewSessions(secret string) *Sessions {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// Middleware loads the caller's Preferences into the request context. A
// missing or tampered cookie yields empty preferences.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), preferencesKey, s.Load(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Load reads the caller's Preferences from the session cookie.
func (s *Sessions) Load(r *http.Request) Preferences {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		return Preferences{}
	}
	var p Preferences
	p.Email, _ = session.Values["email"].(string)
	p.Product, _ = session.Values["product"].(string)
	p.RunMode, _ = session.Values["run_mode"].(string)
	return p
}

// Save stores p in the session cookie. Empty fields keep their previous
// value.
func (s *Sessions) Save(w http.ResponseWriter, r *http.Request, p Preferences) error {
	// Get returns a fresh session alongside a decode error
	session, _ := s.store.Get(r, SessionName)
	if p.Email != "" {
		session.Values["email"] = p.Email
	}
	if p.Product != "" {
		session.Values["product"] = p.Product
	}
	if p.RunMode != "" {
		session.Values["run_mode"] = p.RunMode
	}
	return session.Save(r, w)
}

// PreferencesFrom returns the Preferences loaded by Sessions.Middleware.
func PreferencesFrom(ctx context.Context) Preferences {
	p, _ := ctx.Value(preferencesKey).(Preferences)
	return p
}
