// Package session owns the lisToken cookie: an HTTP-only, SameSite=Lax cookie holding the
// raw session token. Only its hash is ever stored server-side.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
)

const DefaultCookieName = "lisToken"

type Manager struct {
	name   string
	secure bool
	clock  clock.Clock
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		name:   DefaultCookieName,
		secure: cfg.AuthCookieSecure,
		clock:  clock.SystemClock{},
	}
}

// WithClock swaps the time source used to compute Max-Age.
func (m *Manager) WithClock(c clock.Clock) *Manager {
	if c != nil {
		m.clock = c
	}
	return m
}

func (m *Manager) CookieName() string {
	return m.name
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if c == nil || c.Request == nil {
		return "", false
	}
	cookie, err := c.Request.Cookie(m.name)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(cookie.Value)
	return token, token != ""
}

// Set writes the session cookie. A session already past expiresAt clears the cookie instead.
func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(m.clock.Now()) / time.Second)
	if maxAge <= 0 {
		m.Clear(c)
		return
	}
	cookie := m.cookie(token, maxAge)
	cookie.Expires = expiresAt.UTC()
	http.SetCookie(c.Writer, cookie)
}

// Clear expires the cookie on the client (Max-Age<0).
func (m *Manager) Clear(c *gin.Context) {
	cookie := m.cookie("", -1)
	cookie.Expires = time.Unix(0, 0).UTC()
	http.SetCookie(c.Writer, cookie)
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
