package middleware

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

const (
	SessionName    = "swaply_session"
	sessionUserKey = "user_id"
)

// Flash levels
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Flash is a one-shot message shown after a redirect
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func init() {
	gob.Register(Flash{})
}

// NewCookieStore returns a signed cookie store for the session
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionManager reads and writes the login session and its flash messages
type SessionManager struct {
	store sessions.Store
}

func NewSessionManager(store sessions.Store) *SessionManager {
	return &SessionManager{store: store}
}

// session returns the current session. A cookie that fails to decode yields a
// fresh session, which is what a tampered or rotated-key cookie should become.
func (m *SessionManager) session(c echo.Context) *sessions.Session {
	sess, _ := m.store.Get(c.Request(), SessionName)
	return sess
}

// Login binds the session to userID
func (m *SessionManager) Login(c echo.Context, userID uint) error {
	sess := m.session(c)
	sess.Values[sessionUserKey] = userID
	return sess.Save(c.Request(), c.Response())
}

// Logout expires the session cookie
func (m *SessionManager) Logout(c echo.Context) error {
	sess := m.session(c)
	delete(sess.Values, sessionUserKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// UserID returns the user bound to the session, if any
func (m *SessionManager) UserID(c echo.Context) (uint, bool) {
	id, ok := m.session(c).Values[sessionUserKey].(uint)
	return id, ok && id != 0
}

func (m *SessionManager) AddFlash(c echo.Context, level, message string) error {
	sess := m.session(c)
	sess.AddFlash(Flash{Level: level, Message: message})
	return sess.Save(c.Request(), c.Response())
}

// Flashes pops every pending flash message
func (m *SessionManager) Flashes(c echo.Context) ([]Flash, error) {
	sess := m.session(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return []Flash{}, nil
	}

	flashes := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if flash, ok := f.(Flash); ok {
			flashes = append(flashes, flash)
		}
	}
	return flashes, sess.Save(c.Request(), c.Response())
}
