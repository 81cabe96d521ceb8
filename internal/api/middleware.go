// middleware.go - Browser session cookie handling
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chemvis/dashboard/internal/dashboard"
	"github.com/chemvis/dashboard/internal/session"
)

// SessionCookie is the name of the cookie carrying the session id.
const SessionCookie = "chemvis_session"

const sessionContextKey = "session"

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Secure bool
}

// SessionMiddleware attaches the caller's session to the request context,
// opening a new one (and setting its cookie) when the cookie is missing or
// refers to a session that no longer exists.
func SessionMiddleware(store SessionStore, cfg CookieConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				if state, ok := store.Get(cookie.Value); ok {
					c.Set(sessionContextKey, state)
					return next(c)
				}
			}

			state := store.Create()
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    state.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(sessionContextKey, state)
			return next(c)
		}
	}
}

// RequireSession attaches an existing session and never opens one. It
// guards routes that cannot deliver a Set-Cookie header, such as the
// websocket upgrade.
func RequireSession(store SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return NewUnauthorizedError("no session")
			}
			state, ok := store.Get(cookie.Value)
			if !ok {
				return NewUnauthorizedError("unknown session")
			}
			c.Set(sessionContextKey, state)
			return next(c)
		}
	}
}

// sessionFrom returns the session attached by SessionMiddleware.
func sessionFrom(c echo.Context) (*session.State, error) {
	state, ok := c.Get(sessionContextKey).(*session.State)
	if !ok || state == nil {
		return nil, NewInternalError("session middleware not installed", nil)
	}
	return state, nil
}

// controllerFrom returns the dashboard controller of the caller's session.
func controllerFrom(c echo.Context) (*dashboard.Controller, error) {
	state, err := sessionFrom(c)
	if err != nil {
		return nil, err
	}
	return state.Controller, nil
}
