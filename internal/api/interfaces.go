// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/chemvis/dashboard/internal/session"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// AuthHandler handles login and logout
type AuthHandler interface {
	HandleLogin(c echo.Context) error
	HandleLogout(c echo.Context) error
}

// UploadHandler handles dataset uploads
type UploadHandler interface {
	HandleUpload(c echo.Context) error
}

// DashboardHandler handles history, dataset view and downloads
type DashboardHandler interface {
	HandleHistory(c echo.Context) error
	HandleView(c echo.Context) error
	HandleSnapshot(c echo.Context) error
	HandleChartImage(c echo.Context) error
	HandleReport(c echo.Context) error
	HandleExport(c echo.Context) error
}

// EventHandler streams view events to the browser
type EventHandler interface {
	HandleEvents(c echo.Context) error
}

// SessionStore defines the interface for session management
// This allows mocking in tests
type SessionStore interface {
	Create() *session.State
	Get(id string) (*session.State, bool)
	Delete(id string) bool
	Count() int
}
