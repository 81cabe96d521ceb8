// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Backend  string `json:"backend"`
	Sessions int    `json:"sessions"`
}

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version    string
	backendURL string
	sessions   SessionStore
}

// NewHealthHandler creates a health handler reporting the configured
// equipment API and the number of open browser sessions.
func NewHealthHandler(version, backendURL string, sessions SessionStore) HealthHandler {
	return &HealthHandlerImpl{
		version:    version,
		backendURL: backendURL,
		sessions:   sessions,
	}
}

// HandleHealth reports liveness. It does not call the equipment API.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	status := HealthStatus{
		Status:  "ok",
		Version: h.version,
		Backend: h.backendURL,
	}
	if h.sessions != nil {
		status.Sessions = h.sessions.Count()
	}
	return c.JSON(http.StatusOK, status)
}
