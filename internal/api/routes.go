// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/chemvis/dashboard/internal/broadcast"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions       SessionStore
	Hub            broadcast.Hub
	Logger         *slog.Logger
	Version        string
	BackendURL     string
	SecureCookies  bool
	WSMaxMessageKB int
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Auth      AuthHandler
	Upload    UploadHandler
	Dashboard DashboardHandler
	Events    EventHandler
	Session   echo.MiddlewareFunc
	Existing  echo.MiddlewareFunc
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.BackendURL, deps.Sessions),
		Auth:      NewAuthHandler(),
		Upload:    NewUploadHandler(),
		Dashboard: NewDashboardHandler(),
		Events:    NewWebSocketHandler(deps.Hub, deps.WSMaxMessageKB, logger),
		Session:   SessionMiddleware(deps.Sessions, CookieConfig{Secure: deps.SecureCookies}),
		Existing:  RequireSession(deps.Sessions),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Everything else runs against the caller's session
	sessionGroup := apiGroup.Group("", handlers.Session)

	sessionGroup.POST("/login", handlers.Auth.HandleLogin)
	sessionGroup.POST("/logout", handlers.Auth.HandleLogout)

	sessionGroup.GET("/history", handlers.Dashboard.HandleHistory)
	sessionGroup.POST("/upload", handlers.Upload.HandleUpload)
	sessionGroup.POST("/datasets/:id/view", handlers.Dashboard.HandleView)
	sessionGroup.GET("/dashboard", handlers.Dashboard.HandleSnapshot)
	sessionGroup.GET("/chart.png", handlers.Dashboard.HandleChartImage)
	sessionGroup.GET("/report", handlers.Dashboard.HandleReport)
	sessionGroup.GET("/export.xlsx", handlers.Dashboard.HandleExport)

	// The upgrade response cannot set a cookie, so the stream only joins
	// a session opened by an earlier request
	apiGroup.GET("/ws", handlers.Events.HandleEvents, handlers.Existing)
}
