package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chemvis/dashboard/internal/api"
	"github.com/chemvis/dashboard/internal/backend"
	"github.com/chemvis/dashboard/internal/broadcast"
	"github.com/chemvis/dashboard/internal/config"
	"github.com/chemvis/dashboard/internal/dashboard"
	"github.com/chemvis/dashboard/internal/logging"
	"github.com/chemvis/dashboard/internal/render"
	"github.com/chemvis/dashboard/internal/session"
	"github.com/chemvis/dashboard/internal/upload"
	"github.com/chemvis/dashboard/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "chemvis.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Advanced.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event hub: redis when configured, in-process otherwise
	var hub broadcast.Hub
	hubMode := "memory"
	if cfg.Session.RedisAddr != "" {
		redisHub, err := broadcast.NewRedisHub(ctx, cfg.Session.RedisAddr, logger)
		if err != nil {
			logger.Error("cannot connect to redis", "addr", cfg.Session.RedisAddr, "error", err)
			os.Exit(1)
		}
		hub = redisHub
		hubMode = "redis " + cfg.Session.RedisAddr
	} else {
		hub = broadcast.NewMemoryHub()
	}
	defer hub.Close()

	sessionMgr := newSessionManager(cfg, hub, logger)
	defer sessionMgr.Close()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessionMgr.CleanupOldSessions(cfg.SessionTimeout()); n > 0 {
					logger.Info("session cleanup", "removed", n, "open", sessionMgr.Count())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	embeddedMode := web.HasEmbeddedFiles()
	e := newEcho(cfg, logger, embeddedMode)

	handlers := api.NewHandlers(&api.Dependencies{
		Sessions:       sessionMgr,
		Hub:            hub,
		Logger:         logger,
		Version:        Version,
		BackendURL:     cfg.Backend.BaseURL,
		SecureCookies:  cfg.Server.SecureCookies,
		WSMaxMessageKB: cfg.Advanced.WebSocketMaxMessageSize,
	})
	api.RegisterRoutes(e, handlers)

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", "error", err)
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(*configPath, cfg, hubMode)

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// newSessionManager wires one dashboard controller per browser session.
// View changes and notices go to the session's hub channel; notices are
// logged as well.
func newSessionManager(cfg *config.AppConfig, hub broadcast.Hub, logger *slog.Logger) *session.Manager {
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.BackendTimeout())

	maxUpload, _ := cfg.MaxUploadBytes()
	preparer := upload.NewPreparer(cfg.Upload.AllowedFileTypes, maxUpload)

	loc, _ := cfg.Location()
	history := render.HistoryFormatter{Location: loc, Layout: cfg.Display.TimeLayout}
	chart := render.ChartImage{Width: cfg.Display.ChartWidth, Height: cfg.Display.ChartHeight}

	factory := func(id string) *dashboard.Controller {
		sessionLogger := logger.With("session", id[:8])
		pub := broadcast.NewPublisher(hub, id, sessionLogger)
		return dashboard.New(dashboard.Options{
			Backend:         client,
			Preparer:        preparer,
			Notifier:        dashboard.MultiNotifier{dashboard.LogNotifier{Logger: sessionLogger}, pub},
			Observer:        pub,
			Logger:          sessionLogger,
			History:         history,
			ChartImage:      chart,
			LabelResetDelay: cfg.LabelResetDelay(),
		})
	}

	return session.NewManager(factory, session.Options{
		MaxSessions:     cfg.Session.MaxSessions,
		KeepAliveWindow: time.Duration(cfg.Session.KeepAliveMinutes) * time.Minute,
	}, logger)
}

func newEcho(cfg *config.AppConfig, logger *slog.Logger, embeddedMode bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.NewErrorHandler(logger)

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/api/ws"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/api/ws"
		},
		ErrorMessage: "Request timeout - backend took too long",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/ws" || path == "/api/chart.png" || path == "/api/export.xlsx"
		},
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := []string{
			"http://localhost:5173", "http://127.0.0.1:5173",
			"http://localhost:3000", "http://127.0.0.1:3000",
		}
		if embeddedMode {
			origins = splitOrigins(cfg.Server.AllowOrigins)
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			AllowCredentials: !containsWildcard(origins),
		}))
	}

	return e
}

func splitOrigins(raw string) []string {
	origins := strings.Split(raw, ",")
	out := origins[:0]
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func printBanner(configPath string, cfg *config.AppConfig, hubMode string) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Equipment Dashboard Server                      ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", cfg.Backend.BaseURL)
	fmt.Printf("║  Events:    %-46s║\n", hubMode)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
