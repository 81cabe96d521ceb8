// Package config provides YAML-based configuration for the dashboard server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"
)

// AppConfig is the root of the configuration file.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Session  SessionConfig  `yaml:"session"`
	Upload   UploadConfig   `yaml:"upload"`
	Display  DisplayConfig  `yaml:"display"`
	Advanced AdvancedConfig `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           int    `yaml:"port"`
	BindAddress    string `yaml:"bind_address"`
	EnableCORS     bool   `yaml:"enable_cors"`
	AllowOrigins   string `yaml:"allow_origins"`
	ReadTimeout    int    `yaml:"read_timeout_seconds"`
	WriteTimeout   int    `yaml:"write_timeout_seconds"`
	IdleTimeout    int    `yaml:"idle_timeout_seconds"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
	BodyLimit      string `yaml:"body_limit"`
	SecureCookies  bool   `yaml:"secure_cookies"`
}

// BackendConfig points at the equipment API.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SessionConfig contains browser session settings
type SessionConfig struct {
	MaxSessions            int    `yaml:"max_sessions"`
	TimeoutMinutes         int    `yaml:"timeout_minutes"`
	KeepAliveMinutes       int    `yaml:"keep_alive_minutes"`
	CleanupIntervalMinutes int    `yaml:"cleanup_interval_minutes"`
	RedisAddr              string `yaml:"redis_addr"`
}

// UploadConfig contains upload preparation settings
type UploadConfig struct {
	AllowedFileTypes string `yaml:"allowed_file_types"`
	MaxUploadSize    string `yaml:"max_upload_size"`
}

// DisplayConfig controls how values are shown
type DisplayConfig struct {
	Timezone          string `yaml:"timezone"`
	TimeLayout        string `yaml:"time_layout"`
	LabelResetSeconds int    `yaml:"label_reset_seconds"`
	ChartWidth        int    `yaml:"chart_width"`
	ChartHeight       int    `yaml:"chart_height"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `yaml:"log_level"`
	EnableRequestLogging    bool   `yaml:"enable_request_logging"`
	WebSocketMaxMessageSize int    `yaml:"websocket_max_message_size_kb"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           8089,
			BindAddress:    "0.0.0.0",
			EnableCORS:     true,
			AllowOrigins:   "*",
			ReadTimeout:    30,
			WriteTimeout:   30,
			IdleTimeout:    120,
			RequestTimeout: 60,
			BodyLimit:      "20M",
		},
		Backend: BackendConfig{
			BaseURL:        "http://127.0.0.1:8000/api",
			TimeoutSeconds: 30,
		},
		Session: SessionConfig{
			MaxSessions:            100,
			TimeoutMinutes:         30,
			KeepAliveMinutes:       5,
			CleanupIntervalMinutes: 5,
		},
		Upload: UploadConfig{
			AllowedFileTypes: ".csv,.gz,.xlsx",
			MaxUploadSize:    "10M",
		},
		Display: DisplayConfig{
			Timezone:          "Local",
			TimeLayout:        "Jan 2, 2006 15:04:05",
			LabelResetSeconds: 2,
			ChartWidth:        480,
			ChartHeight:       480,
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			EnableRequestLogging:    true,
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadConfig loads configuration from a YAML file, creating it with the
// defaults when it does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Missing keys keep their defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Equipment dashboard configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if apiURL := os.Getenv("CHEMVIS_API_URL"); apiURL != "" {
		c.Backend.BaseURL = apiURL
	}

	if redisAddr := os.Getenv("CHEMVIS_REDIS_ADDR"); redisAddr != "" {
		c.Session.RedisAddr = redisAddr
	}

	if level := os.Getenv("CHEMVIS_LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// Validate checks values that cannot be defaulted silently.
func (c *AppConfig) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("display.timezone: %w", err)
	}
	if _, err := c.MaxUploadBytes(); err != nil {
		return fmt.Errorf("upload.max_upload_size: %w", err)
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// BackendTimeout returns the per-request timeout for the equipment API.
func (c *AppConfig) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// SessionTimeout returns how long an idle session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Session.TimeoutMinutes) * time.Minute
}

// CleanupInterval returns the period of the session cleanup loop.
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Session.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Session.CleanupIntervalMinutes) * time.Minute
}

// LabelResetDelay returns how long the upload success label stays up.
func (c *AppConfig) LabelResetDelay() time.Duration {
	return time.Duration(c.Display.LabelResetSeconds) * time.Second
}

// Location returns the display time zone. Empty or "Local" is the host zone.
func (c *AppConfig) Location() (*time.Location, error) {
	switch c.Display.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(c.Display.Timezone)
}

// MaxUploadBytes parses the upload size limit ("10M", "512K"). Zero means
// unlimited.
func (c *AppConfig) MaxUploadBytes() (int64, error) {
	if c.Upload.MaxUploadSize == "" {
		return 0, nil
	}
	return bytes.Parse(c.Upload.MaxUploadSize)
}
