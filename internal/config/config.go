package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the admin console.
type Config struct {
	Port           int
	Version        string
	LogLevel       string
	AllowedOrigins []string      // CORS origins of the browser front-end
	SessionIdle    time.Duration // zero keeps sessions until logout
	Backend        BackendConfig
	Pages          PageConfig
	Notify         NotifyConfig
	Telemetry      TelemetryConfig
}

// BackendConfig describes the remote admin backend.
type BackendConfig struct {
	URL string `yaml:"url"`
	// Timeout of zero leaves the HTTP transport default in place.
	Timeout time.Duration `yaml:"timeout"`
}

// PageConfig tunes the console pages.
type PageConfig struct {
	LogLimit         int
	LogPageSize      int
	DashboardPoll    time.Duration
	ToolsEnabledOnly bool
	// PartialLoad keeps whichever collections loaded when a multi-collection
	// page load partly fails. Off means all-or-nothing.
	PartialLoad bool
}

// NotifyConfig names the optional webhook that receives mutation notices.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Secret     string `yaml:"secret"`
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// fileConfig is the shape of the optional YAML overlay. Pointer fields
// distinguish "absent" from the zero value.
type fileConfig struct {
	Port    int            `yaml:"port"`
	Backend *BackendConfig `yaml:"backend"`
	Notify  *NotifyConfig  `yaml:"notify"`
	Pages   *struct {
		LogLimit         int           `yaml:"log_limit"`
		LogPageSize      int           `yaml:"log_page_size"`
		DashboardPoll    time.Duration `yaml:"dashboard_poll"`
		ToolsEnabledOnly *bool         `yaml:"tools_enabled_only"`
		PartialLoad      *bool         `yaml:"partial_load"`
	} `yaml:"pages"`
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is read first, and the YAML
// file named by CONSOLE_CONFIG, if any, overlays the result.
func Load() (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           envInt("CONSOLE_PORT", 8090),
		Version:        envStr("CONSOLE_VERSION", "0.1.0"),
		LogLevel:       envStr("CONSOLE_LOG_LEVEL", "info"),
		AllowedOrigins: envList("CONSOLE_ALLOWED_ORIGINS", []string{"*"}),
		SessionIdle:    envDuration("CONSOLE_SESSION_IDLE", 0),
		Backend: BackendConfig{
			URL:     envStr("CONSOLE_BACKEND_URL", "http://localhost:8000"),
			Timeout: envDuration("CONSOLE_BACKEND_TIMEOUT", 0),
		},
		Pages: PageConfig{
			LogLimit:         envInt("CONSOLE_LOG_LIMIT", 100),
			LogPageSize:      envInt("CONSOLE_LOG_PAGE_SIZE", 10),
			DashboardPoll:    envDuration("CONSOLE_DASHBOARD_POLL", 0),
			ToolsEnabledOnly: envBool("CONSOLE_TOOLS_ENABLED_ONLY", true),
			PartialLoad:      envBool("CONSOLE_PARTIAL_LOAD", false),
		},
		Notify: NotifyConfig{
			WebhookURL: envStr("CONSOLE_NOTIFY_WEBHOOK", ""),
			Secret:     envStr("CONSOLE_NOTIFY_SECRET", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "agentoven-console"),
		},
	}

	if path := os.Getenv("CONSOLE_CONFIG"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("backend url is empty")
	}
	if cfg.Pages.LogPageSize <= 0 {
		cfg.Pages.LogPageSize = 10
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Port > 0 {
		c.Port = fc.Port
	}
	if fc.Backend != nil {
		if fc.Backend.URL != "" {
			c.Backend.URL = fc.Backend.URL
		}
		if fc.Backend.Timeout > 0 {
			c.Backend.Timeout = fc.Backend.Timeout
		}
	}
	if n := fc.Notify; n != nil {
		if n.WebhookURL != "" {
			c.Notify.WebhookURL = n.WebhookURL
		}
		if n.Secret != "" {
			c.Notify.Secret = n.Secret
		}
	}
	if p := fc.Pages; p != nil {
		if p.LogLimit > 0 {
			c.Pages.LogLimit = p.LogLimit
		}
		if p.LogPageSize > 0 {
			c.Pages.LogPageSize = p.LogPageSize
		}
		if p.DashboardPoll > 0 {
			c.Pages.DashboardPoll = p.DashboardPoll
		}
		if p.ToolsEnabledOnly != nil {
			c.Pages.ToolsEnabledOnly = *p.ToolsEnabledOnly
		}
		if p.PartialLoad != nil {
			c.Pages.PartialLoad = *p.PartialLoad
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
