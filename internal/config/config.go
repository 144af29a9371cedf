// Package config defines the top-level configuration for polywatch and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Run modes.
const (
	ModeScan   = "scan"
	ModeExport = "export"
	ModeServer = "server"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by POLYWATCH_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Fetch      FetchConfig      `toml:"fetch"`
	Reports    ReportsConfig    `toml:"reports"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Export     ExportConfig     `toml:"export"`
	Server     ServerConfig     `toml:"server"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the upstream API endpoints.
type PolymarketConfig struct {
	GammaHost   string   `toml:"gamma_host"`
	DataHost    string   `toml:"data_host"`
	HTTPTimeout duration `toml:"http_timeout"`
}

// FetchConfig holds the trade pagination knobs.
type FetchConfig struct {
	PageLimit      int      `toml:"page_limit"`
	MaxPages       int      `toml:"max_pages"`
	Sleep          duration `toml:"sleep"`
	MaxLookback    duration `toml:"max_lookback"`
	RetryAttempts  int      `toml:"retry_attempts"`
	RetryBaseDelay duration `toml:"retry_base_delay"`
}

// ReportsConfig holds the report store and refresh parameters.
type ReportsConfig struct {
	Dir             string   `toml:"dir"`
	ScheduledSlugs  []string `toml:"scheduled_slugs"`
	DefaultLookback duration `toml:"default_lookback"`
	SearchLimit     int      `toml:"search_limit"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables the
// report cache entirely.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	ReportTTL  duration `toml:"report_ttl"`
}

// S3Config holds S3-compatible object storage parameters. An empty Bucket
// disables snapshot uploads.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ExportConfig holds the export job parameters.
type ExportConfig struct {
	Prefix   string   `toml:"prefix"`
	Interval duration `toml:"interval"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration wraps time.Duration so TOML can parse strings like "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration. Every field can be overridden
// by the TOML file or the environment.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost:   "https://gamma-api.polymarket.com",
			DataHost:    "https://data-api.polymarket.com",
			HTTPTimeout: duration{30 * time.Second},
		},
		Fetch: FetchConfig{
			PageLimit:      5000,
			MaxPages:       100,
			Sleep:          duration{300 * time.Millisecond},
			MaxLookback:    duration{72 * time.Hour},
			RetryAttempts:  4,
			RetryBaseDelay: duration{500 * time.Millisecond},
		},
		Reports: ReportsConfig{
			Dir:             "reports",
			ScheduledSlugs:  nil,
			DefaultLookback: duration{24 * time.Hour},
			SearchLimit:     10,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
			ReportTTL:  duration{10 * time.Minute},
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Export: ExportConfig{
			Prefix:   "polywatch",
			Interval: duration{15 * time.Minute},
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Mode:     ModeScan,
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies that would only
// surface later at runtime.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case ModeScan, ModeExport, ModeServer:
	default:
		return fmt.Errorf("config: mode must be %q, %q or %q, got %q",
			ModeScan, ModeExport, ModeServer, c.Mode)
	}

	if c.Polymarket.GammaHost == "" {
		return fmt.Errorf("config: polymarket.gamma_host is required")
	}
	if c.Polymarket.DataHost == "" {
		return fmt.Errorf("config: polymarket.data_host is required")
	}

	if c.Fetch.PageLimit <= 0 {
		return fmt.Errorf("config: fetch.page_limit must be positive")
	}
	if c.Fetch.MaxPages <= 0 {
		return fmt.Errorf("config: fetch.max_pages must be positive")
	}
	if c.Fetch.MaxLookback.Duration <= 0 {
		return fmt.Errorf("config: fetch.max_lookback must be positive")
	}

	if c.Reports.Dir == "" {
		return fmt.Errorf("config: reports.dir is required")
	}
	if c.Reports.DefaultLookback.Duration <= 0 {
		return fmt.Errorf("config: reports.default_lookback must be positive")
	}

	mode := strings.ToLower(c.Mode)
	if mode == ModeExport && len(c.Reports.ScheduledSlugs) == 0 {
		return fmt.Errorf("config: export mode needs at least one reports.scheduled_slugs entry")
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		return fmt.Errorf("config: s3.region is required when s3.bucket is set")
	}
	if mode == ModeServer && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port must be in (0, 65535]")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
