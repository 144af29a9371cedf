package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYWATCH_* environment variable overrides,
// and returns the final Config. An empty path skips the file and uses
// defaults plus environment only. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject endpoints and credentials at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Polymarket.GammaHost, "POLYWATCH_GAMMA_HOST")
	setStr(&cfg.Polymarket.DataHost, "POLYWATCH_DATA_HOST")
	setDuration(&cfg.Polymarket.HTTPTimeout, "POLYWATCH_HTTP_TIMEOUT")

	setInt(&cfg.Fetch.PageLimit, "POLYWATCH_PAGE_LIMIT")
	setInt(&cfg.Fetch.MaxPages, "POLYWATCH_MAX_PAGES")
	setDuration(&cfg.Fetch.Sleep, "POLYWATCH_SLEEP")
	setDuration(&cfg.Fetch.MaxLookback, "POLYWATCH_MAX_LOOKBACK")
	setInt(&cfg.Fetch.RetryAttempts, "POLYWATCH_RETRY_ATTEMPTS")
	setDuration(&cfg.Fetch.RetryBaseDelay, "POLYWATCH_RETRY_BASE_DELAY")

	setStr(&cfg.Reports.Dir, "POLYWATCH_REPORTS_DIR")
	setStringSlice(&cfg.Reports.ScheduledSlugs, "POLYWATCH_SCHEDULED_SLUGS")
	setDuration(&cfg.Reports.DefaultLookback, "POLYWATCH_DEFAULT_LOOKBACK")
	setInt(&cfg.Reports.SearchLimit, "POLYWATCH_SEARCH_LIMIT")

	setStr(&cfg.Redis.Addr, "POLYWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYWATCH_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.ReportTTL, "POLYWATCH_REDIS_REPORT_TTL")

	setStr(&cfg.S3.Endpoint, "POLYWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYWATCH_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Export.Prefix, "POLYWATCH_EXPORT_PREFIX")
	setDuration(&cfg.Export.Interval, "POLYWATCH_EXPORT_INTERVAL")

	setInt(&cfg.Server.Port, "POLYWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYWATCH_SERVER_CORS_ORIGINS")

	setStr(&cfg.Mode, "POLYWATCH_MODE")
	setStr(&cfg.LogLevel, "POLYWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
