// Package app provides the top-level application lifecycle for polywatch.
// It wires together the API clients, fetcher, report pipeline, cache, blob
// storage and server, and runs the configured operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/polywatch/internal/config"
)

// Options carries the per-invocation parameters that come from CLI flags
// rather than the config file.
type Options struct {
	// Slug is the event to inspect in scan mode.
	Slug string
	// Lookback overrides reports.default_lookback when non-zero.
	Lookback string
	// JSONOut, when set, writes the scan-mode report JSON to this path.
	JSONOut string
	// PageLimit overrides fetch.page_limit for this run when positive.
	PageLimit int
	// MaxPages overrides fetch.max_pages for this run when positive.
	MaxPages int
	// Sleep overrides fetch.sleep for this run when positive.
	Sleep time.Duration
}

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and runs the configured mode until it finishes
// or the context is cancelled. In scan mode the returned string is the
// suspicion label of the inspected event; other modes return "".
func (a *App) Run(ctx context.Context, opts Options) (string, error) {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return "", fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case config.ModeScan:
		return a.ScanMode(ctx, deps, opts)
	case config.ModeExport:
		return "", a.ExportMode(ctx, deps)
	case config.ModeServer:
		return "", a.ServerMode(ctx, deps)
	default:
		return "", fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
