// Command polywatch inspects Polymarket events for bot-like trading
// activity. It loads configuration, wires dependencies, sets up signal
// handling, and runs the configured mode: a one-shot scan of a single
// event, the scheduled export job, or the dashboard API server.
//
// Scan-mode exit codes: 0 normal, 1 watch, 2 suspicious, 3 resolution or
// configuration error, 4 fetch error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/polywatch/internal/app"
	"github.com/alanyoungcy/polywatch/internal/config"
	"github.com/alanyoungcy/polywatch/internal/domain"
)

const (
	exitNormal     = 0
	exitWatch      = 1
	exitSuspicious = 2
	exitResolution = 3
	exitFetch      = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (optional)")
	mode := flag.String("mode", "", "override run mode: scan, export or server")
	slug := flag.String("slug", "", "event slug to inspect (scan mode)")
	lookback := flag.String("lookback", "", "lookback window like 12h or 2d (scan mode)")
	jsonOut := flag.String("json-out", "", "optional path to write the report JSON (scan mode)")
	limit := flag.Int("limit", 0, "trades per page, overrides fetch.page_limit (scan mode)")
	maxPages := flag.Int("max-pages", 0, "page cap, overrides fetch.max_pages (scan mode)")
	sleep := flag.Duration("sleep", 0, "inter-request delay, overrides fetch.sleep (scan mode)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		return exitResolution
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return exitResolution
	}

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	label, err := application.Run(ctx, app.Options{
		Slug:      *slug,
		Lookback:  *lookback,
		JSONOut:   *jsonOut,
		PageLimit: *limit,
		MaxPages:  *maxPages,
		Sleep:     *sleep,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shut down gracefully")
			return exitNormal
		}
		logger.Error("run failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return exitCodeFor(err)
	}

	return labelExitCode(label)
}

// exitCodeFor maps the error taxonomy to scan-mode exit codes: fetch
// failures are distinguishable from resolution and configuration errors.
func exitCodeFor(err error) int {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return exitFetch
	}
	return exitResolution
}

func labelExitCode(label string) int {
	switch label {
	case domain.LabelSuspicious:
		return exitSuspicious
	case domain.LabelWatch:
		return exitWatch
	default:
		return exitNormal
	}
}
