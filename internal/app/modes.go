package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polywatch/internal/export"
	"github.com/alanyoungcy/polywatch/internal/fetch"
	"github.com/alanyoungcy/polywatch/internal/report"
	"github.com/alanyoungcy/polywatch/internal/server"
	"github.com/alanyoungcy/polywatch/internal/server/handler"
	"github.com/alanyoungcy/polywatch/internal/server/ws"
)

// ScanMode inspects a single event and prints the text report. It returns
// the suspicion label so the caller can derive the process exit code.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies, opts Options) (string, error) {
	if opts.Slug == "" {
		return "", fmt.Errorf("app: scan mode needs a slug")
	}

	lookback := a.cfg.Reports.DefaultLookback.Duration
	if opts.Lookback != "" {
		parsed, err := fetch.ParseLookback(opts.Lookback)
		if err != nil {
			return "", err
		}
		lookback = parsed
	}

	env, err := deps.Builder.Build(ctx, opts.Slug, lookback, fetch.Overrides{
		PageLimit: opts.PageLimit,
		MaxPages:  opts.MaxPages,
		Sleep:     opts.Sleep,
	})
	if err != nil {
		return "", err
	}

	if env.TradeCount == 0 {
		fmt.Println("No trades found in requested window.")
		return env.Report.Label, nil
	}

	fmt.Println(report.RenderText(env.Report))

	if opts.JSONOut != "" {
		data, err := json.MarshalIndent(env.Report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("app: marshal report: %w", err)
		}
		if err := os.WriteFile(opts.JSONOut, data, 0o644); err != nil {
			return "", fmt.Errorf("app: write %s: %w", opts.JSONOut, err)
		}
		a.logger.Info("wrote JSON report", slog.String("path", opts.JSONOut))
	}

	return env.Report.Label, nil
}

// ExportMode rebuilds the scheduled slugs once, then keeps rebuilding on the
// configured interval until the context is cancelled. An interval of zero
// makes it a one-shot job.
func (a *App) ExportMode(ctx context.Context, deps *Dependencies) error {
	exporter := export.New(deps.Builder, deps.Store, deps.Cache, deps.Blob, a.logger)
	slugs := a.cfg.Reports.ScheduledSlugs
	lookback := a.cfg.Reports.DefaultLookback.Duration
	prefix := a.cfg.Export.Prefix

	if err := exporter.Run(ctx, slugs, lookback, prefix); err != nil {
		if export.IsFatal(err) {
			return err
		}
		a.logger.Error("export run failed", slog.String("error", err.Error()))
	}

	interval := a.cfg.Export.Interval.Duration
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := exporter.Run(ctx, slugs, lookback, prefix); err != nil {
				if export.IsFatal(err) {
					return err
				}
				a.logger.Error("export run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ServerMode serves the dashboard API. Scheduled slugs are refreshed in the
// background on the export interval so the index never goes stale.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	hub := ws.NewHub(a.logger)

	reports := handler.NewReportHandler(
		deps.Builder,
		deps.Store,
		deps.Cache,
		hub,
		a.cfg.Reports.ScheduledSlugs,
		a.cfg.Reports.DefaultLookback.Duration,
		a.logger,
	)
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Reports: reports,
		Search:  handler.NewSearchHandler(deps.Gamma, deps.Store, a.cfg.Reports.SearchLimit, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(a.cfg.Reports.ScheduledSlugs) > 0 && a.cfg.Export.Interval.Duration > 0 {
		g.Go(func() error {
			a.refreshLoop(ctx, deps, hub)
			return nil
		})
	}

	return g.Wait()
}

// refreshLoop rebuilds the scheduled slugs on a fixed interval, pushing a
// notification per rebuilt report.
func (a *App) refreshLoop(ctx context.Context, deps *Dependencies, hub *ws.Hub) {
	ticker := time.NewTicker(a.cfg.Export.Interval.Duration)
	defer ticker.Stop()

	lookback := a.cfg.Reports.DefaultLookback.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, slug := range a.cfg.Reports.ScheduledSlugs {
				env, err := deps.Builder.Build(ctx, slug, lookback, fetch.Overrides{})
				if err != nil {
					a.logger.Error("scheduled refresh failed",
						slog.String("slug", slug), slog.String("error", err.Error()))
					continue
				}
				if err := deps.Store.WriteReport(env.Slug, env.Report); err != nil {
					a.logger.Error("scheduled report write failed",
						slog.String("slug", slug), slog.String("error", err.Error()))
					continue
				}
				if err := deps.Store.UpsertSummary(env.Summary, report.RefreshScheduled); err != nil {
					a.logger.Error("scheduled summary write failed",
						slog.String("slug", slug), slog.String("error", err.Error()))
					continue
				}
				if deps.Cache != nil {
					if err := deps.Cache.SetReport(ctx, slug, env.Report); err != nil {
						a.logger.Warn("scheduled cache fill failed",
							slog.String("slug", slug), slog.String("error", err.Error()))
					} else if err := deps.Cache.SetSummary(ctx, env.Summary); err != nil {
						a.logger.Warn("scheduled summary cache fill failed",
							slog.String("slug", slug), slog.String("error", err.Error()))
					}
				}
				hub.Publish(ws.RefreshEvent{
					Slug:        slug,
					Score:       env.Report.Score,
					Label:       env.Report.Label,
					RefreshMode: report.RefreshScheduled,
					UpdatedAt:   env.Summary.UpdatedAt,
				})
			}
		}
	}
}
