// Package export implements the batch job that rebuilds reports for a
// configured slug list, persists them to the file store, warms the cache
// and uploads JSON snapshots to blob storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/fetch"
	"github.com/alanyoungcy/polywatch/internal/report"
)

const bundlePartSize int64 = 8 * 1024 * 1024

// Exporter drives the export run. Cache and blob are optional: a nil cache
// skips warming, a nil blob skips uploads.
type Exporter struct {
	builder *report.Builder
	store   *report.FileStore
	cache   domain.ReportCache
	blob    domain.BlobWriter
	logger  *slog.Logger
}

func New(builder *report.Builder, store *report.FileStore, cache domain.ReportCache, blob domain.BlobWriter, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		builder: builder,
		store:   store,
		cache:   cache,
		blob:    blob,
		logger:  logger,
	}
}

// bundle is the aggregate snapshot uploaded at the end of a run.
type bundle struct {
	RunID       string                        `json:"runId"`
	GeneratedAt string                        `json:"generatedAt"`
	Reports     map[string]domain.EventReport `json:"reports"`
}

// Run rebuilds every slug, persisting and uploading as it goes. A slug that
// fails to build is logged and skipped; Run only returns an error when no
// slug succeeded or the context was cancelled.
func (e *Exporter) Run(ctx context.Context, slugs []string, lookback time.Duration, prefix string) error {
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	logger.Info("export run started", "slugs", len(slugs), "lookback", lookback.String())

	built := make(map[string]domain.EventReport, len(slugs))
	var failed int
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export: run %s: %w", runID, err)
		}
		env, err := e.builder.Build(ctx, slug, lookback, fetch.Overrides{})
		if err != nil {
			failed++
			logger.Error("export build failed", "slug", slug, "error", err)
			continue
		}
		if err := e.persist(ctx, env, prefix, logger); err != nil {
			failed++
			logger.Error("export persist failed", "slug", slug, "error", err)
			continue
		}
		built[slug] = env.Report
	}

	if e.blob != nil && len(built) > 0 {
		if err := e.uploadBundle(ctx, runID, built, prefix); err != nil {
			logger.Error("export bundle upload failed", "error", err)
		}
	}

	logger.Info("export run finished", "built", len(built), "failed", failed)
	if len(built) == 0 && failed > 0 {
		return fmt.Errorf("export: run %s: all %d slugs failed", runID, failed)
	}
	return nil
}

func (e *Exporter) persist(ctx context.Context, env report.Envelope, prefix string, logger *slog.Logger) error {
	if err := e.store.WriteReport(env.Slug, env.Report); err != nil {
		return err
	}
	if err := e.store.UpsertSummary(env.Summary, report.RefreshScheduled); err != nil {
		return err
	}
	if e.cache != nil {
		if err := e.cache.SetReport(ctx, env.Slug, env.Report); err != nil {
			logger.Warn("cache fill failed", "slug", env.Slug, "error", err)
		} else if err := e.cache.SetSummary(ctx, env.Summary); err != nil {
			logger.Warn("cache summary fill failed", "slug", env.Slug, "error", err)
		}
	}
	if e.blob != nil {
		data, err := json.MarshalIndent(env.Report, "", "  ")
		if err != nil {
			return fmt.Errorf("export: marshal %s: %w", env.Slug, err)
		}
		key := path.Join(prefix, "reports", env.Slug+".json")
		if err := e.blob.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) uploadBundle(ctx context.Context, runID string, reports map[string]domain.EventReport, prefix string) error {
	payload := bundle{
		RunID:       runID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Reports:     reports,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("export: marshal bundle: %w", err)
	}
	key := path.Join(prefix, "bundles", runID+".json")
	return e.blob.PutMultipart(ctx, key, bytes.NewReader(data), bundlePartSize)
}

// IsFatal reports whether a build error should abort a scheduled loop
// instead of being retried next tick. Only context cancellation qualifies.
func IsFatal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
