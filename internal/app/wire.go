package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/polywatch/internal/blob/s3"
	"github.com/alanyoungcy/polywatch/internal/cache/redis"
	"github.com/alanyoungcy/polywatch/internal/config"
	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/fetch"
	"github.com/alanyoungcy/polywatch/internal/platform/polymarket"
	"github.com/alanyoungcy/polywatch/internal/report"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Gamma   *polymarket.GammaClient
	Fetcher *fetch.Fetcher
	Builder *report.Builder
	Store   *report.FileStore

	// Cache is nil when no Redis address is configured.
	Cache domain.ReportCache

	// Blob is nil when no S3 bucket is configured.
	Blob domain.BlobWriter
}

// Wire constructs the concrete dependency implementations from the
// configuration and returns them with a cleanup function to call on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost, cfg.Polymarket.HTTPTimeout.Duration)
	data := polymarket.NewDataClient(cfg.Polymarket.DataHost, cfg.Polymarket.HTTPTimeout.Duration)

	retry := fetch.DefaultBackoff()
	if cfg.Fetch.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.Fetch.RetryAttempts
	}
	if cfg.Fetch.RetryBaseDelay.Duration > 0 {
		retry.BaseDelay = cfg.Fetch.RetryBaseDelay.Duration
	}
	fetcher := fetch.New(data, fetch.Options{
		PageSize:           cfg.Fetch.PageLimit,
		MaxPages:           cfg.Fetch.MaxPages,
		InterRequestDelay:  cfg.Fetch.Sleep.Duration,
		MaxWidenedLookback: cfg.Fetch.MaxLookback.Duration,
		Retry:              retry,
	}, logger)

	store, err := report.NewFileStore(cfg.Reports.Dir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	builder := report.NewBuilder(gamma, fetcher, logger)

	deps := &Dependencies{
		Gamma:   gamma,
		Fetcher: fetcher,
		Builder: builder,
		Store:   store,
	}

	if cfg.Redis.Addr != "" {
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		deps.Cache = redis.NewReportCache(client, cfg.Redis.ReportTTL.Duration)
	}

	if cfg.S3.Bucket != "" {
		blobClient, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect object store: %w", err)
		}
		deps.Blob = s3blob.NewWriter(blobClient)
	}

	return deps, cleanup, nil
}
