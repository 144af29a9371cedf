// Package fetch implements the paginated, rate-limited trade retrieval
// pipeline: sequential page walking with a cutoff stop, exact-tuple
// deduplication, per-request retry with exponential backoff, and automatic
// lookback widening when the requested window is empty.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// PageFetcher is the narrow HTTP collaborator: one page of trades per call.
// Tests substitute fixtures without network access.
type PageFetcher interface {
	FetchTradesPage(ctx context.Context, eventID int64, limit, offset int) ([]domain.Trade, error)
}

// Options holds the explicit fetch parameters. Zero values fall back to the
// documented defaults; nothing is read from ambient state.
type Options struct {
	PageSize           int           // default 5000
	MaxPages           int           // default 100
	InterRequestDelay  time.Duration // default 300ms, keeps under 75 req / 10s
	MaxWidenedLookback time.Duration // default 72h
	Retry              Backoff
}

// Overrides narrows the fetch parameters for a single call. Zero fields keep
// the configured values. They come from CLI flags in scan mode and from the
// refresh request body on the dashboard API.
type Overrides struct {
	PageLimit int
	MaxPages  int
	Sleep     time.Duration
}

func (o Options) with(over Overrides) Options {
	if over.PageLimit > 0 {
		o.PageSize = over.PageLimit
	}
	if over.MaxPages > 0 {
		o.MaxPages = over.MaxPages
	}
	if over.Sleep > 0 {
		o.InterRequestDelay = over.Sleep
	}
	return o
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 5000
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 100
	}
	if o.InterRequestDelay <= 0 {
		o.InterRequestDelay = 300 * time.Millisecond
	}
	if o.MaxWidenedLookback <= 0 {
		o.MaxWidenedLookback = 72 * time.Hour
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = DefaultBackoff()
	}
	return o
}

// Fetcher pulls the trade history for one event. Strictly sequential: pages
// are never fetched concurrently so the rate budget holds deterministically.
type Fetcher struct {
	pages  PageFetcher
	opts   Options
	logger *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Fetcher over the given page collaborator.
func New(pages PageFetcher, opts Options, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		pages:  pages,
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// WithClock replaces the wall clock, for tests.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// WithSleeper replaces the inter-request sleep, for tests.
func (f *Fetcher) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *Fetcher {
	f.sleep = sleep
	return f
}

// Fetch returns the deduplicated trades inside the lookback window, oldest
// first, together with the lookback actually used in seconds. When the
// requested window yields nothing the fetch is retried once with
// MaxWidenedLookback; the widened window is reported even if it is also
// empty. over narrows the configured pagination for this call only.
func (f *Fetcher) Fetch(ctx context.Context, eventID int64, lookback time.Duration, over Overrides) ([]domain.Trade, int64, error) {
	opts := f.opts.with(over)

	trades, err := f.fetchWindow(ctx, eventID, lookback, opts)
	if err != nil {
		return nil, 0, err
	}
	if len(trades) > 0 || lookback >= opts.MaxWidenedLookback {
		return trades, int64(lookback / time.Second), nil
	}

	f.logger.Info("no trades in requested window, widening lookback",
		slog.Int64("event_id", eventID),
		slog.Duration("requested", lookback),
		slog.Duration("widened", opts.MaxWidenedLookback),
	)
	trades, err = f.fetchWindow(ctx, eventID, opts.MaxWidenedLookback, opts)
	if err != nil {
		return nil, 0, err
	}
	return trades, int64(opts.MaxWidenedLookback / time.Second), nil
}

// fetchWindow walks pages in increasing offset order until a page is empty,
// the page crosses the cutoff (pagination is time-descending), or MaxPages
// is reached.
func (f *Fetcher) fetchWindow(ctx context.Context, eventID int64, lookback time.Duration, opts Options) ([]domain.Trade, error) {
	now := f.now().Unix()
	cutoff := now - int64(lookback/time.Second)

	var trades []domain.Trade
	seen := make(map[domain.TradeKey]struct{})
	offset := 0

	for page := 0; page < opts.MaxPages; page++ {
		if page > 0 {
			if err := f.sleep(ctx, opts.InterRequestDelay); err != nil {
				return nil, &domain.FetchError{EventID: eventID, Err: err}
			}
		}

		batch, err := f.fetchPage(ctx, eventID, offset, opts)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		crossedCutoff := false
		for _, trade := range batch {
			if trade.Timestamp < cutoff {
				crossedCutoff = true
				break
			}
			if trade.Timestamp > now {
				continue
			}
			key := trade.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			trades = append(trades, trade)
		}
		if crossedCutoff {
			break
		}
		offset += opts.PageSize
	}

	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].TxHash < trades[j].TxHash
	})
	return trades, nil
}

// fetchPage retries one page request with exponential backoff on transient
// failures. Exhausted retries fail the whole fetch with a FetchError.
func (f *Fetcher) fetchPage(ctx context.Context, eventID int64, offset int, opts Options) ([]domain.Trade, error) {
	var lastErr error
	for attempt := 1; attempt <= opts.Retry.MaxAttempts; attempt++ {
		batch, err := f.pages.FetchTradesPage(ctx, eventID, opts.PageSize, offset)
		if err == nil {
			return batch, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == opts.Retry.MaxAttempts {
			break
		}
		delay := opts.Retry.Delay(attempt)
		f.logger.Warn("trades page failed, retrying",
			slog.Int64("event_id", eventID),
			slog.Int("offset", offset),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, &domain.FetchError{EventID: eventID, Err: err}
		}
	}
	return nil, &domain.FetchError{EventID: eventID, Err: lastErr}
}

// retryable reports whether a page error is worth retrying. Malformed
// payloads and missing resources are definitional; everything else (429,
// 5xx, timeouts, transport failures) counts toward the backoff budget.
func retryable(err error) bool {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return false
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
