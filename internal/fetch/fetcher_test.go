package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

type stubPages struct {
	fn     func(call, offset int) ([]domain.Trade, error)
	calls  int
	limits []int
}

func (s *stubPages) FetchTradesPage(_ context.Context, _ int64, limit, offset int) ([]domain.Trade, error) {
	s.calls++
	s.limits = append(s.limits, limit)
	return s.fn(s.calls, offset)
}

func pageTrade(ts int64, tx string) domain.Trade {
	return domain.Trade{
		Timestamp:   ts,
		ProxyWallet: "0xabc",
		Side:        domain.SideBuy,
		ConditionID: "c1",
		Size:        2,
		Price:       0.5,
		TxHash:      tx,
	}
}

func newTestFetcher(pages PageFetcher, opts Options) *Fetcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := New(pages, opts, logger)
	f.WithClock(func() time.Time { return time.Unix(100_000, 0) })
	f.WithSleeper(func(context.Context, time.Duration) error { return nil })
	return f
}

func TestFetchDeduplicatesAndSortsAscending(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		if call > 1 {
			return nil, nil
		}
		return []domain.Trade{
			pageTrade(99_900, "0xb"),
			pageTrade(99_800, "0xa"),
			pageTrade(99_900, "0xb"), // exact duplicate
			pageTrade(99_900, "0xa"), // same second, distinct hash
		}, nil
	}}

	trades, lookback, err := newTestFetcher(pages, Options{}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), lookback)
	require.Len(t, trades, 3)
	assert.Equal(t, "0xa", trades[0].TxHash)
	assert.Equal(t, int64(99_800), trades[0].Timestamp)
	// Same-second trades tie-break on TxHash.
	assert.Equal(t, "0xa", trades[1].TxHash)
	assert.Equal(t, "0xb", trades[2].TxHash)
}

func TestFetchWalksPagesByOffset(t *testing.T) {
	var offsets []int
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		offsets = append(offsets, offset)
		switch call {
		case 1:
			return []domain.Trade{pageTrade(99_900, "0xa"), pageTrade(99_890, "0xb")}, nil
		case 2:
			return []domain.Trade{pageTrade(99_880, "0xc"), pageTrade(99_870, "0xd")}, nil
		default:
			return nil, nil
		}
	}}

	trades, _, err := newTestFetcher(pages, Options{PageSize: 2}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.NoError(t, err)
	assert.Len(t, trades, 4)
	assert.Equal(t, []int{0, 2, 4}, offsets, "offset advances by page size until an empty page")
}

func TestFetchStopsAtCutoff(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		// The page is time-descending and crosses the one-hour cutoff
		// (100000 - 3600 = 96400) midway.
		return []domain.Trade{
			pageTrade(99_000, "0xa"),
			pageTrade(96_000, "0xold"),
			pageTrade(95_000, "0xolder"),
		}, nil
	}}

	trades, _, err := newTestFetcher(pages, Options{PageSize: 3}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "0xa", trades[0].TxHash)
	assert.Equal(t, 1, pages.calls, "no further pages after crossing the cutoff")
}

func TestFetchSkipsFutureTimestamps(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		if call > 1 {
			return nil, nil
		}
		return []domain.Trade{
			pageTrade(100_500, "0xfuture"),
			pageTrade(99_500, "0xa"),
		}, nil
	}}

	trades, _, err := newTestFetcher(pages, Options{}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "0xa", trades[0].TxHash)
}

func TestFetchWidensEmptyWindowOnce(t *testing.T) {
	var windows int
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		if offset == 0 {
			windows++
		}
		if windows == 1 {
			return nil, nil // requested window is empty
		}
		if call == windows { // first page of the widened window
			return []domain.Trade{pageTrade(50_000, "0xa")}, nil
		}
		return nil, nil
	}}

	trades, lookback, err := newTestFetcher(pages, Options{}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(72*3600), lookback, "reported lookback reflects the widened window")
}

func TestFetchReportsWidenedLookbackEvenWhenStillEmpty(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		return nil, nil
	}}

	trades, lookback, err := newTestFetcher(pages, Options{}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, int64(72*3600), lookback)
	assert.Equal(t, 2, pages.calls, "widening retries exactly once")
}

func TestFetchDoesNotWidenWhenAlreadyAtMax(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		return nil, nil
	}}

	_, lookback, err := newTestFetcher(pages, Options{}).Fetch(context.Background(), 1, 72*time.Hour, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, int64(72*3600), lookback)
	assert.Equal(t, 1, pages.calls)
}

func TestFetchAppliesPerCallOverrides(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		return []domain.Trade{pageTrade(99_500, "0xa")}, nil
	}}

	opts := Options{PageSize: 500, MaxPages: 10}
	trades, _, err := newTestFetcher(pages, opts).
		Fetch(context.Background(), 1, time.Hour, Overrides{PageLimit: 2, MaxPages: 1})
	require.NoError(t, err)
	assert.Len(t, trades, 1)
	assert.Equal(t, []int{2}, pages.limits, "page limit override reaches the page source")
	assert.Equal(t, 1, pages.calls, "page cap override stops pagination early")
}

func TestFetchZeroOverridesKeepConfiguredOptions(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		if call > 1 {
			return nil, nil
		}
		return []domain.Trade{pageTrade(99_500, "0xa")}, nil
	}}

	_, _, err := newTestFetcher(pages, Options{PageSize: 500}).
		Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, []int{500, 500}, pages.limits)
}

func TestFetchRetriesTransientErrorsUntilExhausted(t *testing.T) {
	transient := errors.New("upstream 503")
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		return nil, transient
	}}

	opts := Options{Retry: Backoff{MaxAttempts: 3, BaseDelay: time.Millisecond}}
	_, _, err := newTestFetcher(pages, opts).Fetch(context.Background(), 7, time.Hour, Overrides{})

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, int64(7), fetchErr.EventID)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, pages.calls)
}

func TestFetchRecoversWithinRetryBudget(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		switch call {
		case 1:
			return nil, errors.New("rate limited")
		case 2:
			return []domain.Trade{pageTrade(99_500, "0xa")}, nil
		default:
			return nil, nil
		}
	}}

	trades, _, err := newTestFetcher(pages, Options{}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestFetchFailsFastOnValidationError(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		return nil, &domain.ValidationError{Field: "price", Err: errors.New("out of range")}
	}}

	_, _, err := newTestFetcher(pages, Options{}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 1, pages.calls, "malformed payloads are definitional, not transient")
}

func TestFetchFailsFastOnNotFound(t *testing.T) {
	pages := &stubPages{fn: func(call, offset int) ([]domain.Trade, error) {
		return nil, domain.ErrNotFound
	}}

	_, _, err := newTestFetcher(pages, Options{}).Fetch(context.Background(), 1, time.Hour, Overrides{})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, pages.calls)
}
