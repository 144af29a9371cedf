package report

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
	"github.com/alanyoungcy/polywatch/internal/fetch"
)

type stubResolver struct {
	event domain.EventMeta
	err   error
}

func (s *stubResolver) GetEventBySlug(context.Context, string) (domain.EventMeta, error) {
	return s.event, s.err
}

type stubFetcher struct {
	trades   []domain.Trade
	lookback int64
	err      error
	gotOver  fetch.Overrides
}

func (s *stubFetcher) Fetch(_ context.Context, _ int64, _ time.Duration, over fetch.Overrides) ([]domain.Trade, int64, error) {
	s.gotOver = over
	return s.trades, s.lookback, s.err
}

func builderWith(resolver EventResolver, fetcher TradeFetcher) *Builder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBuilder(resolver, fetcher, logger).WithClock(func() time.Time {
		return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	})
}

func builderEvent() domain.EventMeta {
	return domain.EventMeta{
		ID:    9,
		Title: "Sample event",
		Slug:  "sample-event",
		Markets: map[string]domain.MarketMeta{
			"cond-1": {
				ConditionID: "cond-1",
				Question:    "Sample event",
				TickSize:    0.01,
				Outcomes:    []string{"Yes", "No"},
			},
		},
	}
}

func builderTrades() []domain.Trade {
	idx := 0
	return []domain.Trade{
		{Timestamp: 1200, ProxyWallet: "0xa", Side: domain.SideBuy, ConditionID: "cond-1", OutcomeIndex: &idx, Size: 10, Price: 0.4, TxHash: "0x1"},
		{Timestamp: 1230, ProxyWallet: "0xb", Side: domain.SideSell, ConditionID: "cond-1", OutcomeIndex: &idx, Size: 30, Price: 0.6, TxHash: "0x2"},
		{Timestamp: 1290, Side: domain.SideBuy, ConditionID: "cond-1", OutcomeIndex: &idx, Size: 5, Price: 0.5, TxHash: "0x3"},
	}
}

func TestBuildAssemblesEnvelope(t *testing.T) {
	b := builderWith(
		&stubResolver{event: builderEvent()},
		&stubFetcher{trades: builderTrades(), lookback: 86400},
	)

	env, err := b.Build(context.Background(), "sample-event", time.Hour, fetch.Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "sample-event", env.Slug)
	assert.Equal(t, 3, env.TradeCount)
	assert.Equal(t, int64(86400), env.LookbackSeconds, "widened lookback is carried through")
	assert.Equal(t, int64(86400), env.Report.LookbackSeconds)

	overview := env.Report.Analytics.MarketOverview
	assert.Equal(t, 3, overview.TotalTrades)
	assert.InDelta(t, 45.0, overview.TotalSize, 1e-9)
	assert.InDelta(t, 4+18+2.5, overview.TotalNotional, 1e-9)
	assert.Equal(t, 2, overview.WalletCoverage.UniqueWallets)
	assert.Equal(t, 1, overview.WalletCoverage.MissingWallets)
	assert.InDelta(t, 1.0/3.0, overview.WalletCoverage.MissingShare, 1e-9)
	require.NotNil(t, overview.LargestBySize)
	assert.InDelta(t, 30.0, overview.LargestBySize.Size, 1e-9)
	require.NotNil(t, overview.LargestByNotional)
	assert.InDelta(t, 18.0, overview.LargestByNotional.Notional, 1e-9)

	summary := env.Summary
	assert.Equal(t, "sample-event", summary.Slug)
	assert.Equal(t, int64(9), summary.EventID)
	assert.Equal(t, "2026-08-25T12:00:00Z", summary.UpdatedAt)
	assert.Equal(t, 3, summary.TradeCount)
	require.NotNil(t, summary.LastTradeTimestamp)
	assert.Equal(t, int64(1290), *summary.LastTradeTimestamp)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, "Sample event (Yes)", summary.Outcomes[0].Label)
}

func TestBuildTimeseriesBucketsByMinute(t *testing.T) {
	b := builderWith(
		&stubResolver{event: builderEvent()},
		&stubFetcher{trades: builderTrades(), lookback: 3600},
	)

	env, err := b.Build(context.Background(), "sample-event", time.Hour, fetch.Overrides{})
	require.NoError(t, err)

	points := env.Report.Analytics.Timeseries.PerMinute
	require.Len(t, points, 2)
	assert.Equal(t, int64(1200), points[0].Timestamp)
	assert.Equal(t, 2, points[0].TradeCount)
	require.NotNil(t, points[0].VWAP)
	// (10*0.4 + 30*0.6) / 40
	assert.InDelta(t, 0.55, *points[0].VWAP, 1e-9)
	assert.Equal(t, int64(1260), points[1].Timestamp)
	assert.Equal(t, 1, points[1].TradeCount)
	assert.Equal(t, "1970-01-01T00:20:00Z", points[0].ISO)
}

func TestBuildPassesOverridesToFetcher(t *testing.T) {
	fetcher := &stubFetcher{trades: builderTrades(), lookback: 3600}
	b := builderWith(&stubResolver{event: builderEvent()}, fetcher)

	_, err := b.Build(context.Background(), "sample-event", time.Hour, fetch.Overrides{PageLimit: 250, MaxPages: 3})
	require.NoError(t, err)
	assert.Equal(t, fetch.Overrides{PageLimit: 250, MaxPages: 3}, fetcher.gotOver)
}

func TestBuildPropagatesResolutionError(t *testing.T) {
	resErr := &domain.ResolutionError{Slug: "gone", Err: domain.ErrNotFound}
	b := builderWith(&stubResolver{err: resErr}, &stubFetcher{})

	_, err := b.Build(context.Background(), "gone", time.Hour, fetch.Overrides{})
	var got *domain.ResolutionError
	require.ErrorAs(t, err, &got)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildPropagatesFetchError(t *testing.T) {
	fetchErr := &domain.FetchError{EventID: 9, Err: errors.New("upstream down")}
	b := builderWith(&stubResolver{event: builderEvent()}, &stubFetcher{err: fetchErr})

	_, err := b.Build(context.Background(), "sample-event", time.Hour, fetch.Overrides{})
	var got *domain.FetchError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, int64(9), got.EventID)
}

func TestBuildEmptyWindowYieldsQuietReport(t *testing.T) {
	b := builderWith(
		&stubResolver{event: builderEvent()},
		&stubFetcher{trades: nil, lookback: 259200},
	)

	env, err := b.Build(context.Background(), "sample-event", time.Hour, fetch.Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 0, env.TradeCount)
	assert.Equal(t, int64(259200), env.LookbackSeconds)
	assert.Equal(t, 0.0, env.Report.Score)
	assert.Equal(t, domain.LabelNormal, env.Report.Label)
	assert.Nil(t, env.Summary.LastTradeTimestamp)
}
