// Package report turns resolved events and fetched trades into persistable
// report payloads: the full per-slug report with dashboard analytics, plus
// the slim index summary.
package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/fetch"
	"github.com/alanyoungcy/polywatch/internal/scoring"
	"github.com/alanyoungcy/polywatch/internal/stats"
)

// EventResolver resolves an event slug to its metadata.
type EventResolver interface {
	GetEventBySlug(ctx context.Context, slug string) (domain.EventMeta, error)
}

// TradeFetcher collects the trade window for an event. The returned int64 is
// the lookback actually used in seconds, which may exceed the requested one
// when the window was widened. over narrows the pagination for one call.
type TradeFetcher interface {
	Fetch(ctx context.Context, eventID int64, lookback time.Duration, over fetch.Overrides) ([]domain.Trade, int64, error)
}

// Envelope bundles everything one build produces.
type Envelope struct {
	Slug            string
	Report          domain.EventReport
	Summary         domain.ReportSummary
	TradeCount      int
	LookbackSeconds int64
}

// Builder assembles report envelopes. It owns no persistence.
type Builder struct {
	resolver EventResolver
	fetcher  TradeFetcher
	logger   *slog.Logger
	now      func() time.Time
}

func NewBuilder(resolver EventResolver, fetcher TradeFetcher, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		resolver: resolver,
		fetcher:  fetcher,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build resolves the slug, fetches the trade window and produces the full
// report envelope. Resolution failures surface as ResolutionError, fetch
// failures as FetchError. over carries per-call pagination overrides; pass
// the zero value to use the configured fetch parameters.
func (b *Builder) Build(ctx context.Context, slug string, lookback time.Duration, over fetch.Overrides) (Envelope, error) {
	event, err := b.resolver.GetEventBySlug(ctx, slug)
	if err != nil {
		return Envelope{}, err
	}
	trades, actualLookback, err := b.fetcher.Fetch(ctx, event.ID, lookback, over)
	if err != nil {
		return Envelope{}, err
	}

	rep := scoring.Analyze(event, trades, actualLookback)
	rep.Analytics = domain.Analytics{
		MarketOverview: marketOverview(trades),
		Outcomes:       rep.Outcomes,
		Timeseries:     timeseries(trades),
	}

	summary := b.summarize(rep, slug, trades)
	b.logger.Info("report built",
		"slug", slug,
		"event_id", event.ID,
		"trades", len(trades),
		"score", rep.Score,
		"label", rep.Label,
		"lookback_seconds", actualLookback,
	)
	return Envelope{
		Slug:            slug,
		Report:          rep,
		Summary:         summary,
		TradeCount:      len(trades),
		LookbackSeconds: actualLookback,
	}, nil
}

func (b *Builder) summarize(rep domain.EventReport, slug string, trades []domain.Trade) domain.ReportSummary {
	summary := domain.ReportSummary{
		Slug:            slug,
		EventID:         rep.Event.ID,
		Title:           rep.Event.Title,
		Label:           rep.Label,
		Score:           rep.Score,
		UpdatedAt:       b.now().UTC().Format(time.RFC3339),
		LookbackSeconds: rep.LookbackSeconds,
		TradeCount:      len(trades),
		TopSignals:      rep.Rationale,
	}
	if len(trades) > 0 {
		last := trades[len(trades)-1].Timestamp
		summary.LastTradeTimestamp = &last
	}
	summary.Outcomes = make([]domain.SummaryOutcome, len(rep.Outcomes))
	for i, outcome := range rep.Outcomes {
		summary.Outcomes[i] = domain.SummaryOutcome{
			Label:     outcome.Label,
			Score:     outcome.Score,
			LabelText: outcome.LabelText,
		}
	}
	return summary
}

// marketOverview aggregates the full trade window for the dashboard header.
func marketOverview(trades []domain.Trade) domain.MarketOverview {
	overview := domain.MarketOverview{TotalTrades: len(trades)}

	walletCounts := make(map[string]float64)
	walletNotional := make(map[string]float64)
	var largestBySize, largestByNotional *domain.Trade
	for i := range trades {
		t := trades[i]
		overview.TotalSize += t.Size
		overview.TotalNotional += t.Notional()
		if t.ProxyWallet != "" {
			walletCounts[t.ProxyWallet]++
			walletNotional[t.ProxyWallet] += t.Notional()
		} else {
			overview.WalletCoverage.MissingWallets++
		}
		if largestBySize == nil || t.Size > largestBySize.Size {
			largestBySize = &trades[i]
		}
		if largestByNotional == nil || t.Notional() > largestByNotional.Notional() {
			largestByNotional = &trades[i]
		}
	}
	if overview.TotalTrades > 0 {
		overview.AverageSize = overview.TotalSize / float64(overview.TotalTrades)
		overview.AverageNotional = overview.TotalNotional / float64(overview.TotalTrades)
		overview.WalletCoverage.MissingShare =
			float64(overview.WalletCoverage.MissingWallets) / float64(overview.TotalTrades)
	}
	overview.WalletCoverage.UniqueWallets = len(walletCounts)

	counts, countTotal := mapValues(walletCounts)
	notionals, notionalTotal := mapValues(walletNotional)
	overview.TopWallets = domain.TopWallets{
		TradesTop1:   stats.TopKShare(counts, 1, countTotal),
		TradesTop3:   stats.TopKShare(counts, 3, countTotal),
		NotionalTop1: stats.TopKShare(notionals, 1, notionalTotal),
		NotionalTop3: stats.TopKShare(notionals, 3, notionalTotal),
	}

	if largestBySize != nil {
		overview.LargestBySize = &domain.TradeMarker{
			Size:      largestBySize.Size,
			Price:     largestBySize.Price,
			Wallet:    largestBySize.ProxyWallet,
			Timestamp: largestBySize.Timestamp,
		}
	}
	if largestByNotional != nil {
		overview.LargestByNotional = &domain.TradeMarker{
			Notional:  largestByNotional.Notional(),
			Size:      largestByNotional.Size,
			Price:     largestByNotional.Price,
			Wallet:    largestByNotional.ProxyWallet,
			Timestamp: largestByNotional.Timestamp,
		}
	}
	return overview
}

func mapValues(m map[string]float64) ([]float64, float64) {
	values := make([]float64, 0, len(m))
	var total float64
	for _, v := range m {
		values = append(values, v)
		total += v
	}
	return values, total
}

// timeseries produces the per-minute trade count and VWAP series.
func timeseries(trades []domain.Trade) domain.Timeseries {
	minutes, counts := stats.MinuteCounts(trades)
	vwap := stats.VWAPByMinute(trades)
	points := make([]domain.TimeseriesPoint, len(minutes))
	for i, minute := range minutes {
		ts := minute * 60
		point := domain.TimeseriesPoint{
			Timestamp:  ts,
			ISO:        time.Unix(ts, 0).UTC().Format(time.RFC3339),
			TradeCount: counts[i],
		}
		if v, ok := vwap[minute]; ok {
			value := v
			point.VWAP = &value
		}
		points[i] = point
	}
	return domain.Timeseries{PerMinute: points}
}
