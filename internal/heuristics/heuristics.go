// Package heuristics contains the six microstructure heuristics. Each is a
// pure function from a trade subset (plus contract metadata lookups) to a
// HeuristicResult; none depends on another's output, and degenerate input
// always degrades to a non-triggered result instead of an error.
package heuristics

import (
	"fmt"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/stats"
)

// Heuristic names, stable across the report JSON contract.
const (
	NameWalletConcentration = "wallet_concentration"
	NameMinSizeSpam         = "min_size_spam"
	NameTimingRegularity    = "timing_regular"
	NamePingPong            = "ping_pong"
	NameRoundTrips          = "round_trips"
	NamePriceWhips          = "price_whips"
)

// SizeLookup resolves the contract order minimum size for a trade.
type SizeLookup func(domain.Trade) float64

// TickLookup resolves the contract tick size for a trade.
type TickLookup func(domain.Trade) float64

// ConstantLookup returns a lookup that ignores the trade, for outcome-scoped
// evaluation where the contract is fixed.
func ConstantLookup(value float64) func(domain.Trade) float64 {
	return func(domain.Trade) float64 { return value }
}

// Evaluate runs all six heuristics over the given trade set.
func Evaluate(trades []domain.Trade, orderMin SizeLookup, tick TickLookup) []domain.HeuristicResult {
	return []domain.HeuristicResult{
		WalletConcentration(trades),
		MinSizeSpam(trades, orderMin),
		TimingRegularity(trades),
		PingPong(trades),
		RoundTrips(trades, tick),
		PriceWhips(trades),
	}
}

// result builds a HeuristicResult with the intensity clamped to [0,1].
func result(name string, triggered bool, intensity float64, summary string) domain.HeuristicResult {
	return domain.HeuristicResult{
		Name:      name,
		Triggered: triggered,
		Intensity: stats.Clamp01(intensity),
		Summary:   summary,
	}
}

// quiet is the shared non-triggered result for unmet sample floors.
func quiet(name, summary string) domain.HeuristicResult {
	return result(name, false, 0, summary)
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// byWallet groups trades per wallet, preserving input order within a group.
// Trades without an attributable wallet group under "".
func byWallet(trades []domain.Trade) map[string][]domain.Trade {
	groups := make(map[string][]domain.Trade)
	for _, t := range trades {
		groups[t.ProxyWallet] = append(groups[t.ProxyWallet], t)
	}
	return groups
}

// markedShare returns the fraction of all trades executed by marked wallets.
func markedShare(groups map[string][]domain.Trade, marked map[string]bool, total int) float64 {
	if total == 0 {
		return 0
	}
	markedTrades := 0
	for wallet := range marked {
		markedTrades += len(groups[wallet])
	}
	return float64(markedTrades) / float64(total)
}
