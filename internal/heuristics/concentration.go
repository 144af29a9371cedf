package heuristics

import (
	"fmt"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/stats"
)

// WalletConcentration flags windows where a handful of wallets dominate the
// tape. Triggers when the top wallet holds ≥60% of trades and ≥40% of
// notional, or the top three wallets hold ≥85% of trades.
func WalletConcentration(trades []domain.Trade) domain.HeuristicResult {
	total := len(trades)
	if total == 0 {
		return quiet(NameWalletConcentration, "insufficient trades")
	}

	counts := make(map[string]float64)
	notionals := make(map[string]float64)
	var totalNotional float64
	for _, t := range trades {
		counts[t.ProxyWallet]++
		notionals[t.ProxyWallet] += t.Notional()
		totalNotional += t.Notional()
	}

	countValues := make([]float64, 0, len(counts))
	for _, c := range counts {
		countValues = append(countValues, c)
	}
	notionalValues := make([]float64, 0, len(notionals))
	for _, n := range notionals {
		notionalValues = append(notionalValues, n)
	}

	top1Trades := stats.TopKShare(countValues, 1, float64(total))
	top3Trades := stats.TopKShare(countValues, 3, float64(total))
	top1Notional := 0.0
	if totalNotional > 0 {
		top1Notional = stats.TopKShare(notionalValues, 1, totalNotional)
	}

	triggered := (top1Trades >= 0.60 && top1Notional >= 0.40) || top3Trades >= 0.85
	intensity := top1Trades
	if top3Trades > intensity {
		intensity = top3Trades
	}
	summary := fmt.Sprintf("wallet concentration top1=%s trades (%s notional), top3=%s",
		pct(top1Trades), pct(top1Notional), pct(top3Trades))
	return result(NameWalletConcentration, triggered, intensity, summary)
}
