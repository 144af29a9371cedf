package heuristics

import (
	"fmt"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// MinSizeSpam flags bursts of near-minimum trades: ≥100 trades with more
// than 75% of evaluable trades at or below 1.5× the contract order minimum.
// Trades on contracts without min-size metadata are excluded from the share.
func MinSizeSpam(trades []domain.Trade, orderMin SizeLookup) domain.HeuristicResult {
	if len(trades) == 0 {
		return quiet(NameMinSizeSpam, "no trades")
	}

	evaluated := 0
	nearMin := 0
	for _, t := range trades {
		minSize := orderMin(t)
		if minSize <= 0 {
			continue
		}
		evaluated++
		if t.Size <= 1.5*minSize {
			nearMin++
		}
	}
	if evaluated == 0 {
		return quiet(NameMinSizeSpam, "no min-size metadata")
	}

	share := float64(nearMin) / float64(evaluated)
	triggered := len(trades) >= 100 && share > 0.75
	summary := fmt.Sprintf("min-size trades share=%s over %d trades", pct(share), len(trades))
	return result(NameMinSizeSpam, triggered, share, summary)
}
