package heuristics

import (
	"fmt"
	"math"
	"sort"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// RoundTrips flags rapid in-and-out flow: per wallet, an opposite-side
// reversal within 600 seconds with price drift of at most one tick. A wallet
// whose reversals reach a third of its activity is marked; the heuristic
// triggers when marked wallets account for ≥30% of all trades.
func RoundTrips(trades []domain.Trade, tick TickLookup) domain.HeuristicResult {
	if len(trades) < 10 {
		return quiet(NameRoundTrips, "small sample")
	}

	groups := byWallet(trades)
	marked := make(map[string]bool)
	for wallet, seq := range groups {
		sort.SliceStable(seq, func(i, j int) bool { return seq[i].Timestamp < seq[j].Timestamp })
		reversals := 0
		for i := 1; i < len(seq); i++ {
			prev, cur := seq[i-1], seq[i]
			if cur.Side == prev.Side {
				continue
			}
			if cur.Timestamp-prev.Timestamp > 600 {
				continue
			}
			tickSize := math.Max(math.Max(tick(cur), tick(prev)), 0.01)
			if math.Abs(cur.Price-prev.Price) <= tickSize {
				reversals++
			}
		}
		if len(seq) > 0 && float64(reversals)/float64(len(seq)) >= 0.33 {
			marked[wallet] = true
		}
	}
	if len(marked) == 0 {
		return quiet(NameRoundTrips, "no rapid reversals")
	}

	share := markedShare(groups, marked, len(trades))
	triggered := share >= 0.30
	summary := fmt.Sprintf("round-trip wallets share=%s of trades", pct(share))
	return result(NameRoundTrips, triggered, share, summary)
}
