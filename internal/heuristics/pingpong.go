package heuristics

import (
	"fmt"
	"math"
	"sort"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// PingPong flags wash-like alternation: per wallet, consecutive
// opposite-side trades within 60 seconds at near-identical size (±20%).
// A wallet whose alternating trades reach 20% of its activity is marked;
// the heuristic triggers when marked wallets account for ≥40% of all trades.
func PingPong(trades []domain.Trade) domain.HeuristicResult {
	if len(trades) < 10 {
		return quiet(NamePingPong, "small sample")
	}

	groups := byWallet(trades)
	marked := make(map[string]bool)
	for wallet, seq := range groups {
		sort.SliceStable(seq, func(i, j int) bool { return seq[i].Timestamp < seq[j].Timestamp })
		alternating := make(map[int]bool)
		for i := 1; i < len(seq); i++ {
			prev, cur := seq[i-1], seq[i]
			maxSize := math.Max(math.Max(prev.Size, cur.Size), 1e-9)
			sizeRatio := math.Abs(cur.Size-prev.Size) / maxSize
			if cur.Side != prev.Side && cur.Timestamp-prev.Timestamp <= 60 && sizeRatio <= 0.20 {
				alternating[i-1] = true
				alternating[i] = true
			}
		}
		if len(seq) > 0 && float64(len(alternating))/float64(len(seq)) >= 0.20 {
			marked[wallet] = true
		}
	}
	if len(marked) == 0 {
		return quiet(NamePingPong, "no alternating sequences")
	}

	share := markedShare(groups, marked, len(trades))
	triggered := share >= 0.40
	summary := fmt.Sprintf("ping-pong wallets share=%s of trades", pct(share))
	return result(NamePingPong, triggered, share, summary)
}
