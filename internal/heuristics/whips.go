package heuristics

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/stats"
)

// PriceWhips flags engineered spike-and-revert moves on the minute VWAP
// series: a ≥5-point move within one minute that reverts ≥80% inside five
// minutes, with ≥10 trades in the episode and ≥70% of those trades from at
// most three wallets. Triggers at two or more episodes.
//
// Episode scanning is non-overlapping: after a qualifying episode the scan
// resumes at the minute after the reversion bucket, so one move/revert pair
// is never counted twice.
func PriceWhips(trades []domain.Trade) domain.HeuristicResult {
	if len(trades) < 20 {
		return quiet(NamePriceWhips, "small sample")
	}

	vwap := stats.VWAPByMinute(trades)
	minutes := stats.SortedMinutes(vwap)
	if len(minutes) == 0 {
		return quiet(NamePriceWhips, "no minute bars")
	}

	minuteTrades := make(map[int64][]domain.Trade)
	for _, t := range trades {
		minute := t.Timestamp / 60
		minuteTrades[minute] = append(minuteTrades[minute], t)
	}

	episodes := 0
	idx := 0
	for idx < len(minutes) {
		startMinute := minutes[idx]
		startPrice := vwap[startMinute]

		// Look for a ≥5-point move within one minute of the start bucket.
		j := idx + 1
		moveFound := false
		for j < len(minutes) && minutes[j]-startMinute <= 1 {
			if math.Abs(vwap[minutes[j]]-startPrice) >= 0.05 {
				moveFound = true
				break
			}
			j++
		}
		if !moveFound {
			idx++
			continue
		}

		moveMinute := minutes[j]
		endLimit := moveMinute + 5
		reverted := false
		nextIdx := idx + 1
		for k := j + 1; k < len(minutes) && minutes[k] <= endLimit; k++ {
			revertPrice := vwap[minutes[k]]
			if math.Abs(revertPrice-startPrice) > 0.2*math.Abs(vwap[moveMinute]-startPrice) {
				continue
			}
			var episodeTrades []domain.Trade
			for minute := startMinute; minute <= minutes[k]; minute++ {
				episodeTrades = append(episodeTrades, minuteTrades[minute]...)
			}
			if len(episodeTrades) < 10 {
				continue
			}
			if stats.TopKTradeShare(episodeTrades, 3) < 0.70 {
				continue
			}
			episodes++
			reverted = true
			nextIdx = k + 1
			break
		}
		if reverted {
			idx = nextIdx
		} else {
			idx++
		}
	}

	triggered := episodes >= 2
	summary := fmt.Sprintf("price whips detected=%d", episodes)
	return result(NamePriceWhips, triggered, float64(episodes), summary)
}
