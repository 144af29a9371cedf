package heuristics

import (
	"fmt"
	"sort"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/stats"
)

// TimingRegularity flags machine-like arrival patterns: inter-arrival gaps
// with a coefficient of variation below 0.35 combined with a current
// per-minute rate at least three robust standard deviations above the
// window's median. Needs ≥15 trades and ≥10 positive gaps.
func TimingRegularity(trades []domain.Trade) domain.HeuristicResult {
	if len(trades) < 15 {
		return quiet(NameTimingRegularity, "not enough trades")
	}

	timestamps := make([]int64, len(trades))
	for i, t := range trades {
		timestamps[i] = t.Timestamp
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	var gaps []float64
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i] - timestamps[i-1]
		if gap > 0 {
			gaps = append(gaps, float64(gap))
		}
	}
	if len(gaps) < 10 {
		return quiet(NameTimingRegularity, "insufficient gaps")
	}
	cv := stats.CV(gaps)

	_, counts := stats.MinuteCounts(trades)
	if len(counts) == 0 {
		return quiet(NameTimingRegularity, "no minute buckets")
	}
	perMinute := make([]float64, len(counts))
	for i, c := range counts {
		perMinute[i] = float64(c)
	}
	current := perMinute[len(perMinute)-1]
	med := stats.Median(perMinute)
	mad := stats.MAD(perMinute, med)
	z := stats.RobustZ(current, med, mad)

	triggered := cv < 0.35 && z >= 3.0
	intensity := z
	if intensity < 0 {
		intensity = 0
	}
	summary := fmt.Sprintf("timing CV=%.2f, z-score=%.1f", cv, z)
	return result(NameTimingRegularity, triggered, intensity, summary)
}
