// Package stats provides the pure numeric helpers shared by the heuristics
// and the report analytics: central moments, robust dispersion, wallet
// shares, and minute-bucket resampling.
package stats

import (
	"math"
	"sort"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// madScale converts a median absolute deviation into a consistent estimate
// of the standard deviation for normal data.
const madScale = 1.4826

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, 0 for an empty slice.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

// CV returns the coefficient of variation (stddev / mean), 0 when the mean
// is zero or the slice is empty.
func CV(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return StdDev(values) / mean
}

// Median returns the middle value (average of the two middle values for an
// even count), 0 for an empty slice. The input is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MAD returns the median absolute deviation around med.
func MAD(values []float64, med float64) float64 {
	if len(values) == 0 {
		return 0
	}
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	return Median(deviations)
}

// RobustZ returns the robust z-score of current against the median/MAD pair.
// When the MAD degenerates to zero the scale falls back to 1 so a constant
// series still produces a finite score.
func RobustZ(current, med, mad float64) float64 {
	sigma := madScale * mad
	if sigma <= 0 {
		sigma = 1
	}
	return (current - med) / sigma
}

// Clamp01 clamps v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TopKShare returns the share of total held by the k largest values.
func TopKShare(values []float64, k int, total float64) float64 {
	if total <= 0 || len(values) == 0 || k <= 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	if k > len(sorted) {
		k = len(sorted)
	}
	var sum float64
	for _, v := range sorted[:k] {
		sum += v
	}
	return sum / total
}

// TopKTradeShare returns the share of trades executed by the k most active
// wallets. Trades without an attributable wallet group together, so a burst
// of anonymous fills still registers as concentration.
func TopKTradeShare(trades []domain.Trade, k int) float64 {
	if len(trades) == 0 {
		return 0
	}
	counts := make(map[string]float64)
	for _, t := range trades {
		counts[t.ProxyWallet]++
	}
	values := make([]float64, 0, len(counts))
	for _, c := range counts {
		values = append(values, c)
	}
	return TopKShare(values, k, float64(len(trades)))
}

// MinuteCounts buckets trades into unix minutes and returns the sorted
// minutes with their trade counts.
func MinuteCounts(trades []domain.Trade) ([]int64, []int) {
	if len(trades) == 0 {
		return nil, nil
	}
	counts := make(map[int64]int)
	for _, t := range trades {
		counts[t.Timestamp/60]++
	}
	minutes := make([]int64, 0, len(counts))
	for m := range counts {
		minutes = append(minutes, m)
	}
	sort.Slice(minutes, func(i, j int) bool { return minutes[i] < minutes[j] })
	values := make([]int, len(minutes))
	for i, m := range minutes {
		values[i] = counts[m]
	}
	return minutes, values
}

// VWAPByMinute returns the volume-weighted average price per unix minute.
// Minutes whose total size is zero are omitted.
func VWAPByMinute(trades []domain.Trade) map[int64]float64 {
	sizeSum := make(map[int64]float64)
	notionalSum := make(map[int64]float64)
	for _, t := range trades {
		minute := t.Timestamp / 60
		sizeSum[minute] += t.Size
		notionalSum[minute] += t.Price * t.Size
	}
	vwap := make(map[int64]float64, len(sizeSum))
	for minute, size := range sizeSum {
		if size == 0 {
			continue
		}
		vwap[minute] = notionalSum[minute] / size
	}
	return vwap
}

// SortedMinutes returns the keys of a minute-indexed map in ascending order.
func SortedMinutes(m map[int64]float64) []int64 {
	minutes := make([]int64, 0, len(m))
	for minute := range m {
		minutes = append(minutes, minute)
	}
	sort.Slice(minutes, func(i, j int) bool { return minutes[i] < minutes[j] })
	return minutes
}

// GroupByOutcome partitions trades by (conditionID, outcomeIndex) scope.
func GroupByOutcome(trades []domain.Trade) map[domain.OutcomeKey][]domain.Trade {
	groups := make(map[domain.OutcomeKey][]domain.Trade)
	for _, t := range trades {
		key := t.Scope()
		groups[key] = append(groups[key], t)
	}
	return groups
}
