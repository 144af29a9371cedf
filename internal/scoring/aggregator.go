// Package scoring combines heuristic results into event-level and
// per-outcome suspicion scores with human-readable rationale.
package scoring

import (
	"fmt"
	"sort"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/heuristics"
	"github.com/alanyoungcy/polywatch/internal/stats"
)

// Heuristic weights. Fixed; they sum to 1.0.
var weights = map[string]float64{
	heuristics.NameWalletConcentration: 0.25,
	heuristics.NameMinSizeSpam:         0.20,
	heuristics.NameTimingRegularity:    0.20,
	heuristics.NamePingPong:            0.15,
	heuristics.NameRoundTrips:          0.10,
	heuristics.NamePriceWhips:          0.10,
}

// maxDrivers bounds the rationale list.
const maxDrivers = 4

// Weight returns the fixed weight for a heuristic name, 0 for unknown names.
func Weight(name string) float64 { return weights[name] }

// LabelFor maps a score to its suspicion label. Pure and monotone.
func LabelFor(score float64) string {
	switch {
	case score >= 60:
		return domain.LabelSuspicious
	case score >= 35:
		return domain.LabelWatch
	default:
		return domain.LabelNormal
	}
}

// Score combines heuristic results into a [0,100] score. Only triggered
// heuristics contribute; untriggered ones count as zero regardless of raw
// intensity.
func Score(results []domain.HeuristicResult) float64 {
	var total float64
	for _, r := range results {
		if !r.Triggered {
			continue
		}
		total += weights[r.Name] * stats.Clamp01(r.Intensity)
	}
	score := total * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TopDrivers returns the summaries of triggered heuristics ordered by
// weighted contribution, truncated to maxDrivers. When nothing triggered it
// falls back to the two highest-intensity summaries so the rationale is
// never empty.
func TopDrivers(results []domain.HeuristicResult) []string {
	triggered := make([]domain.HeuristicResult, 0, len(results))
	for _, r := range results {
		if r.Triggered {
			triggered = append(triggered, r)
		}
	}
	if len(triggered) > 0 {
		sort.SliceStable(triggered, func(i, j int) bool {
			return weights[triggered[i].Name]*triggered[i].Intensity >
				weights[triggered[j].Name]*triggered[j].Intensity
		})
		if len(triggered) > maxDrivers {
			triggered = triggered[:maxDrivers]
		}
		summaries := make([]string, len(triggered))
		for i, r := range triggered {
			summaries[i] = r.Summary
		}
		return summaries
	}

	fallback := make([]domain.HeuristicResult, len(results))
	copy(fallback, results)
	sort.SliceStable(fallback, func(i, j int) bool {
		return fallback[i].Intensity > fallback[j].Intensity
	})
	if len(fallback) > 2 {
		fallback = fallback[:2]
	}
	summaries := make([]string, len(fallback))
	for i, r := range fallback {
		summaries[i] = r.Summary
	}
	return summaries
}

// metaLookup resolves contract metadata per (conditionID, outcomeIndex)
// scope, with a nil-index fallback per condition.
type metaLookup map[domain.OutcomeKey]domain.OutcomeMeta

func buildMetaLookup(event domain.EventMeta) metaLookup {
	lookup := make(metaLookup)
	for conditionID, market := range event.Markets {
		for idx := range market.Outcomes {
			i := idx
			lookup[domain.OutcomeKey{ConditionID: conditionID, OutcomeIndex: i, HasIndex: true}] =
				event.OutcomeMeta(conditionID, &i)
		}
		lookup[domain.OutcomeKey{ConditionID: conditionID}] = event.OutcomeMeta(conditionID, nil)
	}
	return lookup
}

func (l metaLookup) forTrade(t domain.Trade) (domain.OutcomeMeta, bool) {
	if meta, ok := l[t.Scope()]; ok {
		return meta, true
	}
	meta, ok := l[domain.OutcomeKey{ConditionID: t.ConditionID}]
	return meta, ok
}

func (l metaLookup) forScope(key domain.OutcomeKey) (domain.OutcomeMeta, bool) {
	if meta, ok := l[key]; ok {
		return meta, true
	}
	meta, ok := l[domain.OutcomeKey{ConditionID: key.ConditionID}]
	return meta, ok
}

// outcomeLabel produces the display label for a scope: the market question,
// suffixed with the outcome name when known.
func (l metaLookup) outcomeLabel(key domain.OutcomeKey) string {
	meta, ok := l.forScope(key)
	if ok {
		if meta.Outcome != "" {
			return fmt.Sprintf("%s (%s)", meta.Question, meta.Outcome)
		}
		return meta.Question
	}
	if !key.HasIndex {
		return key.ConditionID
	}
	return fmt.Sprintf("%s#%d", key.ConditionID, key.OutcomeIndex)
}

// Analyze runs the full heuristic evaluation over the event trade set and
// once more per outcome subset, producing the event report skeleton
// (analytics are attached by the report builder). Pure: identical inputs
// reproduce identical output.
func Analyze(event domain.EventMeta, trades []domain.Trade, lookbackSeconds int64) domain.EventReport {
	lookup := buildMetaLookup(event)

	orderLookup := func(t domain.Trade) float64 {
		meta, _ := lookup.forTrade(t)
		return meta.OrderMinSize
	}
	tickLookup := func(t domain.Trade) float64 {
		meta, ok := lookup.forTrade(t)
		if !ok || meta.TickSize <= 0 {
			return 0.01
		}
		return meta.TickSize
	}

	// Fill missing outcome labels so reporting stays consistent.
	labeled := make([]domain.Trade, len(trades))
	copy(labeled, trades)
	for i := range labeled {
		if labeled[i].Outcome == "" {
			labeled[i].Outcome = lookup.outcomeLabel(labeled[i].Scope())
		}
	}

	eventResults := heuristics.Evaluate(labeled, orderLookup, tickLookup)
	eventScore := Score(eventResults)

	var totalNotional float64
	for _, t := range labeled {
		totalNotional += t.Notional()
	}

	grouped := stats.GroupByOutcome(labeled)
	keys := make([]domain.OutcomeKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ConditionID != keys[j].ConditionID {
			return keys[i].ConditionID < keys[j].ConditionID
		}
		if keys[i].HasIndex != keys[j].HasIndex {
			return !keys[i].HasIndex
		}
		return keys[i].OutcomeIndex < keys[j].OutcomeIndex
	})

	outcomes := make([]domain.OutcomeScore, 0, len(keys))
	for _, key := range keys {
		subset := grouped[key]
		meta, _ := lookup.forScope(key)
		tick := meta.TickSize
		if tick <= 0 {
			tick = 0.01
		}
		results := heuristics.Evaluate(subset,
			heuristics.ConstantLookup(meta.OrderMinSize),
			heuristics.ConstantLookup(tick),
		)
		score := Score(results)

		outcome := domain.OutcomeScore{
			Label:       lookup.outcomeLabel(key),
			ConditionID: key.ConditionID,
			TradeCount:  len(subset),
			Score:       score,
			LabelText:   LabelFor(score),
			Heuristics:  results,
		}
		if key.HasIndex {
			idx := key.OutcomeIndex
			outcome.OutcomeIndex = &idx
		}

		var notional, size, weighted float64
		for _, t := range subset {
			notional += t.Notional()
			size += t.Size
			weighted += t.Price * t.Size
		}
		outcome.Notional = notional
		if totalNotional > 0 {
			outcome.VolumeShare = notional / totalNotional
		}
		if size > 0 {
			outcome.VWAP = weighted / size
		}
		if len(subset) > 0 {
			last := subset[len(subset)-1].Price
			outcome.LastPrice = &last
		}
		outcomes = append(outcomes, outcome)
	}

	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Score > outcomes[j].Score })

	return domain.EventReport{
		Event: domain.EventRef{
			ID:    event.ID,
			Title: event.Title,
			Slug:  event.Slug,
		},
		Score:           eventScore,
		Label:           LabelFor(eventScore),
		Heuristics:      eventResults,
		Rationale:       TopDrivers(eventResults),
		Outcomes:        outcomes,
		LookbackSeconds: lookbackSeconds,
	}
}
