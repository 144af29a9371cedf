package domain

// MarketMeta describes one outcome-bearing contract inside an event.
// Immutable once resolved.
type MarketMeta struct {
	ConditionID  string
	Question     string
	Slug         string
	OrderMinSize float64
	TickSize     float64
	Outcomes     []string // ordered outcome labels, e.g. ["Yes", "No"]
}

// OutcomeName returns the label for the given outcome index, or "" when the
// index is nil or out of range.
func (m MarketMeta) OutcomeName(index *int) string {
	if index == nil {
		return ""
	}
	if *index >= 0 && *index < len(m.Outcomes) {
		return m.Outcomes[*index]
	}
	return ""
}

// OutcomeMeta is the resolved contract metadata for a single
// (conditionID, outcomeIndex) scope, used by size- and tick-aware heuristics.
type OutcomeMeta struct {
	ConditionID  string
	OutcomeIndex *int
	Outcome      string
	Question     string
	OrderMinSize float64
	TickSize     float64
}

// EventMeta is the resolved metadata for one prediction-market event.
// Immutable once resolved.
type EventMeta struct {
	ID      int64
	Slug    string
	Title   string
	Markets map[string]MarketMeta // keyed by condition ID
}

// OutcomeMeta resolves contract metadata for the given scope, falling back
// to neutral defaults (min size 0, tick 0.01) when the condition is unknown.
func (e EventMeta) OutcomeMeta(conditionID string, outcomeIndex *int) OutcomeMeta {
	meta := OutcomeMeta{
		ConditionID:  conditionID,
		OutcomeIndex: outcomeIndex,
		Question:     conditionID,
		TickSize:     0.01,
	}
	market, ok := e.Markets[conditionID]
	if !ok {
		return meta
	}
	meta.Outcome = market.OutcomeName(outcomeIndex)
	meta.Question = market.Question
	meta.OrderMinSize = market.OrderMinSize
	if market.TickSize > 0 {
		meta.TickSize = market.TickSize
	}
	return meta
}
