package domain

// Trade side values as delivered by the Data API.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade represents a single public trade execution. Immutable, fetched once
// per run.
type Trade struct {
	Timestamp    int64   // unix seconds
	ProxyWallet  string  // lowercased hex address, "" when upstream omits it
	Side         string  // SideBuy or SideSell
	ConditionID  string
	OutcomeIndex *int
	Outcome      string // outcome label, "" when upstream omits it
	Size         float64
	Price        float64 // implied probability, normalized to [0,1]
	TxHash       string
}

// Notional returns the trade's settlement-currency value.
func (t Trade) Notional() float64 { return t.Size * t.Price }

// TradeKey is the exact-tuple identity used for deduplication. Two retained
// trades never share the full tuple.
type TradeKey struct {
	TxHash       string
	ConditionID  string
	OutcomeIndex int
	HasIndex     bool
	Size         float64
	Price        float64
	Timestamp    int64
}

// Key returns the trade's dedup identity.
func (t Trade) Key() TradeKey {
	k := TradeKey{
		TxHash:      t.TxHash,
		ConditionID: t.ConditionID,
		Size:        t.Size,
		Price:       t.Price,
		Timestamp:   t.Timestamp,
	}
	if t.OutcomeIndex != nil {
		k.OutcomeIndex = *t.OutcomeIndex
		k.HasIndex = true
	}
	return k
}

// OutcomeKey identifies the (conditionID, outcomeIndex) scope a trade
// belongs to.
type OutcomeKey struct {
	ConditionID  string
	OutcomeIndex int
	HasIndex     bool
}

// Scope returns the trade's outcome grouping key.
func (t Trade) Scope() OutcomeKey {
	k := OutcomeKey{ConditionID: t.ConditionID}
	if t.OutcomeIndex != nil {
		k.OutcomeIndex = *t.OutcomeIndex
		k.HasIndex = true
	}
	return k
}
