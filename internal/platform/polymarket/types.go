package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// flexInt64 unmarshals from a JSON number or numeric string so Gamma API
// responses work whether "id" is sent as number or string.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt64(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt64(parsed)
	return nil
}

// flexFloat unmarshals from a JSON number or numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*f = 0
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(parsed)
	return nil
}

// outcomeList unmarshals the Gamma "outcomes" field, which arrives either as
// a JSON array or as a JSON-encoded string like "[\"Yes\",\"No\"]".
type outcomeList []string

func (o *outcomeList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*o = items
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	if encoded == "" {
		*o = nil
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &items); err != nil {
		// Not nested JSON; treat the raw string as a single label.
		*o = []string{encoded}
		return nil
	}
	*o = items
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIEvent represents an event as returned by the Gamma events endpoint.
type APIEvent struct {
	ID      flexInt64   `json:"id"`
	Title   string      `json:"title"`
	Slug    string      `json:"slug"`
	Markets []APIMarket `json:"markets"`
}

// APIMarket represents one market inside a Gamma event payload.
type APIMarket struct {
	ConditionID  string      `json:"conditionId"`
	Question     string      `json:"question"`
	Slug         string      `json:"slug"`
	OrderMinSize flexFloat   `json:"orderMinSize"`
	TickSize     flexFloat   `json:"orderPriceMinTickSize"`
	Outcomes     outcomeList `json:"outcomes"`
}

// ToDomainMarket converts a Gamma market to domain.MarketMeta. Missing
// metadata degrades to neutral defaults (min size 0, tick 0.01).
func (m *APIMarket) ToDomainMarket() domain.MarketMeta {
	meta := domain.MarketMeta{
		ConditionID:  m.ConditionID,
		Question:     m.Question,
		Slug:         m.Slug,
		OrderMinSize: float64(m.OrderMinSize),
		TickSize:     float64(m.TickSize),
		Outcomes:     []string(m.Outcomes),
	}
	if meta.Question == "" {
		if m.Slug != "" {
			meta.Question = m.Slug
		} else {
			meta.Question = m.ConditionID
		}
	}
	if meta.TickSize <= 0 {
		meta.TickSize = 0.01
	}
	return meta
}

// APISearchEvent is a slim event row from the Gamma search endpoint.
type APISearchEvent struct {
	ID     flexInt64 `json:"id"`
	Title  string    `json:"title"`
	Slug   string    `json:"slug"`
	Status string    `json:"status"`
}

// EventSearchResult is the domain view of one search hit.
type EventSearchResult struct {
	EventID int64  `json:"eventId"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Status  string `json:"status,omitempty"`
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APITrade represents a trade as returned by the Data API trades endpoint.
type APITrade struct {
	ProxyWallet  string     `json:"proxyWallet"`
	Side         string     `json:"side"`
	ConditionID  string     `json:"conditionId"`
	OutcomeIndex *flexInt64 `json:"outcomeIndex"`
	Outcome      string     `json:"outcome"`
	Size         flexFloat  `json:"size"`
	Price        flexFloat  `json:"price"`
	Timestamp    flexInt64  `json:"timestamp"`
	TxHash       string     `json:"transactionHash"`
}

// ToDomainTrade converts an API trade to a domain.Trade, normalizing the
// price to [0,1] and the wallet to a lowercased hex address. Missing
// required fields yield a domain.ValidationError.
func (t *APITrade) ToDomainTrade() (domain.Trade, error) {
	if t.Timestamp <= 0 {
		return domain.Trade{}, &domain.ValidationError{Field: "timestamp", Err: domain.ErrNotFound}
	}
	if t.Size <= 0 {
		return domain.Trade{}, &domain.ValidationError{Field: "size", Err: domain.ErrNotFound}
	}
	side := strings.ToUpper(strings.TrimSpace(t.Side))
	if side == "" {
		side = domain.SideBuy
	}
	trade := domain.Trade{
		Timestamp:   int64(t.Timestamp),
		ProxyWallet: NormalizeWallet(t.ProxyWallet),
		Side:        side,
		ConditionID: t.ConditionID,
		Outcome:     t.Outcome,
		Size:        float64(t.Size),
		Price:       NormalizePrice(float64(t.Price)),
		TxHash:      t.TxHash,
	}
	if t.OutcomeIndex != nil {
		idx := int(*t.OutcomeIndex)
		trade.OutcomeIndex = &idx
	}
	return trade, nil
}

// NormalizePrice maps an upstream price into [0,1]. Values in (1,100] are
// treated as percentage points; anything above 100 clamps to 1.
func NormalizePrice(v float64) float64 {
	if v > 1 {
		if v <= 100 {
			v = v / 100
		} else {
			v = 1
		}
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeWallet lowercases and canonicalizes a proxy-wallet address.
// Non-address strings are lowercased as-is so dedup and grouping stay stable.
func NormalizeWallet(raw string) string {
	w := strings.TrimSpace(raw)
	if w == "" {
		return ""
	}
	if common.IsHexAddress(w) {
		return strings.ToLower(common.HexToAddress(w).Hex())
	}
	return strings.ToLower(w)
}
