package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.47, 0.47},
		{0, 0},
		{1, 1},
		{47, 0.47},   // percentage points
		{100, 1},     // 100% maps to 1
		{250, 1},     // garbage clamps
		{-0.2, 0},    // negatives clamp
		{1.0001, 0.010001},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, NormalizePrice(tc.in), 1e-9, "input %v", tc.in)
	}
}

func TestNormalizeWallet(t *testing.T) {
	assert.Equal(t, "", NormalizeWallet("  "))
	assert.Equal(t,
		"0x5409ed021d9299bf6814279a6a1411a7e866a631",
		NormalizeWallet("0x5409ED021D9299bf6814279A6A1411A7e866A631"))
	// Non-address values lowercase without canonicalization.
	assert.Equal(t, "not-an-address", NormalizeWallet("Not-An-Address"))
}

func TestFlexFieldsAcceptNumbersAndStrings(t *testing.T) {
	var event APIEvent
	require.NoError(t, json.Unmarshal([]byte(`{"id":"12345","title":"T","slug":"t"}`), &event))
	assert.Equal(t, flexInt64(12345), event.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":12345}`), &event))
	assert.Equal(t, flexInt64(12345), event.ID)

	var market APIMarket
	require.NoError(t, json.Unmarshal([]byte(`{"orderMinSize":"5.0","orderPriceMinTickSize":0.001}`), &market))
	assert.Equal(t, flexFloat(5.0), market.OrderMinSize)
	assert.Equal(t, flexFloat(0.001), market.TickSize)

	require.NoError(t, json.Unmarshal([]byte(`{"orderMinSize":""}`), &market))
	assert.Equal(t, flexFloat(0), market.OrderMinSize)
}

func TestOutcomeListAcceptsArrayAndEncodedString(t *testing.T) {
	var market APIMarket
	require.NoError(t, json.Unmarshal([]byte(`{"outcomes":["Yes","No"]}`), &market))
	assert.Equal(t, outcomeList{"Yes", "No"}, market.Outcomes)

	require.NoError(t, json.Unmarshal([]byte(`{"outcomes":"[\"Yes\",\"No\"]"}`), &market))
	assert.Equal(t, outcomeList{"Yes", "No"}, market.Outcomes)

	require.NoError(t, json.Unmarshal([]byte(`{"outcomes":"Maybe"}`), &market))
	assert.Equal(t, outcomeList{"Maybe"}, market.Outcomes)

	require.NoError(t, json.Unmarshal([]byte(`{"outcomes":""}`), &market))
	assert.Nil(t, market.Outcomes)
}

func TestToDomainMarketDefaults(t *testing.T) {
	m := APIMarket{ConditionID: "cond-1"}
	meta := m.ToDomainMarket()
	assert.Equal(t, "cond-1", meta.Question, "question falls back to slug then condition ID")
	assert.InDelta(t, 0.01, meta.TickSize, 1e-9, "missing tick degrades to one cent")

	m = APIMarket{ConditionID: "cond-1", Slug: "rain-yes"}
	assert.Equal(t, "rain-yes", m.ToDomainMarket().Question)
}

func TestToDomainTradeNormalizes(t *testing.T) {
	idx := flexInt64(1)
	api := APITrade{
		ProxyWallet:  "0x5409ED021D9299bf6814279A6A1411A7e866A631",
		Side:         "buy",
		ConditionID:  "cond-1",
		OutcomeIndex: &idx,
		Outcome:      "No",
		Size:         flexFloat(12.5),
		Price:        flexFloat(62), // percentage points
		Timestamp:    flexInt64(1700000000),
		TxHash:       "0xdeadbeef",
	}

	trade, err := api.ToDomainTrade()
	require.NoError(t, err)
	assert.Equal(t, domain.SideBuy, trade.Side)
	assert.Equal(t, "0x5409ed021d9299bf6814279a6a1411a7e866a631", trade.ProxyWallet)
	assert.InDelta(t, 0.62, trade.Price, 1e-9)
	require.NotNil(t, trade.OutcomeIndex)
	assert.Equal(t, 1, *trade.OutcomeIndex)
	assert.Equal(t, "No", trade.Outcome)
}

func TestToDomainTradeRejectsMissingFields(t *testing.T) {
	var validationErr *domain.ValidationError

	_, err := (&APITrade{Size: 1, Timestamp: 0}).ToDomainTrade()
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "timestamp", validationErr.Field)

	_, err = (&APITrade{Size: 0, Timestamp: 1700000000}).ToDomainTrade()
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "size", validationErr.Field)
}

func TestToDomainTradeDefaultsEmptySideToBuy(t *testing.T) {
	trade, err := (&APITrade{Size: 1, Timestamp: 1700000000}).ToDomainTrade()
	require.NoError(t, err)
	assert.Equal(t, domain.SideBuy, trade.Side)
}
