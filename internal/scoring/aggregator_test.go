package scoring

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/heuristics"
)

func result(name string, triggered bool, intensity float64) domain.HeuristicResult {
	return domain.HeuristicResult{
		Name:      name,
		Triggered: triggered,
		Intensity: intensity,
		Summary:   name + " summary",
	}
}

func TestScoreOnlyCountsTriggeredHeuristics(t *testing.T) {
	results := []domain.HeuristicResult{
		result(heuristics.NameWalletConcentration, false, 1.0),
		result(heuristics.NameMinSizeSpam, false, 1.0),
		result(heuristics.NameTimingRegularity, false, 1.0),
	}
	assert.Equal(t, 0.0, Score(results), "untriggered intensity never contributes")

	results[0].Triggered = true
	assert.InDelta(t, 25.0, Score(results), 1e-9)
}

func TestScoreBoundsAndFullTrigger(t *testing.T) {
	all := []domain.HeuristicResult{
		result(heuristics.NameWalletConcentration, true, 1.0),
		result(heuristics.NameMinSizeSpam, true, 1.0),
		result(heuristics.NameTimingRegularity, true, 1.0),
		result(heuristics.NamePingPong, true, 1.0),
		result(heuristics.NameRoundTrips, true, 1.0),
		result(heuristics.NamePriceWhips, true, 1.0),
	}
	assert.InDelta(t, 100.0, Score(all), 1e-9)

	// Out-of-range intensities are clamped before weighting.
	all[0].Intensity = 7.5
	assert.InDelta(t, 100.0, Score(all), 1e-9)

	assert.Equal(t, 0.0, Score(nil))
}

func TestScoreMonotonicInIntensity(t *testing.T) {
	base := []domain.HeuristicResult{
		result(heuristics.NamePingPong, true, 0.3),
	}
	higher := []domain.HeuristicResult{
		result(heuristics.NamePingPong, true, 0.8),
	}
	assert.Less(t, Score(base), Score(higher))
}

func TestLabelForThresholds(t *testing.T) {
	assert.Equal(t, domain.LabelNormal, LabelFor(0))
	assert.Equal(t, domain.LabelNormal, LabelFor(34.99))
	assert.Equal(t, domain.LabelWatch, LabelFor(35))
	assert.Equal(t, domain.LabelWatch, LabelFor(59.99))
	assert.Equal(t, domain.LabelSuspicious, LabelFor(60))
	assert.Equal(t, domain.LabelSuspicious, LabelFor(100))
}

func TestTopDriversOrdersByWeightedContribution(t *testing.T) {
	results := []domain.HeuristicResult{
		result(heuristics.NamePriceWhips, true, 1.0),          // 0.10
		result(heuristics.NameWalletConcentration, true, 0.8), // 0.20
		result(heuristics.NameMinSizeSpam, true, 0.9),         // 0.18
		result(heuristics.NameTimingRegularity, true, 0.9),    // 0.18
		result(heuristics.NamePingPong, true, 1.0),            // 0.15
	}
	drivers := TopDrivers(results)
	require.Len(t, drivers, 4, "capped at four drivers")
	assert.Equal(t, heuristics.NameWalletConcentration+" summary", drivers[0])
	assert.NotContains(t, drivers, heuristics.NamePriceWhips+" summary")
}

func TestTopDriversFallsBackToHighestIntensities(t *testing.T) {
	results := []domain.HeuristicResult{
		result(heuristics.NameWalletConcentration, false, 0.1),
		result(heuristics.NamePingPong, false, 0.5),
		result(heuristics.NameRoundTrips, false, 0.3),
	}
	drivers := TopDrivers(results)
	require.Len(t, drivers, 2)
	assert.Equal(t, heuristics.NamePingPong+" summary", drivers[0])
	assert.Equal(t, heuristics.NameRoundTrips+" summary", drivers[1])
}

func testEvent() domain.EventMeta {
	return domain.EventMeta{
		ID:    42,
		Title: "Will it rain tomorrow?",
		Slug:  "will-it-rain",
		Markets: map[string]domain.MarketMeta{
			"cond-1": {
				ConditionID:  "cond-1",
				Question:     "Will it rain tomorrow?",
				OrderMinSize: 5,
				TickSize:     0.01,
				Outcomes:     []string{"Yes", "No"},
			},
		},
	}
}

func testTrades(n int) []domain.Trade {
	idx := 0
	trades := make([]domain.Trade, 0, n)
	for i := 0; i < n; i++ {
		wallet := fmt.Sprintf("0xw%02d", i%7)
		trades = append(trades, domain.Trade{
			Timestamp:    int64(1000 + i*17),
			ProxyWallet:  wallet,
			Side:         domain.SideBuy,
			ConditionID:  "cond-1",
			OutcomeIndex: &idx,
			Size:         10,
			Price:        0.5,
			TxHash:       fmt.Sprintf("0x%04d", i),
		})
	}
	return trades
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	event := testEvent()
	trades := testTrades(40)

	first := Analyze(event, trades, 86400)
	second := Analyze(event, trades, 86400)
	assert.True(t, reflect.DeepEqual(first, second), "identical inputs must reproduce identical reports")
}

func TestAnalyzeBuildsOutcomeBreakdown(t *testing.T) {
	event := testEvent()
	trades := testTrades(30)

	rep := Analyze(event, trades, 86400)

	assert.Equal(t, int64(42), rep.Event.ID)
	assert.Equal(t, "will-it-rain", rep.Event.Slug)
	assert.Equal(t, int64(86400), rep.LookbackSeconds)
	require.Len(t, rep.Heuristics, 6)
	assert.GreaterOrEqual(t, rep.Score, 0.0)
	assert.LessOrEqual(t, rep.Score, 100.0)
	assert.Equal(t, LabelFor(rep.Score), rep.Label)
	assert.NotEmpty(t, rep.Rationale)

	require.Len(t, rep.Outcomes, 1)
	outcome := rep.Outcomes[0]
	assert.Equal(t, "Will it rain tomorrow? (Yes)", outcome.Label)
	assert.Equal(t, "cond-1", outcome.ConditionID)
	require.NotNil(t, outcome.OutcomeIndex)
	assert.Equal(t, 0, *outcome.OutcomeIndex)
	assert.Equal(t, 30, outcome.TradeCount)
	assert.InDelta(t, 150.0, outcome.Notional, 1e-9)
	assert.InDelta(t, 1.0, outcome.VolumeShare, 1e-9)
	assert.InDelta(t, 0.5, outcome.VWAP, 1e-9)
	require.NotNil(t, outcome.LastPrice)
	assert.InDelta(t, 0.5, *outcome.LastPrice, 1e-9)
	assert.Equal(t, LabelFor(outcome.Score), outcome.LabelText)
}

func TestAnalyzeUnknownConditionFallsBackToConditionLabel(t *testing.T) {
	event := testEvent()
	trades := []domain.Trade{
		{Timestamp: 1000, ProxyWallet: "0xa", Side: domain.SideBuy, ConditionID: "cond-x", Size: 2, Price: 0.4, TxHash: "0x1"},
	}
	rep := Analyze(event, trades, 3600)
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, "cond-x", rep.Outcomes[0].Label)
}
