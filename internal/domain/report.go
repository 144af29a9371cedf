package domain

// Suspicion labels, a pure monotone function of score.
const (
	LabelNormal     = "normal"
	LabelWatch      = "watch"
	LabelSuspicious = "suspicious"
)

// HeuristicResult is the output of one heuristic over one scope (event or
// outcome). Intensity is clamped to [0,1] at construction.
type HeuristicResult struct {
	Name      string  `json:"name"`
	Triggered bool    `json:"triggered"`
	Intensity float64 `json:"intensity"`
	Summary   string  `json:"summary"`
}

// EventRef is the slim event identity embedded in reports.
type EventRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// OutcomeScore carries the per-outcome score, label, heuristic results and
// trade aggregates.
type OutcomeScore struct {
	Label        string            `json:"label"`
	ConditionID  string            `json:"conditionId"`
	OutcomeIndex *int              `json:"outcomeIndex"`
	TradeCount   int               `json:"tradeCount"`
	Notional     float64           `json:"notional"`
	VolumeShare  float64           `json:"volumeShare"`
	VWAP         float64           `json:"vwap"`
	LastPrice    *float64          `json:"lastPrice"`
	Score        float64           `json:"score"`
	LabelText    string            `json:"labelText"`
	Heuristics   []HeuristicResult `json:"heuristics"`
}

// WalletCoverage summarizes how many trades carry an attributable wallet.
type WalletCoverage struct {
	UniqueWallets  int     `json:"uniqueWallets"`
	MissingWallets int     `json:"missingWallets"`
	MissingShare   float64 `json:"missingShare"`
}

// TopWallets holds top-1/top-3 wallet shares by trade count and notional.
type TopWallets struct {
	TradesTop1   float64 `json:"tradesTop1"`
	TradesTop3   float64 `json:"tradesTop3"`
	NotionalTop1 float64 `json:"notionalTop1"`
	NotionalTop3 float64 `json:"notionalTop3"`
}

// TradeMarker points at a notable single trade in the window.
type TradeMarker struct {
	Notional  float64 `json:"notional,omitempty"`
	Size      float64 `json:"size"`
	Price     float64 `json:"price"`
	Wallet    string  `json:"wallet"`
	Timestamp int64   `json:"timestamp"`
}

// MarketOverview aggregates the full trade window for the dashboard.
type MarketOverview struct {
	TotalTrades       int            `json:"totalTrades"`
	TotalSize         float64        `json:"totalSize"`
	TotalNotional     float64        `json:"totalNotional"`
	AverageSize       float64        `json:"averageSize"`
	AverageNotional   float64        `json:"averageNotional"`
	WalletCoverage    WalletCoverage `json:"walletCoverage"`
	TopWallets        TopWallets     `json:"topWallets"`
	LargestBySize     *TradeMarker   `json:"largestBySize,omitempty"`
	LargestByNotional *TradeMarker   `json:"largestByNotional,omitempty"`
}

// TimeseriesPoint is one minute bucket of the per-minute series.
type TimeseriesPoint struct {
	Timestamp  int64    `json:"timestamp"`
	ISO        string   `json:"iso"`
	TradeCount int      `json:"tradeCount"`
	VWAP       *float64 `json:"vwap"`
}

// Timeseries groups the report time series.
type Timeseries struct {
	PerMinute []TimeseriesPoint `json:"perMinute"`
}

// Analytics is the dashboard analytics block attached to every report.
type Analytics struct {
	MarketOverview MarketOverview `json:"marketOverview"`
	Outcomes       []OutcomeScore `json:"outcomes"`
	Timeseries     Timeseries     `json:"timeseries"`
}

// EventReport is the sole output contract of a pipeline run. It is
// serialized to JSON unmodified for the export job and the dashboard.
type EventReport struct {
	Event           EventRef          `json:"event"`
	Score           float64           `json:"score"`
	Label           string            `json:"label"`
	Heuristics      []HeuristicResult `json:"heuristics"`
	Rationale       []string          `json:"rationale"`
	Outcomes        []OutcomeScore    `json:"outcomes"`
	Analytics       Analytics         `json:"analytics"`
	LookbackSeconds int64             `json:"lookbackSeconds"`
}

// SummaryOutcome is the slim per-outcome entry inside a report summary.
type SummaryOutcome struct {
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
	LabelText string  `json:"labelText"`
}

// ReportSummary is the index entry maintained per slug for the dashboard
// report list and search annotations.
type ReportSummary struct {
	Slug               string           `json:"slug"`
	EventID            int64            `json:"eventId"`
	Title              string           `json:"title"`
	Label              string           `json:"label"`
	Score              float64          `json:"score"`
	UpdatedAt          string           `json:"updatedAt"`
	LookbackSeconds    int64            `json:"lookbackSeconds"`
	TradeCount         int              `json:"tradeCount"`
	LastTradeTimestamp *int64           `json:"lastTradeTimestamp"`
	TopSignals         []string         `json:"topSignals"`
	Outcomes           []SummaryOutcome `json:"outcomes"`
	RefreshMode        string           `json:"refreshMode,omitempty"`
}
