package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// topDriverSummaries returns the summaries of triggered heuristics ordered
// by intensity, truncated to limit.
func topDriverSummaries(results []domain.HeuristicResult, limit int) []string {
	sorted := make([]domain.HeuristicResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Triggered != sorted[j].Triggered {
			return sorted[i].Triggered
		}
		return sorted[i].Intensity > sorted[j].Intensity
	})
	var drivers []string
	for _, r := range sorted {
		if !r.Triggered {
			continue
		}
		drivers = append(drivers, r.Summary)
		if len(drivers) == limit {
			break
		}
	}
	return drivers
}

// RenderText formats a report for terminal output: header, score line,
// rationale and a per-outcome table.
func RenderText(rep domain.EventReport) string {
	hours := float64(rep.LookbackSeconds) / 3600
	var b strings.Builder

	fmt.Fprintf(&b, "Event: %s (slug=%s, id=%d) | Window: last %.1fh | Trades: %d\n",
		rep.Event.Title, rep.Event.Slug, rep.Event.ID, hours,
		rep.Analytics.MarketOverview.TotalTrades)
	fmt.Fprintf(&b, "Overall suspicion score: %.1f → %s\n", rep.Score, rep.Label)
	if len(rep.Rationale) > 0 {
		fmt.Fprintf(&b, "Rationale: %s\n", strings.Join(rep.Rationale, "; "))
	}
	drivers := strings.Join(topDriverSummaries(rep.Heuristics, 4), ", ")
	if drivers == "" {
		drivers = "None"
	}
	fmt.Fprintf(&b, "Top drivers: %s\n", drivers)

	b.WriteString("\nBy outcome:\n")
	for _, outcome := range rep.Outcomes {
		line := fmt.Sprintf("- %-25s score %5.1f → %-10s trades=%4d",
			outcome.Label, outcome.Score, outcome.LabelText, outcome.TradeCount)
		if d := strings.Join(topDriverSummaries(outcome.Heuristics, 4), ", "); d != "" {
			line += " | " + d
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
