package domain

import "context"

// ReportCache is the hot path for the dashboard: full report payloads plus
// summary entries, keyed by slug. Implementations return ErrNotFound on miss.
type ReportCache interface {
	SetReport(ctx context.Context, slug string, report EventReport) error
	GetReport(ctx context.Context, slug string) (EventReport, error)
	SetSummary(ctx context.Context, summary ReportSummary) error
	ListSummaries(ctx context.Context) ([]ReportSummary, error)
}
