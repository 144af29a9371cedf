package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/platform/polymarket"
	"github.com/alanyoungcy/polywatch/internal/report"
)

// EventSearcher is the slice of the Gamma client the search endpoint needs.
type EventSearcher interface {
	SearchEvents(ctx context.Context, query string, limit int) ([]polymarket.EventSearchResult, error)
}

// searchResult is one row of the search response, annotated with the cached
// report summary when one exists for the slug.
type searchResult struct {
	Slug         string                `json:"slug"`
	Title        string                `json:"title"`
	EventID      int64                 `json:"eventId"`
	Status       string                `json:"status,omitempty"`
	CachedReport *domain.ReportSummary `json:"cachedReport"`
}

// SearchHandler serves the dashboard event search box.
type SearchHandler struct {
	searcher EventSearcher
	store    *report.FileStore
	maxLimit int
	logger   *slog.Logger
}

func NewSearchHandler(searcher EventSearcher, store *report.FileStore, maxLimit int, logger *slog.Logger) *SearchHandler {
	if maxLimit <= 0 {
		maxLimit = 10
	}
	return &SearchHandler{
		searcher: searcher,
		store:    store,
		maxLimit: maxLimit,
		logger:   logger,
	}
}

// Search proxies the query upstream and annotates hits with any stored
// report summaries.
// GET /api/search?q=...&limit=...
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if len(query) > 120 {
		writeError(w, http.StatusBadRequest, "query too long")
		return
	}
	limit := queryInt(r, "limit", h.maxLimit)
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	hits, err := h.searcher.SearchEvents(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("event search failed", "query", query, "error", err)
		writeError(w, http.StatusBadGateway, "upstream search failed")
		return
	}

	summaries := make(map[string]domain.ReportSummary)
	if stored, err := h.store.ListSummaries(); err == nil {
		for _, summary := range stored {
			summaries[summary.Slug] = summary
		}
	} else {
		h.logger.Warn("report index read failed", "error", err)
	}

	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		result := searchResult{
			Slug:    hit.Slug,
			Title:   hit.Title,
			EventID: hit.EventID,
			Status:  hit.Status,
		}
		if summary, ok := summaries[hit.Slug]; ok {
			cached := summary
			result.CachedReport = &cached
		}
		results = append(results, result)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
