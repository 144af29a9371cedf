package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/alanyoungcy/polywatch/internal/fetch"
	"github.com/alanyoungcy/polywatch/internal/report"
	"github.com/alanyoungcy/polywatch/internal/server/ws"
)

// ReportHandler serves stored reports and drives on-demand refreshes.
// Concurrent refreshes of the same slug collapse into one build.
type ReportHandler struct {
	builder         *report.Builder
	store           *report.FileStore
	cache           domain.ReportCache // optional
	hub             *ws.Hub            // optional
	scheduledSlugs  map[string]bool
	defaultLookback time.Duration
	logger          *slog.Logger
	group           singleflight.Group
}

func NewReportHandler(
	builder *report.Builder,
	store *report.FileStore,
	cache domain.ReportCache,
	hub *ws.Hub,
	scheduledSlugs []string,
	defaultLookback time.Duration,
	logger *slog.Logger,
) *ReportHandler {
	scheduled := make(map[string]bool, len(scheduledSlugs))
	for _, slug := range scheduledSlugs {
		scheduled[slug] = true
	}
	return &ReportHandler{
		builder:         builder,
		store:           store,
		cache:           cache,
		hub:             hub,
		scheduledSlugs:  scheduled,
		defaultLookback: defaultLookback,
		logger:          logger,
	}
}

func (h *ReportHandler) refreshMode(slug string) string {
	if h.scheduledSlugs[slug] {
		return report.RefreshScheduled
	}
	return report.RefreshOnDemand
}

// Index returns the full report index.
// GET /api/reports/index
func (h *ReportHandler) Index(w http.ResponseWriter, r *http.Request) {
	index, err := h.store.ReadIndex()
	if err != nil {
		h.logger.Error("report index read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to read report index")
		return
	}
	writeJSON(w, http.StatusOK, index)
}

// Get returns the stored report for a slug, preferring the cache.
// GET /api/reports/{slug}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	if h.cache != nil {
		if rep, err := h.cache.GetReport(r.Context(), slug); err == nil {
			writeJSON(w, http.StatusOK, rep)
			return
		} else if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("report cache read failed", "slug", slug, "error", err)
		}
	}

	data, err := h.store.ReadReport(slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report "+slug+" not found")
			return
		}
		writeError(w, statusFromError(err), err.Error())
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// refreshRequest is the optional JSON body of a refresh call. pageLimit and
// maxPages narrow the fetch pagination for this rebuild only.
type refreshRequest struct {
	Lookback  string `json:"lookback"`
	PageLimit int    `json:"pageLimit"`
	MaxPages  int    `json:"maxPages"`
}

// Refresh rebuilds the report for a slug and persists it.
// POST /api/reports/{slug}/refresh
func (h *ReportHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	lookback := h.defaultLookback
	var over fetch.Overrides
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err == nil && len(body) > 0 {
		var req refreshRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.Lookback != "" {
			parsed, err := fetch.ParseLookback(req.Lookback)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			lookback = parsed
		}
		if req.PageLimit < 0 || req.MaxPages < 0 {
			writeError(w, http.StatusBadRequest, "pageLimit and maxPages must be positive")
			return
		}
		over.PageLimit = req.PageLimit
		over.MaxPages = req.MaxPages
	}

	result, err, _ := h.group.Do(slug, func() (any, error) {
		env, err := h.builder.Build(r.Context(), slug, lookback, over)
		if err != nil {
			return nil, err
		}
		if err := h.store.WriteReport(env.Slug, env.Report); err != nil {
			return nil, err
		}
		if err := h.store.UpsertSummary(env.Summary, h.refreshMode(slug)); err != nil {
			return nil, err
		}
		return env, nil
	})
	if err != nil {
		h.logger.Error("report refresh failed", "slug", slug, "error", err)
		writeError(w, statusFromError(err), err.Error())
		return
	}
	env := result.(report.Envelope)

	if h.cache != nil {
		if err := h.cache.SetReport(r.Context(), slug, env.Report); err != nil {
			h.logger.Warn("report cache fill failed", "slug", slug, "error", err)
		} else if err := h.cache.SetSummary(r.Context(), env.Summary); err != nil {
			h.logger.Warn("summary cache fill failed", "slug", slug, "error", err)
		}
	}
	if h.hub != nil {
		h.hub.Publish(ws.RefreshEvent{
			Slug:        slug,
			Score:       env.Report.Score,
			Label:       env.Report.Label,
			RefreshMode: h.refreshMode(slug),
			UpdatedAt:   env.Summary.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"report":  env.Report,
		"summary": env.Summary,
	})
}
