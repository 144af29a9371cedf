package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alanyoungcy/polywatch/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultReportTTL = 10 * time.Minute

// ReportCache implements domain.ReportCache with JSON values. Full report
// payloads carry a TTL so a stalled refresher cannot serve stale scores
// forever; summaries live in a hash that mirrors the file-store index and
// is rewritten on every upsert.
//
// Key schema:
//
//	report:{slug}  - string with the JSON report payload
//	report:summary - hash, field per slug, JSON summary
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewReportCache creates a ReportCache backed by the given Client. A
// non-positive ttl falls back to 10 minutes.
func NewReportCache(c *Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	return &ReportCache{rdb: c.rdb, ttl: ttl}
}

func reportKey(slug string) string { return "report:" + slug }

const summaryKey = "report:summary"

// SetReport stores the full report payload for a slug with the cache TTL.
func (rc *ReportCache) SetReport(ctx context.Context, slug string, rep domain.EventReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("redis: marshal report %s: %w", slug, err)
	}
	if err := rc.rdb.Set(ctx, reportKey(slug), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set report %s: %w", slug, err)
	}
	return nil
}

// GetReport retrieves the cached report for a slug.
// It returns domain.ErrNotFound when the key does not exist or has expired.
func (rc *ReportCache) GetReport(ctx context.Context, slug string) (domain.EventReport, error) {
	data, err := rc.rdb.Get(ctx, reportKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EventReport{}, domain.ErrNotFound
		}
		return domain.EventReport{}, fmt.Errorf("redis: get report %s: %w", slug, err)
	}
	var rep domain.EventReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return domain.EventReport{}, fmt.Errorf("redis: unmarshal report %s: %w", slug, err)
	}
	return rep, nil
}

// SetSummary upserts the summary entry for its slug in the summary hash.
func (rc *ReportCache) SetSummary(ctx context.Context, summary domain.ReportSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: marshal summary %s: %w", summary.Slug, err)
	}
	if err := rc.rdb.HSet(ctx, summaryKey, summary.Slug, data).Err(); err != nil {
		return fmt.Errorf("redis: set summary %s: %w", summary.Slug, err)
	}
	return nil
}

// ListSummaries returns all cached summaries, sorted by slug for stable
// output.
func (rc *ReportCache) ListSummaries(ctx context.Context) ([]domain.ReportSummary, error) {
	entries, err := rc.rdb.HGetAll(ctx, summaryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list summaries: %w", err)
	}
	summaries := make([]domain.ReportSummary, 0, len(entries))
	for slug, data := range entries {
		var summary domain.ReportSummary
		if err := json.Unmarshal([]byte(data), &summary); err != nil {
			return nil, fmt.Errorf("redis: unmarshal summary %s: %w", slug, err)
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Slug < summaries[j].Slug })
	return summaries, nil
}

// Compile-time interface check.
var _ domain.ReportCache = (*ReportCache)(nil)
