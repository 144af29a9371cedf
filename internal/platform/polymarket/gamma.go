// Package polymarket implements the REST clients for the Polymarket Gamma
// (event metadata) and Data (trade history) APIs.
package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// DefaultGammaBase is the production Gamma API root.
const DefaultGammaBase = "https://gamma-api.polymarket.com"

// GammaClient is the REST client for the Gamma API, which provides event
// discovery and per-market contract metadata.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetEventBySlug resolves an event slug to its metadata. Unknown slugs and
// events without markets return a *domain.ResolutionError; resolution is
// never retried.
func (g *GammaClient) GetEventBySlug(ctx context.Context, slug string) (domain.EventMeta, error) {
	if slug == "" {
		return domain.EventMeta{}, &domain.ResolutionError{Slug: slug, Err: errors.New("empty slug")}
	}

	path := "/events/slug/" + url.PathEscape(slug)
	body, err := g.doGet(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.EventMeta{}, &domain.ResolutionError{Slug: slug, Err: err}
		}
		return domain.EventMeta{}, fmt.Errorf("polymarket/gamma: get event by slug %s: %w", slug, err)
	}

	var apiEvent APIEvent
	if err := json.Unmarshal(body, &apiEvent); err != nil {
		return domain.EventMeta{}, &domain.ValidationError{Field: "event", Err: err}
	}
	if apiEvent.ID <= 0 {
		return domain.EventMeta{}, &domain.ValidationError{Field: "event.id", Err: domain.ErrNotFound}
	}

	event := domain.EventMeta{
		ID:      int64(apiEvent.ID),
		Slug:    slug,
		Title:   apiEvent.Title,
		Markets: make(map[string]domain.MarketMeta, len(apiEvent.Markets)),
	}
	if event.Title == "" {
		event.Title = slug
	}
	for i := range apiEvent.Markets {
		m := &apiEvent.Markets[i]
		if m.ConditionID == "" {
			continue
		}
		event.Markets[m.ConditionID] = m.ToDomainMarket()
	}
	if len(event.Markets) == 0 {
		return domain.EventMeta{}, &domain.ResolutionError{Slug: slug, Err: domain.ErrNoMarkets}
	}
	return event, nil
}

// SearchEvents returns open events matching the query string, for the
// dashboard search box.
func (g *GammaClient) SearchEvents(ctx context.Context, query string, limit int) ([]EventSearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("status", "open")
	if query != "" {
		params.Set("search", query)
	}

	body, err := g.doGet(ctx, "/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: search events: %w", err)
	}

	rows, err := decodeSearchPayload(body)
	if err != nil {
		return nil, &domain.ValidationError{Field: "events", Err: err}
	}

	results := make([]EventSearchResult, 0, len(rows))
	for _, row := range rows {
		if row.Slug == "" {
			continue
		}
		title := row.Title
		if title == "" {
			title = row.Slug
		}
		results = append(results, EventSearchResult{
			EventID: int64(row.ID),
			Title:   title,
			Slug:    row.Slug,
			Status:  row.Status,
		})
	}
	return results, nil
}

// decodeSearchPayload accepts the search response as a bare array or wrapped
// in {"events": [...]} / {"data": [...]}.
func decodeSearchPayload(body []byte) ([]APISearchEvent, error) {
	var rows []APISearchEvent
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	var wrapped struct {
		Events []APISearchEvent `json:"events"`
		Data   []APISearchEvent `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Events != nil {
		return wrapped.Events, nil
	}
	return wrapped.Data, nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx responses to domain sentinels so callers can
// distinguish definitional failures from transient ones.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	bodyStr := string(body)
	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
