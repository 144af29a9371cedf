package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// DefaultDataBase is the production Data API root.
const DefaultDataBase = "https://data-api.polymarket.com"

// DataClient is the REST client for the Data API trades endpoint. It fetches
// one page per call; pagination, rate limiting, and retries live in the
// fetch package.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a new Data API client. timeout bounds each request;
// exceeding it surfaces as a transport error that counts toward the caller's
// retry budget.
func NewDataClient(baseURL string, timeout time.Duration) *DataClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchTradesPage returns one page of trades for the event, newest first as
// delivered upstream. Rows missing required fields yield a
// *domain.ValidationError.
func (d *DataClient) FetchTradesPage(ctx context.Context, eventID int64, limit, offset int) ([]domain.Trade, error) {
	params := url.Values{}
	params.Set("eventId", strconv.FormatInt(eventID, 10))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/trades?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("polymarket/data: trades page offset=%d: %w", offset, err)
	}

	var apiTrades []APITrade
	if err := json.Unmarshal(body, &apiTrades); err != nil {
		return nil, &domain.ValidationError{Field: "trades", Err: err}
	}

	trades := make([]domain.Trade, 0, len(apiTrades))
	for i := range apiTrades {
		trade, err := apiTrades[i].ToDomainTrade()
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, nil
}
