package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

func dataServer(t *testing.T, handler http.HandlerFunc) *DataClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDataClient(srv.URL, 5*time.Second)
}

func TestFetchTradesPagePassesPaginationParams(t *testing.T) {
	client := dataServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, "42", q.Get("eventId"))
		assert.Equal(t, "500", q.Get("limit"))
		assert.Equal(t, "1000", q.Get("offset"))
		w.Write([]byte(`[
			{
				"proxyWallet": "0x5409ED021D9299bf6814279A6A1411A7e866A631",
				"side": "SELL",
				"conditionId": "cond-1",
				"outcomeIndex": "0",
				"outcome": "Yes",
				"size": "3.5",
				"price": "0.42",
				"timestamp": "1700000000",
				"transactionHash": "0xabc"
			}
		]`))
	})

	trades, err := client.FetchTradesPage(context.Background(), 42, 500, 1000)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	trade := trades[0]
	assert.Equal(t, domain.SideSell, trade.Side)
	assert.Equal(t, "0x5409ed021d9299bf6814279a6a1411a7e866a631", trade.ProxyWallet)
	assert.InDelta(t, 3.5, trade.Size, 1e-9)
	assert.InDelta(t, 0.42, trade.Price, 1e-9)
	assert.Equal(t, int64(1700000000), trade.Timestamp)
	require.NotNil(t, trade.OutcomeIndex)
	assert.Equal(t, 0, *trade.OutcomeIndex)
}

func TestFetchTradesPageEmpty(t *testing.T) {
	client := dataServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	trades, err := client.FetchTradesPage(context.Background(), 1, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestFetchTradesPageRateLimited(t *testing.T) {
	client := dataServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	_, err := client.FetchTradesPage(context.Background(), 1, 100, 0)
	require.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestFetchTradesPageMalformedRowFailsValidation(t *testing.T) {
	client := dataServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"size": "2", "timestamp": 0, "transactionHash": "0x1"}]`))
	})
	_, err := client.FetchTradesPage(context.Background(), 1, 100, 0)
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "timestamp", validationErr.Field)
}

func TestFetchTradesPageMalformedBody(t *testing.T) {
	client := dataServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	})
	_, err := client.FetchTradesPage(context.Background(), 1, 100, 0)
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "trades", validationErr.Field)
}
