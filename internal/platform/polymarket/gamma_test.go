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

func gammaServer(t *testing.T, handler http.HandlerFunc) *GammaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGammaClient(srv.URL, 5*time.Second)
}

func TestGetEventBySlugResolvesMarkets(t *testing.T) {
	client := gammaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/slug/will-it-rain", r.URL.Path)
		w.Write([]byte(`{
			"id": "4242",
			"title": "Will it rain?",
			"slug": "will-it-rain",
			"markets": [
				{
					"conditionId": "cond-1",
					"question": "Will it rain?",
					"orderMinSize": "5",
					"orderPriceMinTickSize": "0.001",
					"outcomes": "[\"Yes\",\"No\"]"
				},
				{"question": "no condition id, skipped"}
			]
		}`))
	})

	event, err := client.GetEventBySlug(context.Background(), "will-it-rain")
	require.NoError(t, err)
	assert.Equal(t, int64(4242), event.ID)
	assert.Equal(t, "Will it rain?", event.Title)
	require.Len(t, event.Markets, 1)
	market := event.Markets["cond-1"]
	assert.InDelta(t, 5.0, market.OrderMinSize, 1e-9)
	assert.InDelta(t, 0.001, market.TickSize, 1e-9)
	assert.Equal(t, []string{"Yes", "No"}, market.Outcomes)
}

func TestGetEventBySlugNotFound(t *testing.T) {
	client := gammaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.GetEventBySlug(context.Background(), "nope")
	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "nope", resErr.Slug)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetEventBySlugNoMarkets(t *testing.T) {
	client := gammaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 7, "title": "Empty", "slug": "empty", "markets": []}`))
	})

	_, err := client.GetEventBySlug(context.Background(), "empty")
	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.ErrorIs(t, err, domain.ErrNoMarkets)
}

func TestGetEventBySlugEmptySlug(t *testing.T) {
	client := gammaServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := client.GetEventBySlug(context.Background(), "")
	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestGetEventBySlugMalformedBody(t *testing.T) {
	client := gammaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": `))
	})
	_, err := client.GetEventBySlug(context.Background(), "broken")
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSearchEventsBareArray(t *testing.T) {
	client := gammaServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rain", r.URL.Query().Get("search"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`[
			{"id": 1, "title": "Rain in NYC", "slug": "rain-nyc", "status": "open"},
			{"id": 2, "title": "", "slug": "rain-sf"},
			{"id": 3, "title": "No slug row is skipped"}
		]`))
	})

	results, err := client.SearchEvents(context.Background(), "rain", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Rain in NYC", results[0].Title)
	assert.Equal(t, "rain-sf", results[1].Title, "empty title falls back to slug")
}

func TestSearchEventsWrappedPayloads(t *testing.T) {
	for _, body := range []string{
		`{"events": [{"id": 9, "title": "X", "slug": "x"}]}`,
		`{"data": [{"id": 9, "title": "X", "slug": "x"}]}`,
	} {
		client := gammaServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		results, err := client.SearchEvents(context.Background(), "x", 10)
		require.NoError(t, err, body)
		require.Len(t, results, 1, body)
		assert.Equal(t, int64(9), results[0].EventID)
	}
}

func TestSearchEventsUpstreamFailure(t *testing.T) {
	client := gammaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := client.SearchEvents(context.Background(), "x", 10)
	require.Error(t, err)
}
