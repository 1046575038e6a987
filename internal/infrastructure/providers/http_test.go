package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breakoutlab/superstock/internal/infrastructure/cache"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*HTTP, *cache.Memory) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	mem := cache.NewMemory()
	p := NewHTTP(HTTPConfig{
		BaseURL:           server.URL,
		RequestsPerSecond: 100,
		Burst:             10,
	}, mem, func(string) time.Duration { return time.Minute }, zerolog.Nop())
	return p, mem
}

func TestHistory_ReversesToOldestFirst(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/historical-price-full/ACME", r.URL.Path)
		w.Write([]byte(`{
			"symbol": "ACME",
			"historical": [
				{"date": "2024-05-03", "open": 11, "high": 12, "low": 10.5, "close": 11.5, "volume": 200000},
				{"date": "2024-05-02", "open": 10, "high": 11, "low": 9.5, "close": 10.8, "volume": 150000}
			]
		}`))
	})

	s, err := p.History(context.Background(), "ACME", 2)
	require.NoError(t, err)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, "ACME", s.Symbol)
	assert.True(t, s.Bars[0].Date.Before(s.Bars[1].Date))
	assert.Equal(t, 10.8, s.Bars[0].Close)
}

func TestQuote(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"ACME","sector":"Industrials","price":11.5,"volume":200000,"marketCap":95000000,"pe":8.2}]`))
	})

	q, err := p.Quote(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "Industrials", q.Sector)
	assert.Equal(t, 8.2, q.PERatio)
}

func TestQuote_EmptyResponseIsNotFound(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := p.Quote(context.Background(), "GONE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFundamentals_NotFoundStatus(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := p.Fundamentals(context.Background(), "GONE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetJSON_ServesSecondCallFromCache(t *testing.T) {
	calls := 0
	p, mem := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"symbol":"ACME","sector":"Industrials","price":11.5,"volume":200000,"marketCap":95000000,"pe":8.2}]`))
	})

	ctx := context.Background()
	_, err := p.Quote(ctx, "ACME")
	require.NoError(t, err)
	q, err := p.Quote(ctx, "ACME")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 11.5, q.Price)
	assert.Equal(t, int64(1), mem.Stats().TotalHits)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	p := NewHTTP(HTTPConfig{
		BaseURL:           server.URL,
		RequestsPerSecond: 100,
		Burst:             10,
		FailureThreshold:  2,
	}, nil, func(string) time.Duration { return time.Minute }, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := p.Quote(ctx, "ACME")
		require.Error(t, err)
	}
	// The breaker is open now; the request never reaches the server.
	_, err := p.Quote(ctx, "ACME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}
