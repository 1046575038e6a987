package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/breakoutlab/superstock/internal/domain/market"
	"github.com/breakoutlab/superstock/internal/domain/scoring"
	"github.com/breakoutlab/superstock/internal/domain/series"
	"github.com/breakoutlab/superstock/internal/infrastructure/cache"
)

// HTTPConfig bounds the HTTP provider client.
type HTTPConfig struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration

	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// HTTP is a MarketDataProvider backed by a JSON API, guarded by a token
// bucket rate limiter and a circuit breaker, with a cache consulted before
// every request.
type HTTP struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   cache.Cache
	ttl     func(kind string) time.Duration
	log     zerolog.Logger
}

// NewHTTP wires the guarded client. ttl maps a payload kind (history, quote,
// fundamentals) to its cache lifetime.
func NewHTTP(cfg HTTPConfig, c cache.Cache, ttl func(kind string) time.Duration, log zerolog.Logger) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "market-data",
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// An unknown symbol is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &HTTP{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: breaker,
		cache:   c,
		ttl:     ttl,
		log:     log,
	}
}

type historyPayload struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"historical"`
}

// History fetches daily bars and returns them oldest first.
func (h *HTTP) History(ctx context.Context, symbol string, days int) (series.Series, error) {
	var payload historyPayload
	key := fmt.Sprintf("history:%s:%d", symbol, days)
	path := fmt.Sprintf("/historical-price-full/%s?timeseries=%d", url.PathEscape(symbol), days)
	if err := h.getJSON(ctx, "history", key, path, &payload); err != nil {
		return series.Series{}, err
	}

	// The API serves newest first.
	bars := make([]series.Bar, 0, len(payload.Historical))
	for i := len(payload.Historical) - 1; i >= 0; i-- {
		row := payload.Historical[i]
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			return series.Series{}, fmt.Errorf("parse bar date %q for %s: %w", row.Date, symbol, err)
		}
		bars = append(bars, series.Bar{
			Date: date, Open: row.Open, High: row.High, Low: row.Low,
			Close: row.Close, Volume: row.Volume,
		})
	}
	return series.Series{Symbol: symbol, Bars: bars}, nil
}

type quotePayload struct {
	Symbol    string  `json:"symbol"`
	Sector    string  `json:"sector"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	MarketCap float64 `json:"marketCap"`
	PERatio   float64 `json:"pe"`
}

// Quote fetches the current snapshot for the market context.
func (h *HTTP) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	var payload []quotePayload
	key := "quote:" + symbol
	path := "/quote/" + url.PathEscape(symbol)
	if err := h.getJSON(ctx, "quote", key, path, &payload); err != nil {
		return market.Quote{}, err
	}
	if len(payload) == 0 {
		return market.Quote{}, fmt.Errorf("quote %s: %w", symbol, ErrNotFound)
	}
	q := payload[0]
	return market.Quote{
		Symbol:    q.Symbol,
		Sector:    q.Sector,
		Price:     q.Price,
		Volume:    q.Volume,
		MarketCap: q.MarketCap,
		PERatio:   q.PERatio,
	}, nil
}

// Fundamentals fetches the symbol's scoring bundle as-is.
func (h *HTTP) Fundamentals(ctx context.Context, symbol string) (scoring.Bundle, error) {
	var bundle scoring.Bundle
	key := "fundamentals:" + symbol
	path := "/fundamentals/" + url.PathEscape(symbol)
	if err := h.getJSON(ctx, "fundamentals", key, path, &bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

// getJSON resolves a payload: cache first, then the guarded network path.
func (h *HTTP) getJSON(ctx context.Context, kind, key, path string, dest any) error {
	if h.cache != nil {
		err := h.cache.Get(ctx, key, dest)
		if err == nil {
			return nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			h.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := h.breaker.Execute(func() (interface{}, error) {
		return h.fetch(ctx, path)
	})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}

	if err := json.Unmarshal(body.([]byte), dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, dest, h.ttl(kind)); err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return nil
}

func (h *HTTP) fetch(ctx context.Context, path string) ([]byte, error) {
	u := h.cfg.BaseURL + path
	if h.cfg.APIKey != "" {
		sep := "?"
		if len(path) > 0 && containsQuery(path) {
			sep = "&"
		}
		u += sep + "apikey=" + url.QueryEscape(h.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func containsQuery(path string) bool {
	for _, c := range path {
		if c == '?' {
			return true
		}
	}
	return false
}
