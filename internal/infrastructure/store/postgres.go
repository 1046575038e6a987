// Package store persists fetched market data in PostgreSQL so repeated
// scans do not replay provider history requests. Scan results themselves are
// never stored.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/breakoutlab/superstock/internal/domain/market"
	"github.com/breakoutlab/superstock/internal/domain/series"
)

// Postgres is the OHLCV and quote repository.
type Postgres struct {
	db *sqlx.DB
}

// Open connects to the database and verifies the connection.
func Open(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Postgres{db: db}, nil
}

// New wraps an existing connection, used by tests.
func New(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

type barRow struct {
	Symbol string    `db:"symbol"`
	Date   time.Time `db:"date"`
	Open   float64   `db:"open"`
	High   float64   `db:"high"`
	Low    float64   `db:"low"`
	Close  float64   `db:"close"`
	Volume float64   `db:"volume"`
}

// SaveHistory upserts the series bars inside one transaction.
func (p *Postgres) SaveHistory(ctx context.Context, s series.Series) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save history: %w", err)
	}
	defer tx.Rollback()

	const stmt = `
		INSERT INTO ohlcv_bars (symbol, date, open, high, low, close, volume)
		VALUES (:symbol, :date, :open, :high, :low, :close, :volume)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low,
			close = EXCLUDED.close, volume = EXCLUDED.volume`

	for _, b := range s.Bars {
		row := barRow{
			Symbol: s.Symbol, Date: b.Date, Open: b.Open, High: b.High,
			Low: b.Low, Close: b.Close, Volume: b.Volume,
		}
		if _, err := tx.NamedExecContext(ctx, stmt, row); err != nil {
			return fmt.Errorf("upsert bar %s %s: %w", s.Symbol, b.Date.Format("2006-01-02"), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save history: %w", err)
	}
	return nil
}

// LoadHistory returns up to limit bars for a symbol, oldest first.
func (p *Postgres) LoadHistory(ctx context.Context, symbol string, limit int) (series.Series, error) {
	const query = `
		SELECT symbol, date, open, high, low, close, volume
		FROM (
			SELECT symbol, date, open, high, low, close, volume
			FROM ohlcv_bars WHERE symbol = $1
			ORDER BY date DESC LIMIT $2
		) recent
		ORDER BY date ASC`

	var rows []barRow
	if err := p.db.SelectContext(ctx, &rows, query, symbol, limit); err != nil {
		return series.Series{}, fmt.Errorf("load history %s: %w", symbol, err)
	}

	bars := make([]series.Bar, len(rows))
	for i, r := range rows {
		bars[i] = series.Bar{
			Date: r.Date, Open: r.Open, High: r.High, Low: r.Low,
			Close: r.Close, Volume: r.Volume,
		}
	}
	return series.Series{Symbol: symbol, Bars: bars}, nil
}

// SaveQuote records a quote snapshot.
func (p *Postgres) SaveQuote(ctx context.Context, q market.Quote, asOf time.Time) error {
	const stmt = `
		INSERT INTO quotes (symbol, sector, price, volume, market_cap, pe_ratio, as_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, as_of) DO NOTHING`

	if _, err := p.db.ExecContext(ctx, stmt, q.Symbol, q.Sector, q.Price, q.Volume, q.MarketCap, q.PERatio, asOf); err != nil {
		return fmt.Errorf("save quote %s: %w", q.Symbol, err)
	}
	return nil
}

// LatestQuotes returns the most recent quote per symbol.
func (p *Postgres) LatestQuotes(ctx context.Context) ([]market.Quote, error) {
	const query = `
		SELECT DISTINCT ON (symbol)
			symbol, sector, price, volume, market_cap AS marketcap, pe_ratio AS peratio
		FROM quotes
		ORDER BY symbol, as_of DESC`

	var quotes []market.Quote
	if err := p.db.SelectContext(ctx, &quotes, query); err != nil {
		return nil, fmt.Errorf("load latest quotes: %w", err)
	}
	return quotes, nil
}
