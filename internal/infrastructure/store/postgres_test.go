package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breakoutlab/superstock/internal/domain/market"
	"github.com/breakoutlab/superstock/internal/domain/series"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestSaveHistory(t *testing.T) {
	p, mock := newMockStore(t)

	day1 := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	s := series.Series{Symbol: "ACME", Bars: []series.Bar{
		{Date: day1, Open: 10, High: 11, Low: 9.5, Close: 10.8, Volume: 150000},
		{Date: day2, Open: 11, High: 12, Low: 10.5, Close: 11.5, Volume: 200000},
	}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ohlcv_bars").
		WithArgs("ACME", day1, 10.0, 11.0, 9.5, 10.8, 150000.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ohlcv_bars").
		WithArgs("ACME", day2, 11.0, 12.0, 10.5, 11.5, 200000.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, p.SaveHistory(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveHistory_RollsBackOnError(t *testing.T) {
	p, mock := newMockStore(t)

	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	s := series.Series{Symbol: "ACME", Bars: []series.Bar{
		{Date: day, Open: 10, High: 11, Low: 9.5, Close: 10.8, Volume: 150000},
	}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ohlcv_bars").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	assert.Error(t, p.SaveHistory(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHistory(t *testing.T) {
	p, mock := newMockStore(t)

	day1 := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	rows := sqlmock.NewRows([]string{"symbol", "date", "open", "high", "low", "close", "volume"}).
		AddRow("ACME", day1, 10.0, 11.0, 9.5, 10.8, 150000.0).
		AddRow("ACME", day2, 11.0, 12.0, 10.5, 11.5, 200000.0)

	mock.ExpectQuery("SELECT symbol, date, open, high, low, close, volume").
		WithArgs("ACME", 365).
		WillReturnRows(rows)

	s, err := p.LoadHistory(context.Background(), "ACME", 365)
	require.NoError(t, err)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, "ACME", s.Symbol)
	assert.Equal(t, 10.8, s.Bars[0].Close)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveQuote(t *testing.T) {
	p, mock := newMockStore(t)

	asOf := time.Date(2024, 5, 3, 21, 0, 0, 0, time.UTC)
	q := market.Quote{Symbol: "ACME", Sector: "Industrials", Price: 11.5, Volume: 200000, MarketCap: 95e6, PERatio: 8.2}

	mock.ExpectExec("INSERT INTO quotes").
		WithArgs("ACME", "Industrials", 11.5, 200000.0, 95e6, 8.2, asOf).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.SaveQuote(context.Background(), q, asOf))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestQuotes(t *testing.T) {
	p, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"symbol", "sector", "price", "volume", "marketcap", "peratio"}).
		AddRow("ACME", "Industrials", 11.5, 200000.0, 95e6, 8.2)

	mock.ExpectQuery("SELECT DISTINCT ON \\(symbol\\)").
		WillReturnRows(rows)

	quotes, err := p.LatestQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "ACME", quotes[0].Symbol)
	assert.NoError(t, mock.ExpectationsWereMet())
}
