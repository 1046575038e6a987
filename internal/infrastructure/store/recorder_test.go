package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breakoutlab/superstock/internal/domain/market"
	"github.com/breakoutlab/superstock/internal/domain/scoring"
	"github.com/breakoutlab/superstock/internal/domain/series"
	"github.com/breakoutlab/superstock/internal/infrastructure/providers"
)

type stubProvider struct {
	history series.Series
	quote   market.Quote
	err     error
}

func (s *stubProvider) History(context.Context, string, int) (series.Series, error) {
	return s.history, s.err
}

func (s *stubProvider) Quote(context.Context, string) (market.Quote, error) {
	return s.quote, s.err
}

func (s *stubProvider) Fundamentals(context.Context, string) (scoring.Bundle, error) {
	return scoring.Bundle{"symbol": "ACME"}, s.err
}

func TestRecorder_PersistsFetchedHistory(t *testing.T) {
	p, mock := newMockStore(t)

	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	stub := &stubProvider{history: series.Series{Symbol: "ACME", Bars: []series.Bar{
		{Date: day, Open: 10, High: 11, Low: 9.5, Close: 10.8, Volume: 150000},
	}}}
	r := NewRecorder(stub, p, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ohlcv_bars").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, err := r.History(context.Background(), "ACME", 90)
	require.NoError(t, err)
	assert.Len(t, s.Bars, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_FallsBackToStoredHistory(t *testing.T) {
	p, mock := newMockStore(t)

	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"symbol", "date", "open", "high", "low", "close", "volume"}).
		AddRow("ACME", day, 10.0, 11.0, 9.5, 10.8, 150000.0)
	mock.ExpectQuery("SELECT symbol, date, open, high, low, close, volume").
		WillReturnRows(rows)

	r := NewRecorder(&stubProvider{err: assert.AnError}, p, zerolog.Nop())

	s, err := r.History(context.Background(), "ACME", 90)
	require.NoError(t, err)
	require.Len(t, s.Bars, 1)
	assert.Equal(t, 10.8, s.Bars[0].Close)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_NotFoundIsNotMasked(t *testing.T) {
	p, _ := newMockStore(t)
	r := NewRecorder(&stubProvider{err: providers.ErrNotFound}, p, zerolog.Nop())

	_, err := r.History(context.Background(), "GONE", 90)
	assert.ErrorIs(t, err, providers.ErrNotFound)
}

func TestRecorder_RecordsQuote(t *testing.T) {
	p, mock := newMockStore(t)

	stub := &stubProvider{quote: market.Quote{Symbol: "ACME", Sector: "Industrials", Price: 11.5}}
	r := NewRecorder(stub, p, zerolog.Nop())

	mock.ExpectExec("INSERT INTO quotes").WillReturnResult(sqlmock.NewResult(0, 1))

	q, err := r.Quote(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "ACME", q.Symbol)
	assert.NoError(t, mock.ExpectationsWereMet())
}
