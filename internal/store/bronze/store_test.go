package bronze

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"financeshub/internal/envelope"
	"financeshub/internal/pkg/errkind"
	"financeshub/internal/tradeevent"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) (*Store, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "bronze.db")
	s := New(Options{
		EnvelopeTable: "ingestion_events",
		TradeTable:    "pdf_nuinvest_trade_events",
		Dialector:     sqlite.Open,
	})
	require.NoError(t, s.EnsureSchema(context.Background(), dsn))
	return s, dsn
}

func openDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestInsertEnvelopes(t *testing.T) {
	s, dsn := newSQLiteStore(t)
	envs := []envelope.Envelope{
		envelope.New(envelope.Fields{Source: "binance", Asset: "BTC", Currency: "usdt", Payload: map[string]any{"close": "1.5"}}),
		envelope.New(envelope.Fields{Source: "binance", Asset: "ETH", Currency: "usdt", RequestParams: map[string]string{"symbol": "ETHUSDT"}}),
	}
	n, err := s.InsertEnvelopes(context.Background(), dsn, envs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var rows []envelopeRow
	require.NoError(t, openDB(t, dsn).Table("ingestion_events").Order("asset").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, envs[0].UID, rows[0].UID)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	assert.Equal(t, "1.5", payload["close"])
	var params map[string]string
	require.NoError(t, json.Unmarshal(rows[1].RequestParams, &params))
	assert.Equal(t, "ETHUSDT", params["symbol"])
}

func TestInsertEnvelopes_EmptySkipsDSNCheck(t *testing.T) {
	s := New(Options{})
	n, err := s.InsertEnvelopes(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.InsertTradeEvents(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertEnvelopes_MissingDSN(t *testing.T) {
	s := New(Options{})
	_, err := s.InsertEnvelopes(context.Background(), " ", []envelope.Envelope{envelope.New(envelope.Fields{Source: "x"})})
	assert.ErrorIs(t, err, errkind.ErrConfig)
}

func TestInsertEnvelopes_DefaultDSN(t *testing.T) {
	s, dsn := newSQLiteStore(t)
	s.opt.DSN = dsn
	n, err := s.InsertEnvelopes(context.Background(), "", []envelope.Envelope{envelope.New(envelope.Fields{Source: "x"})})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertEnvelopes_MissingTableFailsWholeBatch(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "empty.db")
	s := New(Options{EnvelopeTable: "missing_table", Dialector: sqlite.Open})
	n, err := s.InsertEnvelopes(context.Background(), dsn, []envelope.Envelope{envelope.New(envelope.Fields{Source: "x"})})
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestInsertTradeEvents(t *testing.T) {
	s, dsn := newSQLiteStore(t)
	day := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	ev, err := tradeevent.New(tradeevent.Event{
		Source:        "pdf_nuinvest",
		RequestParams: map[string]string{"file": "nota.pdf"},
		Mercado:       "1-BOVESPA",
		CV:            "C",
		TipoMercado:   "VISTA",
		EspecTitulo:   "PETR4 PN",
		Quantidade:    100,
		Preco:         decimal.RequireFromString("38.12"),
		Valor:         decimal.RequireFromString("3812.00"),
		DC:            "D",
		FilePath:      "/data/nota.pdf",
		FileName:      "nota.pdf",
		StatementDate: &day,
	})
	require.NoError(t, err)

	n, err := s.InsertTradeEvents(context.Background(), dsn, []tradeevent.Event{ev})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int64
	require.NoError(t, openDB(t, dsn).Table("pdf_nuinvest_trade_events").Where("uid = ?", ev.UID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestInsertTradeEvents_RejectsInvalid(t *testing.T) {
	s, dsn := newSQLiteStore(t)
	_, err := s.InsertTradeEvents(context.Background(), dsn, []tradeevent.Event{{UID: "x", DC: "Z"}})
	assert.ErrorIs(t, err, errkind.ErrInput)
}
