//go:build integration

package bronze

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"financeshub/internal/envelope"
	"financeshub/internal/sqlscript"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// startPostgres runs a throwaway Postgres and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("financeshub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgres_BronzeToSilver(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()
	store := New(Options{})
	require.NoError(t, store.EnsureSchema(ctx, dsn))

	kline := envelope.New(envelope.Fields{
		Source:   "binance",
		Endpoint: "https://api.binance.com/api/v3/klines",
		Asset:    "BTC",
		Currency: "usdt",
		Payload: map[string]any{
			"symbol":   "BTCUSDT",
			"interval": "1d",
			"rows": []any{
				map[string]any{"open_time": json.Number("1704067200000"), "close_time": json.Number("1704153599999"), "close": "42250.5"},
			},
		},
	})
	closes := envelope.New(envelope.Fields{
		Source:   "yfinance",
		Asset:    "^GSPC",
		Currency: "usd",
		Payload: map[string]any{
			"symbol": "^GSPC",
			"rows":   []any{map[string]any{"date": "2024-01-02", "value": json.Number("4742.83")}},
		},
	})
	n, err := store.InsertEnvelopes(ctx, dsn, []envelope.Envelope{kline, closes})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	runner := sqlscript.NewRunner(dsn, nil)
	silver := filepath.Join("..", "..", "..", "sql", "silver")
	_, err = sqlscript.RunDir(ctx, runner, "", silver, sqlscript.LoadSchema)
	require.NoError(t, err)
	_, err = sqlscript.RunDir(ctx, runner, "", silver, sqlscript.LoadTransforms)
	require.NoError(t, err)
	_, err = sqlscript.RunDir(ctx, runner, "", filepath.Join("..", "..", "..", "sql", "tests"), sqlscript.LoadTests)
	require.NoError(t, err)

	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	var got struct {
		PriceDate  time.Time
		ClosePrice float64
	}
	require.NoError(t, db.Raw(`SELECT price_date, close_price::float8 AS close_price
		FROM silver.binance_prices WHERE symbol = 'BTCUSDT'`).Scan(&got).Error)
	assert.Equal(t, "2024-01-01", got.PriceDate.Format("2006-01-02"))
	assert.InDelta(t, 42250.5, got.ClosePrice, 1e-9)

	var count int64
	require.NoError(t, db.Raw(`SELECT count(*) FROM silver.yfinance_prices`).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}
