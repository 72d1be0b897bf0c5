package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"financeshub/internal/pkg/errkind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{RESTBaseURL: srv.URL, HTTPTimeout: 2 * time.Second})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC) }
	return c, &calls
}

func TestKlines_SingleDay(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		if start > 1704067200000 {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[[1704067200000,"1","2","0.5","1.5","10",1704153599999,"0",0,"0","0","0"]]`))
	})

	envs, err := c.Klines(context.Background(), KlineRequest{
		Symbol:    "BTCUSDT",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-01",
	})
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.EqualValues(t, 2, calls.Load())

	env := envs[0]
	assert.Equal(t, "binance", env.Source)
	assert.Equal(t, "BTCUSDT", env.Asset)
	assert.Equal(t, "usdt", env.Currency)
	assert.Equal(t, "1704067200000", env.RequestParams["startTime"])
	assert.Equal(t, "1704153599000", env.RequestParams["endTime"])
	assert.Equal(t, "1000", env.RequestParams["limit"])
	assert.Equal(t, "1d", env.RequestParams["interval"])
	assert.Equal(t, "2024-01-01", env.RequestParams["end_date"])
	assert.Equal(t, "usdt", env.RequestParams["quote_currency"])

	rows, ok := env.Payload["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "1.5", row["close"])
	assert.Equal(t, json.Number("1704067200000"), row["open_time"])
	assert.Equal(t, json.Number("1704153599999"), row["close_time"])
}

func TestKlines_StartAfterEndFailsBeforeRequest(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := c.Klines(context.Background(), KlineRequest{Symbol: "BTCUSDT", StartDate: "2024-02-02", EndDate: "2024-02-01"})
	assert.ErrorIs(t, err, errkind.ErrInput)
	assert.Zero(t, calls.Load())
}

func TestKlines_InvalidDates(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.Klines(context.Background(), KlineRequest{Symbol: "BTCUSDT"})
	assert.ErrorIs(t, err, errkind.ErrInput)
	_, err = c.Klines(context.Background(), KlineRequest{Symbol: "BTCUSDT", StartDate: "01/02/2024"})
	assert.ErrorIs(t, err, errkind.ErrInput)
	assert.Zero(t, calls.Load())
}

func TestKlines_ObjectResponseIsShapeError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})
	envs, err := c.Klines(context.Background(), KlineRequest{Symbol: "NOPE", StartDate: "2024-01-01", EndDate: "2024-01-01"})
	assert.ErrorIs(t, err, errkind.ErrShape)
	assert.Empty(t, envs)
}

func TestKlines_SkipsShortRowsAndPaginates(t *testing.T) {
	var page atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch page.Add(1) {
		case 1:
			assert.Equal(t, "1704067200000", r.URL.Query().Get("startTime"))
			_, _ = w.Write([]byte(`[[1704067200000,"1","1","1","10.0","1",1704153599999],[1704153600000,"1","1"]]`))
		case 2:
			assert.Equal(t, "1704153600001", r.URL.Query().Get("startTime"))
			_, _ = w.Write([]byte(`[[1704240000000,"1","1","1","12.0","1",1704326399999]]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})
	envs, err := c.Klines(context.Background(), KlineRequest{
		Symbol:        "ETHUSDT",
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-03",
		QuoteCurrency: "usdt",
		Asset:         "ETH",
	})
	require.NoError(t, err)
	require.Len(t, envs, 2)
	assert.Equal(t, "ETH", envs[0].Asset)
	assert.Len(t, envs[0].Payload["rows"], 1)
	assert.Len(t, envs[1].Payload["rows"], 1)
	assert.NotEqual(t, envs[0].UID, envs[1].UID)
	assert.False(t, envs[1].FetchedAt.Before(envs[0].FetchedAt))
}

func TestKlines_StopsWhenWindowDoesNotAdvance(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1000,"1","1","1","1","1",2000]]`))
	})
	envs, err := c.Klines(context.Background(), KlineRequest{Symbol: "BTCUSDT", StartDate: "2024-01-01", EndDate: "2024-01-01"})
	require.NoError(t, err)
	assert.Len(t, envs, 1)
	assert.EqualValues(t, 1, calls.Load())
}

func TestKlines_EndDateDefaultsToToday(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, strconv.FormatInt(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC).UnixMilli()+dayTailMs, 10), r.URL.Query().Get("endTime"))
		if r.URL.Query().Get("startTime") == "1710028800001" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[[1710028800000,"1","1","1","70000","1",1710115199999]]`))
	})
	envs, err := c.Klines(context.Background(), KlineRequest{Symbol: "BTCUSDT", StartDate: "2024-03-10"})
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "2024-03-10", envs[0].RequestParams["end_date"])
}
