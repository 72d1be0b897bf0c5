package binance

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerPrice(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tickerPath, r.URL.Path)
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"SOLUSDT","price":"101.25000000"}`))
	})
	envs, err := c.TickerPrice(context.Background(), "SOLUSDT", "", "SOL")
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "SOL", envs[0].Asset)
	assert.Equal(t, "usdt", envs[0].Currency)
	assert.Equal(t, "101.25000000", envs[0].Payload["price"])
	assert.Equal(t, c.BaseURL()+tickerPath, envs[0].Endpoint)
}

func TestTickerPrice_UpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})
	_, err := c.TickerPrice(context.Background(), "NOPE", "usdt", "")
	assert.Error(t, err)
}
