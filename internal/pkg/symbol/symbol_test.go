package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]Pair{
		"BTCUSDT":        {Base: "BTC", Quote: "USDT"},
		"btc/usdt":       {Base: "BTC", Quote: "USDT"},
		"ETH/USDT:USDT":  {Base: "ETH", Quote: "USDT"},
		"SOLFDUSD":       {Base: "SOL", Quote: "FDUSD"},
		"ETHBTC":         {Base: "ETH", Quote: "BTC"},
		"USDT":           {},
		"":               {},
		"^GSPC":          {},
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in), in)
	}
}

func TestExchange(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Exchange("btc/usdt"))
	assert.Equal(t, "BTCUSDT", Exchange(" BTCUSDT "))
	assert.Equal(t, "XYZ", Exchange("xyz"))
}
