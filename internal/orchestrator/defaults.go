package orchestrator

import (
	"time"

	"financeshub/internal/gateway/binance"
	"financeshub/internal/gateway/yahoo"
)

const historyStart = "2020-01-01"

// DefaultJobs is the built-in job set: daily klines for the three majors and the two
// benchmark indices, all from 2020-01-01 up to today.
func DefaultJobs(today time.Time) []Job {
	end := today.UTC().Format("2006-01-02")
	kline := func(name, symbol, asset string) Job {
		return NewExchangeJob(name, binance.KlineRequest{
			Symbol:        symbol,
			StartDate:     historyStart,
			EndDate:       end,
			QuoteCurrency: "usdt",
			Asset:         asset,
		})
	}
	return []Job{
		kline("binance_btcusdt_daily", "BTCUSDT", "BTC"),
		kline("binance_ethusdt_daily", "ETHUSDT", "ETH"),
		kline("binance_solusdt_daily", "SOLUSDT", "SOL"),
		indexJob("yfinance_sp500", yahoo.IndexSP500, end),
		indexJob("yfinance_ibov", yahoo.IndexIBOV, end),
	}
}

func indexJob(name string, idx yahoo.Index, end string) EquityJob {
	return NewEquityJob(name, idx.Symbol, historyStart, end, idx.Currency, "")
}
