package orchestrator

import (
	"strconv"
	"strings"

	"financeshub/internal/gateway/binance"
	"financeshub/internal/jobspec"
	"financeshub/internal/pkg/errkind"
	"financeshub/internal/pkg/symbol"
)

const (
	CategoryBinance   = "binance"
	CategoryCoingecko = "coingecko"
	CategoryYFinance  = "yfinance"
)

// Job is a named, stateless unit of work bound to one adapter. The set of implementations
// is closed: ExchangeJob, ExchangePriceJob, MarketDataJob and EquityJob.
type Job interface {
	JobName() string
	Category() string
	sealed()
}

// ExchangeJob pulls daily klines.
type ExchangeJob struct {
	Name    string
	Request binance.KlineRequest
}

// ExchangePriceJob reads the current spot price of one symbol.
type ExchangePriceJob struct {
	Name   string
	Symbol string
	Quote  string
	Asset  string
}

type MarketDataMode string

const (
	MarketChart  MarketDataMode = "chart"
	CurrentPrice MarketDataMode = "price"
	DailyPrices  MarketDataMode = "daily"
)

// MarketDataJob calls one of the market-data endpoints. Days is "max" or a day count for
// charts and a positive day count for DailyPrices.
type MarketDataJob struct {
	Name     string
	Mode     MarketDataMode
	CoinID   string
	Days     string
	Currency string
	Asset    string
}

// EquityJob pulls daily closes of an index or stock for [StartDate, EndDate); an empty EndDate
// means today (UTC).
type EquityJob struct {
	Name      string
	Symbol    string
	StartDate string
	EndDate   string
	Currency  string
	Asset     string
}

func (j ExchangeJob) JobName() string      { return j.Name }
func (j ExchangePriceJob) JobName() string { return j.Name }
func (j MarketDataJob) JobName() string    { return j.Name }
func (j EquityJob) JobName() string        { return j.Name }

func (ExchangeJob) Category() string      { return CategoryBinance }
func (ExchangePriceJob) Category() string { return CategoryBinance }
func (MarketDataJob) Category() string    { return CategoryCoingecko }
func (EquityJob) Category() string        { return CategoryYFinance }

func (ExchangeJob) sealed()      {}
func (ExchangePriceJob) sealed() {}
func (MarketDataJob) sealed()    {}
func (EquityJob) sealed()        {}

// NewExchangeJob binds a kline request; an empty name becomes binance_<symbol>.
func NewExchangeJob(name string, req binance.KlineRequest) ExchangeJob {
	if name == "" {
		name = "binance_" + req.Symbol
	}
	return ExchangeJob{Name: name, Request: req}
}

// NewEquityJob binds a close-price request; an empty name becomes yfinance_<symbol>.
func NewEquityJob(name, symbol, start, end, currency, asset string) EquityJob {
	if name == "" {
		name = "yfinance_" + symbol
	}
	return EquityJob{Name: name, Symbol: symbol, StartDate: start, EndDate: end, Currency: currency, Asset: asset}
}

// NewMarketDataJob binds a market-data request; an empty name becomes coingecko_<coin>_<mode>.
func NewMarketDataJob(name string, mode MarketDataMode, coinID, days, currency, asset string) MarketDataJob {
	if mode == DailyPrices && coinID == "" {
		coinID = "bitcoin"
	}
	if name == "" {
		name = "coingecko_" + coinID + "_" + string(mode)
	}
	return MarketDataJob{Name: name, Mode: mode, CoinID: coinID, Days: days, Currency: currency, Asset: asset}
}

// FromDescriptors turns declared descriptors into jobs, keeping their order.
func FromDescriptors(descs []jobspec.Descriptor) ([]Job, error) {
	jobs := make([]Job, 0, len(descs))
	seen := make(map[string]struct{}, len(descs))
	for i, d := range descs {
		name := strings.TrimSpace(d.Name)
		if name == "" || strings.TrimSpace(d.Type) == "" {
			return nil, errkind.Config("job #%d: name and type are required", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, errkind.Config("duplicate job name %q", name)
		}
		seen[name] = struct{}{}
		job, err := fromDescriptor(d)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func fromDescriptor(d jobspec.Descriptor) (Job, error) {
	switch d.Type {
	case jobspec.TypeBinanceKlines:
		sym, quote, asset := exchangeSymbol(d)
		return NewExchangeJob(d.Name, binance.KlineRequest{
			Symbol:        sym,
			StartDate:     d.StartDate,
			EndDate:       d.EndDate,
			QuoteCurrency: quote,
			Asset:         asset,
		}), nil
	case jobspec.TypeBinancePrice:
		sym, quote, asset := exchangeSymbol(d)
		return ExchangePriceJob{Name: d.Name, Symbol: sym, Quote: quote, Asset: asset}, nil
	case jobspec.TypeCoingeckoChart:
		return NewMarketDataJob(d.Name, MarketChart, d.CoinID, d.Days, d.Currency, d.Asset), nil
	case jobspec.TypeCoingeckoPrice:
		return NewMarketDataJob(d.Name, CurrentPrice, d.CoinID, "", d.Currency, d.Asset), nil
	case jobspec.TypeCoingeckoDaily:
		if n, err := strconv.Atoi(d.Days); err != nil || n <= 0 {
			return nil, errkind.Config("job %q: days must be a positive integer, got %q", d.Name, d.Days)
		}
		return NewMarketDataJob(d.Name, DailyPrices, d.CoinID, d.Days, d.Currency, d.Asset), nil
	case jobspec.TypeYahooClose:
		return NewEquityJob(d.Name, d.Symbol, d.StartDate, d.EndDate, d.Currency, d.Asset), nil
	}
	return nil, errkind.Config("job %q: unknown type %q", d.Name, d.Type)
}

// exchangeSymbol normalizes a declared pair ("btc/usdt" or "BTCUSDT") and fills the quote
// currency and asset from it when the descriptor leaves them empty.
func exchangeSymbol(d jobspec.Descriptor) (sym, quote, asset string) {
	pair := symbol.Parse(d.Symbol)
	sym, quote, asset = symbol.Exchange(d.Symbol), d.Currency, d.Asset
	if quote == "" && pair.Valid() {
		quote = strings.ToLower(pair.Quote)
	}
	if asset == "" && pair.Valid() {
		asset = pair.Base
	}
	return sym, quote, asset
}
