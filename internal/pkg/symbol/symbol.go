// Package symbol parses exchange trading pairs such as "BTCUSDT" or "btc/usdt".
package symbol

import "strings"

// quoteCurrencies are tried as suffixes, longest first so "FDUSD" wins over "USD".
var quoteCurrencies = []string{"FDUSD", "USDT", "USDC", "BUSD", "TUSD", "BRL", "EUR", "TRY", "BTC", "ETH", "BNB"}

type Pair struct {
	Base  string
	Quote string
}

// Exchange renders the pair the way spot REST endpoints expect it, e.g. "BTCUSDT".
func (p Pair) Exchange() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + p.Quote
}

func (p Pair) Valid() bool {
	return p.Base != "" && p.Quote != ""
}

// Parse accepts "BASE/QUOTE", "BASE/QUOTE:SETTLE" or a concatenated symbol with a known quote
// suffix. Unknown shapes yield the zero Pair.
func Parse(s string) Pair {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Pair{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if base, quote, ok := strings.Cut(s, "/"); ok {
		return Pair{Base: strings.TrimSpace(base), Quote: strings.TrimSpace(quote)}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Pair{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Pair{}
}

// Exchange normalizes a user-written symbol to the exchange form. Symbols that do not parse
// are upper-cased and returned as is.
func Exchange(s string) string {
	if p := Parse(s); p.Valid() {
		return p.Exchange()
	}
	return strings.ToUpper(strings.TrimSpace(s))
}
