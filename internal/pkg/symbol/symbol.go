// Package symbol splits cache ticker names into base and quote assets.
package symbol

import (
	"strings"
)

// quoteCurrencies are tried in order when a ticker has no separator.
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "FDUSD", "TUSD", "BTC", "ETH", "BNB"}

type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Valid() bool { return s.Base != "" && s.Quote != "" }

// String returns "BASE/QUOTE".
func (s Symbol) String() string {
	if !s.Valid() {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Compact returns the exchange form "BASEQUOTE".
func (s Symbol) Compact() string {
	if !s.Valid() {
		return ""
	}
	return s.Base + s.Quote
}

// Parse accepts "eth/usdt", "ETH-USDT", "eth_usdt", "ETHUSDT" and the
// settlement suffix form "ETH/USDT:USDT".
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.IndexAny(s, "/-_ "); idx >= 0 {
		base := strings.TrimSpace(s[:idx])
		quote := strings.TrimSpace(s[idx+1:])
		if base == "" || quote == "" || strings.ContainsAny(quote, "/-_ ") {
			return Symbol{}
		}
		return Symbol{Base: base, Quote: quote}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

// Compact maps any ticker spelling to the exchange form. Names Parse cannot
// split are upper-cased with separators removed.
func Compact(ticker string) string {
	if sym := Parse(ticker); sym.Valid() {
		return sym.Compact()
	}
	r := strings.NewReplacer("/", "", "-", "", "_", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(ticker)))
}
