package market

import (
	"errors"
	"strings"
)

// DefaultExchange is the exchange suffix appended to tickers given without one.
const DefaultExchange = "SA"

// ErrEmptyTicker is returned when a ticker string is blank.
var ErrEmptyTicker = errors.New("empty ticker")

// Ticker identifies one tradable instrument, e.g. PETR4.SA.
// The zero value is not a valid ticker; use ParseTicker.
type Ticker struct {
	symbol   string
	exchange string
}

// ParseTicker trims and upper-cases s and appends the default exchange
// suffix when s has none.
func ParseTicker(s string) (Ticker, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Ticker{}, ErrEmptyTicker
	}

	symbol, exchange := s, DefaultExchange
	if i := strings.LastIndexByte(s, '.'); i >= 0 && isExchangeSuffix(s[i+1:]) {
		symbol, exchange = s[:i], s[i+1:]
	}
	if symbol == "" {
		return Ticker{}, ErrEmptyTicker
	}

	return Ticker{symbol: symbol, exchange: exchange}, nil
}

// MustParseTicker is like ParseTicker but panics on error. Intended for tests
// and static tables.
func MustParseTicker(s string) Ticker {
	t, err := ParseTicker(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTickers parses every entry of list, skipping blanks.
func ParseTickers(list []string) ([]Ticker, error) {
	out := make([]Ticker, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) == "" {
			continue
		}
		t, err := ParseTicker(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// isExchangeSuffix reports whether s looks like a market suffix (1-3 letters).
func isExchangeSuffix(s string) bool {
	if len(s) == 0 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// String returns the full ticker including the exchange suffix.
func (t Ticker) String() string {
	if t.symbol == "" {
		return ""
	}
	return t.symbol + "." + t.exchange
}

// Symbol returns the ticker without the exchange suffix.
func (t Ticker) Symbol() string { return t.symbol }

// Exchange returns the exchange suffix without the dot.
func (t Ticker) Exchange() string { return t.exchange }

// IsZero reports whether t is the zero Ticker.
func (t Ticker) IsZero() bool { return t.symbol == "" }

// MarshalText implements encoding.TextMarshaler.
func (t Ticker) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
