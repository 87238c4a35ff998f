// Package normalize turns the numeric text found on Brazilian market pages
// and APIs into canonical floats.
//
// Supported input looks like "R$ 1.234,56", "12,5%", "-3,2 %", "52,45 Bilhões",
// "1.5B" or "12.345.678". Anything that cannot be read yields market.Null;
// malformed input is expected and never panics.
package normalize

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"b3fundamentals/internal/market"
)

var hundred = decimal.NewFromInt(100)

// placeholders are texts sources print instead of a number.
var placeholders = map[string]struct{}{
	"":    {},
	"-":   {},
	"--":  {},
	"—":   {},
	"N/D": {},
	"N/A": {},
	"ND":  {},
	"NA":  {},
}

// magnitudes maps folded, lower-case suffix words to their multiplier.
var magnitudes = map[string]decimal.Decimal{
	"k":        decimal.New(1, 3),
	"mil":      decimal.New(1, 3),
	"m":        decimal.New(1, 6),
	"mi":       decimal.New(1, 6),
	"mm":       decimal.New(1, 6),
	"milhao":   decimal.New(1, 6),
	"milhoes":  decimal.New(1, 6),
	"b":        decimal.New(1, 9),
	"bi":       decimal.New(1, 9),
	"bilhao":   decimal.New(1, 9),
	"bilhoes":  decimal.New(1, 9),
	"t":        decimal.New(1, 12),
	"tri":      decimal.New(1, 12),
	"trilhao":  decimal.New(1, 12),
	"trilhoes": decimal.New(1, 12),
}

// Parse reads text without any field-specific convention: magnitude suffixes
// are applied and an explicit percent marker divides by 100.
func Parse(text string) market.Value {
	d, percent, ok := parse(text)
	if !ok {
		return market.Null
	}
	if percent {
		d = d.Div(hundred)
	}
	return toValue(d)
}

// Field reads text as a value of field f.
//
// An explicit "%" always divides by 100. Unmarked values of fractional fields
// (yield, margins, returns, growth) are divided by 100 only when their
// magnitude exceeds 1, because some sources already emit fractions. A genuine
// sub-1% value written without a marker ("0,5") is therefore read as 50%;
// this ambiguity is inherent to the sources and is not guessed away here.
func Field(f market.Field, text string) market.Value {
	d, percent, ok := parse(text)
	if !ok {
		return market.Null
	}
	if percent || (f.Fractional() && d.Abs().GreaterThan(decimal.NewFromInt(1))) {
		d = d.Div(hundred)
	}
	return toValue(d)
}

// Number wraps a value that is already numeric, as delivered by structured
// APIs whose units are documented. No percent heuristic is applied; NaN and
// infinities are null.
func Number(v float64) market.Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return market.Null
	}
	return market.Some(v)
}

func toValue(d decimal.Decimal) market.Value {
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return market.Null
	}
	return market.Some(f)
}

// parse extracts the decimal number, the percent flag and the magnitude from text.
func parse(text string) (d decimal.Decimal, percent bool, ok bool) {
	s := strings.TrimSpace(text)
	if _, skip := placeholders[strings.ToUpper(s)]; skip {
		return decimal.Zero, false, false
	}

	lastDigit := strings.LastIndexFunc(s, unicode.IsDigit)
	if lastDigit < 0 {
		return decimal.Zero, false, false
	}
	tail := s[lastDigit+1:]
	percent = strings.Contains(tail, "%")

	num, negative := digits(s[:lastDigit+1])
	num = separators(num)

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false, false
	}
	if negative {
		d = d.Neg()
	}
	if m, found := magnitudes[suffixWord(tail)]; found {
		d = d.Mul(m)
	}
	return d, percent, true
}

// digits keeps digits, separators and a minus sign that precedes the first
// digit; everything else is dropped.
func digits(s string) (string, bool) {
	var b strings.Builder
	b.Grow(len(s))
	negative, seenDigit := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == ',' || r == '.':
			if seenDigit {
				b.WriteRune(r)
			}
		case r == '-' || r == '−':
			if !seenDigit {
				negative = true
			}
		}
	}
	return strings.Trim(b.String(), ".,"), negative
}

// separators rewrites num so that '.' is the only, decimal, separator.
// When both separators appear the last one is the decimal point. A single
// kind of separator is a decimal point unless it repeats, in which case it
// groups thousands.
func separators(num string) string {
	comma := strings.LastIndexByte(num, ',')
	dot := strings.LastIndexByte(num, '.')

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			num = strings.ReplaceAll(num, ".", "")
			return strings.Replace(num, ",", ".", 1)
		}
		return strings.ReplaceAll(num, ",", "")
	case comma >= 0:
		if strings.Count(num, ",") > 1 {
			return strings.ReplaceAll(num, ",", "")
		}
		return strings.Replace(num, ",", ".", 1)
	case dot >= 0:
		if strings.Count(num, ".") > 1 {
			return strings.ReplaceAll(num, ".", "")
		}
	}
	return num
}

// suffixWord folds the text after the number down to a bare lower-case word.
func suffixWord(tail string) string {
	w := strings.ToLower(Fold(tail))
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
