package market

import (
	"strconv"
)

// Value is a nullable float in canonical units. Null means the source did not
// provide the field (or provided something unparseable), which is distinct
// from zero.
type Value struct {
	f     float64
	valid bool
}

// Null is the absent value.
var Null = Value{}

// Some wraps f as a present value.
func Some(f float64) Value {
	return Value{f: f, valid: true}
}

// Float64 returns the value and whether it is present.
func (v Value) Float64() (float64, bool) {
	return v.f, v.valid
}

// IsNull reports whether v is absent.
func (v Value) IsNull() bool { return !v.valid }

// Or returns v when present and fallback otherwise.
func (v Value) Or(fallback Value) Value {
	if v.valid {
		return v
	}
	return fallback
}

// Mul returns v*o, or Null when either side is Null.
func (v Value) Mul(o Value) Value {
	if !v.valid || !o.valid {
		return Null
	}
	return Some(v.f * o.f)
}

func (v Value) String() string {
	if !v.valid {
		return "null"
	}
	return strconv.FormatFloat(v.f, 'f', -1, 64)
}

// MarshalJSON encodes v as a JSON number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.f, 'g', -1, 64), nil
}

// UnmarshalJSON accepts a JSON number or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Null
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
