// Package stats is the aggregation engine: pure descriptive and
// inferential statistics over filtered incident subsets. Every
// operation is total over a well-formed subset, the empty subset
// included; "no qualifying rows" comes back as the undefined Value,
// never as a zero or a NaN.
package stats

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Value is a statistic that is either defined or the no-data sentinel.
// The zero value is undefined. Consumers must branch on Defined rather
// than read a raw number, which keeps "no rows" distinguishable from
// an honest zero.
type Value struct {
	v  float64
	ok bool
}

// Defined wraps v as a defined statistic.
func Defined(v float64) Value {
	return Value{v: v, ok: true}
}

// Undefined returns the no-qualifying-rows sentinel.
func Undefined() Value {
	return Value{}
}

// Defined reports whether the statistic exists.
func (v Value) Defined() bool {
	return v.ok
}

// Float returns the value and whether it is defined.
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// Or returns the value, or fallback when undefined.
func (v Value) Or(fallback float64) float64 {
	if !v.ok {
		return fallback
	}
	return v.v
}

// String renders the value, or "n/a" for the sentinel.
func (v Value) String() string {
	if !v.ok {
		return "n/a"
	}
	return strconv.FormatFloat(v.v, 'f', -1, 64)
}

// MarshalJSON writes the number, or null for the sentinel.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return eris.Wrap(err, "stats: unmarshal value")
	}
	*v = Defined(f)
	return nil
}

// Scope records how many subset rows backed a statistic, so every
// figure ships with its definition scope.
type Scope struct {
	Total   int `json:"total_rows"`
	Defined int `json:"defined_rows"`
}
