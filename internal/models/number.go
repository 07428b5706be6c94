package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is an optional numeric field decoded leniently from JSON.
//
// Numbers and numeric strings ("12,000" included) decode to a valid value.
// null, a missing field, or anything that does not parse to a finite number
// decodes to the zero Number, which is not Valid.
type Number struct {
	Value float64
	Valid bool
}

// NewNumber returns a valid Number holding v.
func NewNumber(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Positive reports whether n holds a finite value greater than zero.
func (n Number) Positive() bool {
	return n.Valid && n.Value > 0
}

// UnmarshalJSON implements json.Unmarshaler. It never returns an error.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = strings.TrimSpace(strings.ReplaceAll(unquoted, ",", ""))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = Number{Value: f, Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
