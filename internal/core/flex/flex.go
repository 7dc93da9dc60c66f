// Package flex decodes the loosely typed scalars the backend returns: numbers
// that arrive as JSON numbers, numeric strings, empty strings or null, and id
// lists that arrive as arrays, single values or comma separated strings.
package flex

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Placeholder is rendered for any absent or non-numeric value.
const Placeholder = "-"

// Float is an optional number. Valid is false for null, missing, '' and any
// value that does not parse as a finite number.
type Float struct {
	Value float64
	Valid bool
}

func Some(v float64) Float {
	return Float{Value: v, Valid: true}
}

func (f *Float) UnmarshalJSON(b []byte) error {
	*f = FloatOf(decodeAny(b))
	return nil
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Display formats the value with the given decimals, or Placeholder.
func (f Float) Display(decimals int) string {
	if !f.Valid {
		return Placeholder
	}
	return strconv.FormatFloat(f.Value, 'f', decimals, 64)
}

// FloatOf converts an already decoded JSON value.
func FloatOf(v any) Float {
	switch t := v.(type) {
	case nil:
		return Float{}
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return Some(float64(t))
	case int64:
		return Some(float64(t))
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Float{}
		}
		return finite(n)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return Float{}
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Float{}
		}
		return finite(n)
	case Float:
		return t
	default:
		return Float{}
	}
}

func finite(n float64) Float {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Float{}
	}
	return Some(n)
}

// Int is an optional integer id or count. Fractional input is rejected.
type Int struct {
	Value int64
	Valid bool
}

func SomeInt(v int64) Int {
	return Int{Value: v, Valid: true}
}

func (i *Int) UnmarshalJSON(b []byte) error {
	*i = IntOf(decodeAny(b))
	return nil
}

func (i Int) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(i.Value)
}

func (i Int) String() string {
	if !i.Valid {
		return ""
	}
	return strconv.FormatInt(i.Value, 10)
}

func IntOf(v any) Int {
	f := FloatOf(v)
	if !f.Valid || f.Value != math.Trunc(f.Value) {
		return Int{}
	}
	return SomeInt(int64(f.Value))
}

// IDList is a list of numeric ids. It accepts a JSON array, a single scalar,
// a comma separated string or null; unparseable members are dropped.
type IDList []int64

func (l *IDList) UnmarshalJSON(b []byte) error {
	*l = IDListOf(decodeAny(b))
	return nil
}

func IDListOf(v any) IDList {
	out := IDList{}
	switch t := v.(type) {
	case nil:
		return out
	case []any:
		for _, item := range t {
			if id := IntOf(item); id.Valid {
				out = append(out, id.Value)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if id := IntOf(part); id.Valid {
				out = append(out, id.Value)
			}
		}
	default:
		if id := IntOf(t); id.Valid {
			out = append(out, id.Value)
		}
	}
	return out
}

// Strings renders each id in base 10.
func (l IDList) Strings() []string {
	out := make([]string, len(l))
	for i, id := range l {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

// String is a loosely typed text field; numbers are kept in their JSON form.
type String string

func (s *String) UnmarshalJSON(b []byte) error {
	switch t := decodeAny(b).(type) {
	case nil:
		*s = ""
	case string:
		*s = String(t)
	case json.Number:
		*s = String(t.String())
	case bool:
		*s = String(strconv.FormatBool(t))
	default:
		*s = String(strings.TrimSpace(string(b)))
	}
	return nil
}

func decodeAny(b []byte) any {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
