package vitals

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNumeric
	KindCategorical
)

// Value is a coerced raw value: Numeric, Categorical, or Invalid.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Numeric returns a numeric Value.
func Numeric(f float64) Value {
	return Value{kind: KindNumeric, num: f}
}

// Categorical returns a categorical (enumerated string) Value.
func Categorical(s string) Value {
	return Value{kind: KindCategorical, text: s}
}

// Invalid returns the Invalid value.
func Invalid() Value {
	return Value{}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// Float returns the numeric value and true for Numeric values.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumeric
}

// Text returns the string and true for Categorical values.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindCategorical
}

// String formats the value for display. Numbers are rounded to two decimals.
func (v Value) String() string {
	switch v.kind {
	case KindNumeric:
		return strconv.FormatFloat(math.Round(v.num*100)/100, 'f', -1, 64)
	case KindCategorical:
		return v.text
	default:
		return "--"
	}
}

// MarshalJSON encodes numbers as JSON numbers and categories as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumeric:
		return json.Marshal(v.num)
	case KindCategorical:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON: numbers decode as Numeric,
// strings as Categorical and null as Invalid.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case float64:
		*v = Numeric(x)
	case string:
		*v = Categorical(x)
	case nil:
		*v = Invalid()
	default:
		return fmt.Errorf("vitals: cannot decode %s as a value", data)
	}
	return nil
}

// Coerce converts a raw feed value into a Value.
//
//	numbers            -> Numeric (NaN and ±Inf are Invalid)
//	"98%", " 98 % "    -> Numeric(98)
//	"72", "36.6"       -> Numeric
//	"Good"             -> Categorical
//	"", nil, bool, ... -> Invalid
func Coerce(raw any) Value {
	switch x := raw.(type) {
	case float64:
		return numericOrInvalid(x)
	case float32:
		return numericOrInvalid(float64(x))
	case int:
		return Numeric(float64(x))
	case int32:
		return Numeric(float64(x))
	case int64:
		return Numeric(float64(x))
	case uint:
		return Numeric(float64(x))
	case uint32:
		return Numeric(float64(x))
	case uint64:
		return Numeric(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Invalid()
		}
		return numericOrInvalid(f)
	case string:
		return coerceString(x)
	default:
		return Invalid()
	}
}

func coerceString(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Invalid()
	}
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			// "%" on its own or "high%" is not a percentage; keep it as a category.
			return Categorical(s)
		}
		return numericOrInvalid(f)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return numericOrInvalid(f)
	}
	return Categorical(s)
}

func numericOrInvalid(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Invalid()
	}
	return Numeric(f)
}
