package inject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ValueKind identifies which member of a Value is set
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindString
	KindBool
	KindInt
	KindFloat
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "absent"
	}
}

// Value is one entry of a DataMap. The zero Value is absent.
type Value struct {
	kind ValueKind
	str  string
	b    bool
	i    int64
	f    float64
}

func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }
func (v Value) Kind() ValueKind { return v.kind }

// IsBlank reports whether the value is absent or an empty string. Blank
// fields are skipped.
func (v Value) IsBlank() bool {
	return v.kind == KindAbsent || (v.kind == KindString && v.str == "")
}

// String returns the display text of the value. Booleans read True or
// False; floats always carry a fraction or an exponent, so 3.0 stays
// distinguishable from the integer 3.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Truthy coerces the value to a checkbox state. Strings that parse as a
// boolean ("false", "0", "F", ...) use that result; any other non-empty
// string is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		if v.str == "" {
			return false
		}
		if b, err := cast.ToBoolE(v.str); err == nil {
			return b
		}
		return true
	default:
		return false
	}
}

// ValueOf converts a decoded JSON scalar into a Value. Integral json.Number
// values become ints; other numbers become floats.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return FloatValue(f), nil
	case float32, float64:
		return FloatValue(cast.ToFloat64(t)), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, err := cast.ToInt64E(t)
		if err != nil {
			return Value{}, err
		}
		return IntValue(i), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// MarshalJSON encodes the value as its JSON scalar
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar; objects and arrays are rejected
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// DataMap holds the caller's values keyed by field key
type DataMap map[string]Value

// Lookup returns the value for key and whether it should be rendered. A
// missing key and a blank value are treated the same.
func (d DataMap) Lookup(key string) (Value, bool) {
	v, ok := d[key]
	if !ok || v.IsBlank() {
		return Value{}, false
	}
	return v, true
}
