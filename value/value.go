// Package value implements the tagged-variant value type stored in every
// TagRecord, per the "dynamic typing of value" design note: a Go-native
// union in place of the untyped object the source system used, with
// datatype-shape enforced at construction time rather than left to callers.
package value

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DataType names one of the five storage shapes a TagRecord can hold.
type DataType string

const (
	Bool    DataType = "Bool"
	Int     DataType = "Int"
	Real    DataType = "Real"
	Decimal DataType = "Decimal"
	String  DataType = "String"
)

func (d DataType) Valid() bool {
	switch d {
	case Bool, Int, Real, Decimal, String:
		return true
	default:
		return false
	}
}

// Value is the tagged union stored on a TagRecord. Exactly one of the typed
// fields is meaningful, selected by Type. Decimal values are never narrowed
// to binary floating point; they carry shopspring/decimal's exact
// fixed-point representation end to end.
type Value struct {
	Type    DataType
	BoolV   bool
	IntV    int64
	RealV   float64
	DecimalV decimal.Decimal
	StringV string
}

func NewBool(b bool) Value           { return Value{Type: Bool, BoolV: b} }
func NewInt(i int64) Value           { return Value{Type: Int, IntV: i} }
func NewReal(f float64) Value        { return Value{Type: Real, RealV: f} }
func NewString(s string) Value       { return Value{Type: String, StringV: s} }
func NewDecimal(d decimal.Decimal) Value { return Value{Type: Decimal, DecimalV: d} }

// NewDecimalString parses an exact-decimal literal such as "1.2300",
// preserving trailing zeros via decimal.NewFromString's exponent tracking.
func NewDecimalString(s string) (Value, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Value{}, fmt.Errorf("value: invalid decimal %q: %w", s, err)
	}
	return Value{Type: Decimal, DecimalV: d}, nil
}

// MatchesDataType reports whether v's tag matches dt, enforcing the §3
// invariant that datatype determines the storage shape.
func (v Value) MatchesDataType(dt DataType) bool {
	return v.Type == dt
}

// String renders the value for logging; it is not the wire form (see
// MarshalJSON / the serialize package for that).
func (v Value) String() string {
	switch v.Type {
	case Bool:
		return fmt.Sprintf("%t", v.BoolV)
	case Int:
		return fmt.Sprintf("%d", v.IntV)
	case Real:
		return fmt.Sprintf("%g", v.RealV)
	case Decimal:
		if exp := v.DecimalV.Exponent(); exp < 0 {
			return v.DecimalV.StringFixed(-exp)
		}
		return v.DecimalV.String()
	case String:
		return v.StringV
	default:
		return "<invalid>"
	}
}

// MarshalJSON implements the §4.5 serializer rule directly on the value
// type: integers and bools pass through as native JSON, decimals always
// marshal as strings preserving scale, NaN/Inf reals become null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case Bool:
		return json.Marshal(v.BoolV)
	case Int:
		return json.Marshal(v.IntV)
	case Real:
		if math.IsNaN(v.RealV) || math.IsInf(v.RealV, 0) {
			return json.Marshal(nil)
		}
		return json.Marshal(v.RealV)
	case Decimal:
		return json.Marshal(v.String())
	case String:
		return json.Marshal(v.StringV)
	default:
		return json.Marshal(nil)
	}
}

// ParseJSON decodes raw into a Value of the given DataType, accepting both
// JSON numbers and JSON strings for Decimal tags per §4.5.
func ParseJSON(dt DataType, raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Value{}, fmt.Errorf("value: empty value for datatype %s", dt)
	}
	switch dt {
	case Bool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("value: expected bool: %w", err)
		}
		return NewBool(b), nil
	case Int:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return Value{}, fmt.Errorf("value: expected integer: %w", err)
		}
		return NewInt(i), nil
	case Real:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("value: expected number: %w", err)
		}
		return NewReal(f), nil
	case String:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("value: expected string: %w", err)
		}
		return NewString(s), nil
	case Decimal:
		// Accept either a JSON string ("1.2300") or a bare JSON number (1.23).
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return NewDecimalString(s)
		}
		var d decimal.Decimal
		if err := json.Unmarshal(raw, &d); err != nil {
			return Value{}, fmt.Errorf("value: expected decimal string or number: %w", err)
		}
		return NewDecimal(d), nil
	default:
		return Value{}, fmt.Errorf("value: unknown datatype %q", dt)
	}
}

// CoerceFromDriver casts a raw driver-reported value into the stored
// datatype shape, per §4.2's coercion rule. scale is only consulted when
// dt is Decimal and raw is an integer-like register value.
func CoerceFromDriver(dt DataType, raw interface{}, scale int32) (Value, error) {
	switch dt {
	case Bool:
		switch r := raw.(type) {
		case bool:
			return NewBool(r), nil
		case int64:
			return NewBool(r != 0), nil
		case int32:
			return NewBool(r != 0), nil
		}
	case Int:
		switch r := raw.(type) {
		case int64:
			return NewInt(r), nil
		case int32:
			return NewInt(int64(r)), nil
		case uint16:
			return NewInt(int64(r)), nil
		case int16:
			return NewInt(int64(r)), nil
		case uint32:
			return NewInt(int64(r)), nil
		case float64:
			return NewInt(int64(r)), nil
		}
	case Real:
		switch r := raw.(type) {
		case float64:
			return NewReal(r), nil
		case float32:
			return NewReal(float64(r)), nil
		}
	case String:
		if r, ok := raw.(string); ok {
			return NewString(r), nil
		}
	case Decimal:
		switch r := raw.(type) {
		case string:
			return NewDecimalString(r)
		case decimal.Decimal:
			return NewDecimal(r), nil
		case int64:
			d := decimal.New(r, -scale)
			return NewDecimal(d), nil
		case int32:
			d := decimal.New(int64(r), -scale)
			return NewDecimal(d), nil
		case int16:
			d := decimal.New(int64(r), -scale)
			return NewDecimal(d), nil
		case float64:
			return NewDecimal(decimal.NewFromFloat(r)), nil
		}
	}
	return Value{}, fmt.Errorf("value: cannot coerce %T to %s", raw, dt)
}
