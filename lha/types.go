package lha

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType represents the type of an entry value.
type ValueType uint8

const (
	TypeInt ValueType = iota
	TypeFloat
	TypeStr
)

// String returns the type name.
func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeStr:
		return "str"
	default:
		return "unknown"
	}
}

// Value is a single typed cell of an entry. The zero Value is Int(0).
type Value struct {
	typ ValueType

	// Only one is valid based on typ
	intVal   int64
	floatVal float64
	strVal   string
}

// ============================================================
// Constructors
// ============================================================

// Int creates an integer value.
func Int(v int64) Value {
	return Value{typ: TypeInt, intVal: v}
}

// Float creates a float value.
func Float(v float64) Value {
	return Value{typ: TypeFloat, floatVal: v}
}

// Str creates a string value.
func Str(v string) Value {
	return Value{typ: TypeStr, strVal: v}
}

// ============================================================
// Accessors
// ============================================================

// Type returns the value type.
func (v Value) Type() ValueType {
	return v.typ
}

// IsNumeric returns true for int and float values.
func (v Value) IsNumeric() bool {
	return v.typ == TypeInt || v.typ == TypeFloat
}

// AsInt returns the integer value.
func (v Value) AsInt() (int64, error) {
	if v.typ != TypeInt {
		return 0, fmt.Errorf("lha: expected int, got %s", v.typ)
	}
	return v.intVal, nil
}

// AsFloat returns the value as a float. Integers are widened.
func (v Value) AsFloat() (float64, error) {
	switch v.typ {
	case TypeFloat:
		return v.floatVal, nil
	case TypeInt:
		return float64(v.intVal), nil
	default:
		return 0, fmt.Errorf("lha: expected number, got %s", v.typ)
	}
}

// AsStr returns the string value.
func (v Value) AsStr() (string, error) {
	if v.typ != TypeStr {
		return "", fmt.Errorf("lha: expected str, got %s", v.typ)
	}
	return v.strVal, nil
}

// Equal reports whether two values are equal. Int and float values
// compare numerically, so Int(36) equals Float(36).
func (v Value) Equal(o Value) bool {
	if v.typ == TypeStr || o.typ == TypeStr {
		return v.typ == o.typ && v.strVal == o.strVal
	}
	if v.typ == TypeInt && o.typ == TypeInt {
		return v.intVal == o.intVal
	}
	a, _ := v.AsFloat()
	b, _ := o.AsFloat()
	return a == b
}

// String renders the value with the default float precision.
func (v Value) String() string {
	return v.format(defaultPrecision)
}

func (v Value) format(precision int) string {
	switch v.typ {
	case TypeInt:
		return strconv.FormatInt(v.intVal, 10)
	case TypeFloat:
		return formatFloat(v.floatVal, precision)
	default:
		return v.strVal
	}
}

// ============================================================
// Token Conversion
// ============================================================

// valueFromToken converts a classified token into a Value. Float tokens
// that fail conversion are kept verbatim as strings; int tokens that
// fail conversion are an error.
func valueFromToken(tok string, typ TokenType) (Value, error) {
	switch typ {
	case TokenFloat:
		f, err := parseFloat(tok)
		if err != nil {
			return Str(tok), nil
		}
		return Float(f), nil
	case TokenInt:
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return Int(n), nil
	default:
		return Str(tok), nil
	}
}

var fortranExponent = strings.NewReplacer("d", "e", "D", "e")

// parseFloat parses a float, accepting Fortran 'D' exponents. Out-of-range
// values fail with strconv.ErrRange.
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(fortranExponent.Replace(s), 64)
}

// ParseValue classifies and converts a single token the same way entry
// lines are read. Comment tokens are rejected.
func ParseValue(tok string) (Value, error) {
	typ := ClassifyToken(tok)
	if typ == TokenComment {
		return Value{}, fmt.Errorf("lha: %q is a comment, not a value", tok)
	}
	v, err := valueFromToken(tok, typ)
	if err != nil {
		return Value{}, fmt.Errorf("lha: invalid integer %q: %w", tok, err)
	}
	return v, nil
}
