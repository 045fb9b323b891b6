// Scalar parameter values with canonical text rendering and parsing
package filters

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared scalar type of a filter parameter
type Kind int

const (
	KindFloat64 Kind = iota
	KindFloat32
	KindInt64
	KindInt32
	KindInt16
	KindInt8
	KindString
)

var kindNames = map[Kind]string{
	KindFloat64: "float64",
	KindFloat32: "float32",
	KindInt64:   "int64",
	KindInt32:   "int32",
	KindInt16:   "int16",
	KindInt8:    "int8",
	KindString:  "string",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsNumeric reports whether values of this kind take part in zero detection
func (k Kind) IsNumeric() bool {
	return k != KindString
}

func (k Kind) intBits() int {
	switch k {
	case KindInt64:
		return 64
	case KindInt32:
		return 32
	case KindInt16:
		return 16
	case KindInt8:
		return 8
	}
	return 0
}

// Value is a tagged scalar. It is a plain value type, so assignment copies it.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
}

func Float64Value(v float64) Value { return Value{kind: KindFloat64, f: v} }

// Float32Value stores v rounded to single precision.
func Float32Value(v float32) Value { return Value{kind: KindFloat32, f: float64(v)} }

func Int64Value(v int64) Value   { return Value{kind: KindInt64, i: v} }
func Int32Value(v int32) Value   { return Value{kind: KindInt32, i: int64(v)} }
func Int16Value(v int16) Value   { return Value{kind: KindInt16, i: int64(v)} }
func Int8Value(v int8) Value     { return Value{kind: KindInt8, i: int64(v)} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric value as float64. Strings yield 0.
func (v Value) Float() float64 {
	switch {
	case v.kind == KindFloat64 || v.kind == KindFloat32:
		return v.f
	case v.kind.intBits() > 0:
		return float64(v.i)
	}
	return 0
}

// Int returns the numeric value truncated to int64. Strings yield 0.
func (v Value) Int() int64 {
	switch {
	case v.kind == KindFloat64 || v.kind == KindFloat32:
		return int64(v.f)
	case v.kind.intBits() > 0:
		return v.i
	}
	return 0
}

// Text returns the raw string payload of a string-kind value.
func (v Value) Text() string { return v.s }

// String renders the canonical text form. Floating values always carry a
// fractional part ("2.0", "0.0"), integers never do ("0", "-3").
func (v Value) String() string {
	switch v.kind {
	case KindFloat64:
		return formatFloat(v.f, 64)
	case KindFloat32:
		return formatFloat(v.f, 32)
	case KindString:
		return v.s
	}
	return strconv.FormatInt(v.i, 10)
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// ParseError is returned when parameter text does not parse as its kind
type ParseError struct {
	Kind  Kind
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s value %q: %v", e.Kind, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseValue trims text and converts it per kind using base-10 grammar.
// Malformed or out-of-range input yields a *ParseError, never a default.
func ParseValue(kind Kind, text string) (Value, error) {
	s := strings.TrimSpace(text)
	switch kind {
	case KindFloat64, KindFloat32:
		bits := 64
		if kind == KindFloat32 {
			bits = 32
		}
		f, err := strconv.ParseFloat(normalizeInfinity(s), bits)
		if err != nil {
			return Value{}, &ParseError{Kind: kind, Input: text, Err: err}
		}
		return Value{kind: kind, f: f}, nil
	case KindInt64, KindInt32, KindInt16, KindInt8:
		i, err := strconv.ParseInt(s, 10, kind.intBits())
		if err != nil {
			return Value{}, &ParseError{Kind: kind, Input: text, Err: err}
		}
		return Value{kind: kind, i: i}, nil
	case KindString:
		return StringValue(s), nil
	}
	return Value{}, &ParseError{Kind: kind, Input: text, Err: fmt.Errorf("unsupported kind")}
}

// normalizeInfinity accepts the rendered "Infinity" spelling on input.
func normalizeInfinity(s string) string {
	switch s {
	case "Infinity", "+Infinity":
		return "+Inf"
	case "-Infinity":
		return "-Inf"
	}
	return s
}

// isZeroText reports whether a canonical rendering is the numeric zero literal.
func isZeroText(s string) bool {
	return s == "0" || s == "0.0"
}
