package table

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueType defines the storage type for values
type ValueType uint8

const (
	ValueTypeMissing ValueType = iota
	ValueTypeNumeric
	ValueTypeString
	ValueTypeBoolean
	ValueTypeTimestamp
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeNumeric:
		return "numeric"
	case ValueTypeString:
		return "string"
	case ValueTypeBoolean:
		return "boolean"
	case ValueTypeTimestamp:
		return "timestamp"
	default:
		return "missing"
	}
}

// Value is a single typed cell. The zero Value is missing.
type Value struct {
	Type ValueType
	num  float64
	str  string
	b    bool
	ts   time.Time
}

// Missing returns the missing marker
func Missing() Value {
	return Value{}
}

// Num creates a numeric value. NaN is stored as missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{Type: ValueTypeNumeric, num: f}
}

// Str creates a string value. The empty string is stored as missing.
func Str(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Type: ValueTypeString, str: s}
}

// Bool creates a boolean value
func Bool(b bool) Value {
	return Value{Type: ValueTypeBoolean, b: b}
}

// Time creates a timestamp value
func Time(t time.Time) Value {
	return Value{Type: ValueTypeTimestamp, ts: t}
}

// IsMissing reports whether the value is the missing marker
func (v Value) IsMissing() bool {
	return v.Type == ValueTypeMissing
}

// Float returns the numeric value, or NaN when the value is not numeric
func (v Value) Float() float64 {
	if v.Type == ValueTypeNumeric {
		return v.num
	}
	return math.NaN()
}

// Text returns the string payload, or "" when the value is not a string
func (v Value) Text() string {
	if v.Type == ValueTypeString {
		return v.str
	}
	return ""
}

// Boolean returns the boolean payload
func (v Value) Boolean() bool {
	return v.Type == ValueTypeBoolean && v.b
}

// Timestamp returns the timestamp payload
func (v Value) Timestamp() time.Time {
	if v.Type == ValueTypeTimestamp {
		return v.ts
	}
	return time.Time{}
}

// Equal compares two values; two missing values are equal
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case ValueTypeNumeric:
		return v.num == o.num
	case ValueTypeString:
		return v.str == o.str
	case ValueTypeBoolean:
		return v.b == o.b
	case ValueTypeTimestamp:
		return v.ts.Equal(o.ts)
	default:
		return true
	}
}

// String returns the string representation of the value
func (v Value) String() string {
	switch v.Type {
	case ValueTypeNumeric:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case ValueTypeString:
		return v.str
	case ValueTypeBoolean:
		return strconv.FormatBool(v.b)
	case ValueTypeTimestamp:
		return v.ts.Format(time.RFC3339)
	default:
		return ""
	}
}

// key is a type-tagged encoding used for duplicate detection and counting
func (v Value) key() string {
	return fmt.Sprintf("%d:%s", v.Type, v.String())
}
