// Package condition implements the filter condition algebra: typed scalar values,
// leaf and compound predicates over named columns, the per-type operator catalog
// and the wire document consumed by the remote query engine.
package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ScalarKind identifies the variant held by a Scalar.
type ScalarKind uint8

const (
	KindNull ScalarKind = iota
	KindString
	KindNumber
	KindBool
)

func (k ScalarKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "ScalarKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Scalar is a primitive predicate value: string, number, boolean or null.
// The zero value is null.
type Scalar struct {
	kind ScalarKind
	str  string
	num  float64
	b    bool
}

// Null returns the null scalar.
func Null() Scalar { return Scalar{} }

// String returns a string scalar.
func String(s string) Scalar { return Scalar{kind: KindString, str: s} }

// Number returns a numeric scalar.
func Number(f float64) Scalar { return Scalar{kind: KindNumber, num: f} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{kind: KindBool, b: b} }

// ScalarOf converts a Go value into a Scalar.
// Panics on unsupported types: passing one is a caller bug.
func ScalarOf(v any) Scalar {
	switch x := v.(type) {
	case nil:
		return Null()
	case Scalar:
		return x
	case *Scalar:
		if x == nil {
			return Null()
		}
		return *x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int8:
		return Number(float64(x))
	case int16:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint8:
		return Number(float64(x))
	case uint16:
		return Number(float64(x))
	case uint32:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	default:
		panic(&OperandError{Reason: fmt.Sprintf("unsupported scalar type %T", v)})
	}
}

// Kind reports the variant.
func (s Scalar) Kind() ScalarKind { return s.kind }

// IsNull reports whether s is the null scalar.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// Str returns the string payload and whether s is a string.
func (s Scalar) Str() (string, bool) { return s.str, s.kind == KindString }

// Num returns the numeric payload and whether s is a number.
func (s Scalar) Num() (float64, bool) { return s.num, s.kind == KindNumber }

// Boolean returns the boolean payload and whether s is a boolean.
func (s Scalar) Boolean() (bool, bool) { return s.b, s.kind == KindBool }

// Interface returns the payload as a plain Go value (nil, string, float64 or bool).
func (s Scalar) Interface() any {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		return s.num
	case KindBool:
		return s.b
	default:
		return nil
	}
}

// String renders the scalar the way it would be shown to a user:
// strings verbatim, numbers in shortest form, null as "null".
func (s Scalar) String() string {
	switch s.kind {
	case KindString:
		return s.str
	case KindNumber:
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(s.b)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.kind == KindNumber && (math.IsNaN(s.num) || math.IsInf(s.num, 0)) {
		return nil, fmt.Errorf("condition: non-finite number %v", s.num)
	}
	return encode(s.Interface())
}

// UnmarshalJSON implements json.Unmarshaler. Objects and arrays are rejected.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*s = Null()
	case string:
		*s = String(x)
	case float64:
		*s = Number(x)
	case bool:
		*s = Bool(x)
	default:
		return fmt.Errorf("condition: expected scalar, got %T", raw)
	}
	return nil
}
