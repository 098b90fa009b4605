package condition

// ValueKind identifies the shape of a Value.
type ValueKind uint8

const (
	// ValueNone carries no payload and serializes as null.
	ValueNone ValueKind = iota
	ValueScalar
	ValueList
	ValueRange
)

func (k ValueKind) String() string {
	switch k {
	case ValueNone:
		return "none"
	case ValueScalar:
		return "scalar"
	case ValueList:
		return "list"
	case ValueRange:
		return "range"
	default:
		return "unknown"
	}
}

// Value is the payload of a leaf condition: nothing, a scalar, an unordered list
// or a [low, high] range. A range is never a two-element list, and vice versa.
type Value struct {
	kind   ValueKind
	scalar Scalar
	items  []Scalar
}

// NoValue returns the empty payload used by IS NULL / IS NOT NULL.
func NoValue() Value { return Value{} }

// ScalarValue wraps a single scalar.
func ScalarValue(s Scalar) Value { return Value{kind: ValueScalar, scalar: s} }

// ListValue builds the list payload used by IN / NOT IN. An empty list is valid.
func ListValue(items ...Scalar) Value {
	cp := make([]Scalar, len(items))
	copy(cp, items)
	return Value{kind: ValueList, items: cp}
}

// RangeValue builds the range payload used by BETWEEN / NOT BETWEEN.
// Bound order is preserved as given.
func RangeValue(low, high Scalar) Value {
	return Value{kind: ValueRange, items: []Scalar{low, high}}
}

// Kind reports the payload shape.
func (v Value) Kind() ValueKind { return v.kind }

// IsNone reports whether v carries no payload.
func (v Value) IsNone() bool { return v.kind == ValueNone }

// Scalar returns the scalar payload. Valid only for ValueScalar.
func (v Value) Scalar() Scalar { return v.scalar }

// List returns a copy of the list payload. Valid only for ValueList.
func (v Value) List() []Scalar {
	if v.kind != ValueList {
		return nil
	}
	cp := make([]Scalar, len(v.items))
	copy(cp, v.items)
	return cp
}

// Range returns the bounds. Valid only for ValueRange.
func (v Value) Range() (low, high Scalar) {
	if v.kind != ValueRange {
		return Null(), Null()
	}
	return v.items[0], v.items[1]
}

// Interface returns the payload as plain Go values: nil, a scalar payload, or a []any.
func (v Value) Interface() any {
	switch v.kind {
	case ValueScalar:
		return v.scalar.Interface()
	case ValueList, ValueRange:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler. Lists and ranges both encode as arrays;
// the operator tells the consumer which one it is.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueScalar:
		return v.scalar.MarshalJSON()
	case ValueList, ValueRange:
		items := v.items
		if items == nil {
			items = []Scalar{}
		}
		return encode(items)
	default:
		return []byte("null"), nil
	}
}
