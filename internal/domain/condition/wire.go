package condition

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireNode is the document shape of both variants. Field order is part of the
// contract: serialized documents double as cache keys.
type wireNode struct {
	IsCompound bool   `json:"is_compound"`
	Left       any    `json:"left"`
	Operator   string `json:"operator"`
	Right      any    `json:"right"`
}

// MarshalJSON encodes the wire document:
//
//	simple:   {"is_compound":false,"left":"<column>","operator":"<op>","right":<value>}
//	compound: {"is_compound":true,"left":{...},"operator":"AND|OR|NOT","right":{...}|null}
func (c *Condition) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	return encode(c.wire())
}

// encode marshals v without HTML escaping so documents match other JSON
// producers byte for byte.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (c *Condition) wire() wireNode {
	if c.kind == NodeCompound {
		n := wireNode{IsCompound: true, Left: c.left.wire(), Operator: string(c.logic)}
		if c.right != nil {
			n.Right = c.right.wire()
		}
		return n
	}
	return wireNode{Left: c.column, Operator: string(c.op), Right: c.value}
}

// Key returns the serialized wire document. Two conditions are interchangeable
// exactly when their keys are equal.
func (c *Condition) Key() string {
	b, err := c.MarshalJSON()
	if err != nil {
		// Unreachable for trees built through NewSimple, which rejects non-finite numbers.
		panic(err)
	}
	return string(b)
}

// String returns the wire document.
func (c *Condition) String() string { return c.Key() }

// Equal compares two conditions by their wire documents. Nil equals nil only.
func Equal(a, b *Condition) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// UnmarshalJSON decodes a wire document into c.
func (c *Condition) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	if parsed == nil {
		return &DecodeError{Reason: "null document"}
	}
	*c = *parsed
	return nil
}

type rawNode struct {
	IsCompound *bool           `json:"is_compound"`
	Left       json.RawMessage `json:"left"`
	Operator   *string         `json:"operator"`
	Right      json.RawMessage `json:"right"`
}

// Parse decodes a wire document. A JSON null yields (nil, nil).
// List and range payloads are told apart by the operator.
func Parse(data []byte) (*Condition, error) {
	return parseNode(data, "$")
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parseNode(data []byte, path string) (*Condition, error) {
	if isNull(data) {
		return nil, nil
	}
	var n rawNode
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&n); err != nil {
		return nil, &DecodeError{Path: path, Reason: "malformed node", Err: err}
	}
	if n.IsCompound == nil {
		return nil, &DecodeError{Path: path, Reason: "missing is_compound"}
	}
	if n.Operator == nil {
		return nil, &DecodeError{Path: path, Reason: "missing operator"}
	}
	if *n.IsCompound {
		return parseCompound(n, path)
	}
	return parseSimple(n, path)
}

func parseCompound(n rawNode, path string) (*Condition, error) {
	logic := Logic(*n.Operator)
	if !logic.Valid() {
		return nil, &DecodeError{Path: path, Reason: fmt.Sprintf("unknown logical operator %q", *n.Operator)}
	}
	if isNull(n.Left) {
		return nil, &DecodeError{Path: path + ".left", Reason: "missing operand"}
	}
	left, err := parseNode(n.Left, path+".left")
	if err != nil {
		return nil, err
	}
	right, err := parseNode(n.Right, path+".right")
	if err != nil {
		return nil, err
	}
	switch {
	case logic == LogicNot && right != nil:
		return nil, &DecodeError{Path: path + ".right", Reason: "NOT takes a single operand"}
	case logic != LogicNot && right == nil:
		return nil, &DecodeError{Path: path + ".right", Reason: "missing operand"}
	}
	return &Condition{kind: NodeCompound, logic: logic, left: left, right: right}, nil
}

func parseSimple(n rawNode, path string) (*Condition, error) {
	var column string
	if err := json.Unmarshal(n.Left, &column); err != nil {
		return nil, &DecodeError{Path: path + ".left", Reason: "column must be a string", Err: err}
	}
	op := Operator(*n.Operator)
	if !op.Valid() {
		return nil, &DecodeError{Path: path, Reason: fmt.Sprintf("unknown operator %q", *n.Operator)}
	}
	value, err := decodeValue(op.Arity(), n.Right)
	if err != nil {
		return nil, &DecodeError{Path: path + ".right", Reason: "invalid value for " + string(op), Err: err}
	}
	if oe := checkOperand(column, op, value); oe != nil {
		return nil, &DecodeError{Path: path, Reason: oe.Reason}
	}
	return &Condition{kind: NodeSimple, column: column, op: op, value: value}, nil
}

func decodeValue(arity Arity, raw json.RawMessage) (Value, error) {
	switch arity {
	case ArityNone:
		if !isNull(raw) {
			return Value{}, fmt.Errorf("expected null")
		}
		return NoValue(), nil
	case AritySingle:
		var s Scalar
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return ScalarValue(s), nil
	case ArityList:
		var items []Scalar
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, err
		}
		if items == nil {
			return Value{}, fmt.Errorf("expected array")
		}
		return ListValue(items...), nil
	default:
		var items []Scalar
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, err
		}
		if len(items) != 2 {
			return Value{}, fmt.Errorf("expected [low, high], got %d elements", len(items))
		}
		return RangeValue(items[0], items[1]), nil
	}
}
