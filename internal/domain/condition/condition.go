package condition

import (
	"fmt"
	"math"
)

// NodeKind tags the two Condition variants.
type NodeKind uint8

const (
	NodeSimple NodeKind = iota
	NodeCompound
)

// Condition is an immutable predicate tree node: either a simple leaf
// (column, operator, value) or a compound AND/OR/NOT over child conditions.
// Combinators return new nodes; children are shared, never copied.
type Condition struct {
	kind NodeKind

	// simple
	column string
	op     Operator
	value  Value

	// compound
	logic Logic
	left  *Condition
	right *Condition
}

// NewSimple builds a leaf. The value shape must match op.Arity(); single and
// range operands must be non-null. Violations panic with *OperandError.
func NewSimple(column string, op Operator, value Value) *Condition {
	if err := checkOperand(column, op, value); err != nil {
		panic(err)
	}
	return &Condition{kind: NodeSimple, column: column, op: op, value: value}
}

func checkOperand(column string, op Operator, value Value) *OperandError {
	fail := func(format string, args ...any) *OperandError {
		return &OperandError{Column: column, Operator: string(op), Reason: fmt.Sprintf(format, args...)}
	}
	if !op.Valid() {
		return fail("unknown operator")
	}
	arity := op.Arity()
	if value.Kind() != arity.ValueKind() {
		return fail("operator takes a %s value, got %s", arity, value.Kind())
	}
	for _, s := range append([]Scalar{value.scalar}, value.items...) {
		if f, ok := s.Num(); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return fail("non-finite number")
		}
	}
	switch arity {
	case AritySingle:
		if value.Scalar().IsNull() {
			return fail("null operand; use IS NULL / IS NOT NULL")
		}
	case ArityRange:
		low, high := value.Range()
		if low.IsNull() || high.IsNull() {
			return fail("range bounds must both be non-null")
		}
	}
	return nil
}

// NewCompound builds a logical node. AND and OR need both operands; NOT takes
// only left and right must be nil.
func NewCompound(logic Logic, left, right *Condition) *Condition {
	if !logic.Valid() {
		panic(&OperandError{Operator: string(logic), Reason: "unknown logical operator"})
	}
	if left == nil {
		panic(&OperandError{Operator: string(logic), Reason: "missing left operand"})
	}
	if logic == LogicNot && right != nil {
		panic(&OperandError{Operator: string(logic), Reason: "NOT takes a single operand"})
	}
	if logic != LogicNot && right == nil {
		panic(&OperandError{Operator: string(logic), Reason: "missing right operand"})
	}
	return &Condition{kind: NodeCompound, logic: logic, left: left, right: right}
}

// And returns (c AND other).
func (c *Condition) And(other *Condition) *Condition { return NewCompound(LogicAnd, c, other) }

// Or returns (c OR other).
func (c *Condition) Or(other *Condition) *Condition { return NewCompound(LogicOr, c, other) }

// Not returns NOT c.
func (c *Condition) Not() *Condition { return NewCompound(LogicNot, c, nil) }

// Kind reports the node variant.
func (c *Condition) Kind() NodeKind { return c.kind }

// IsCompound reports whether c is an AND/OR/NOT node.
func (c *Condition) IsCompound() bool { return c.kind == NodeCompound }

// Column returns the leaf column name ("" for compound nodes).
func (c *Condition) Column() string { return c.column }

// Operator returns the leaf operator ("" for compound nodes).
func (c *Condition) Operator() Operator { return c.op }

// Value returns the leaf payload.
func (c *Condition) Value() Value { return c.value }

// Logic returns the compound operator ("" for leaves).
func (c *Condition) Logic() Logic { return c.logic }

// Left returns the first operand of a compound node.
func (c *Condition) Left() *Condition { return c.left }

// Right returns the second operand of a compound node; nil for NOT.
func (c *Condition) Right() *Condition { return c.right }

// All folds conditions left to right with AND, skipping nils.
// Returns nil when nothing remains.
func All(conds ...*Condition) *Condition { return fold(LogicAnd, conds) }

// Any folds conditions left to right with OR, skipping nils.
func Any(conds ...*Condition) *Condition { return fold(LogicOr, conds) }

func fold(logic Logic, conds []*Condition) *Condition {
	var acc *Condition
	for _, c := range conds {
		if c == nil {
			continue
		}
		if acc == nil {
			acc = c
			continue
		}
		acc = NewCompound(logic, acc, c)
	}
	return acc
}

// Walk visits c and its descendants depth-first, left before right.
// Returning false from fn stops descent below that node.
func Walk(c *Condition, fn func(*Condition) bool) {
	if c == nil || !fn(c) {
		return
	}
	if c.kind == NodeCompound {
		Walk(c.left, fn)
		Walk(c.right, fn)
	}
}

// Columns returns the distinct column names referenced by c in first-seen order.
func Columns(c *Condition) []string {
	seen := make(map[string]struct{})
	var out []string
	Walk(c, func(n *Condition) bool {
		if n.kind == NodeSimple {
			if _, ok := seen[n.column]; !ok {
				seen[n.column] = struct{}{}
				out = append(out, n.column)
			}
		}
		return true
	})
	return out
}
