package condition

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ColumnRef is a handle on a named column. Any string is a valid name,
// including dotted paths such as "metadata.task.id".
type ColumnRef struct {
	name string
}

// Column returns a reference to the named column.
func Column(name string) ColumnRef { return ColumnRef{name: name} }

// Name returns the column name.
func (c ColumnRef) Name() string { return c.name }

// Eq builds "= v"; a nil/null v becomes IS NULL.
func (c ColumnRef) Eq(v any) *Condition {
	s := ScalarOf(v)
	if s.IsNull() {
		return c.IsNull()
	}
	return NewSimple(c.name, OpEq, ScalarValue(s))
}

// Ne builds "!= v"; a nil/null v becomes IS NOT NULL.
func (c ColumnRef) Ne(v any) *Condition {
	s := ScalarOf(v)
	if s.IsNull() {
		return c.IsNotNull()
	}
	return NewSimple(c.name, OpNe, ScalarValue(s))
}

func (c ColumnRef) Lt(v any) *Condition  { return c.single(OpLt, v) }
func (c ColumnRef) Lte(v any) *Condition { return c.single(OpLte, v) }
func (c ColumnRef) Gt(v any) *Condition  { return c.single(OpGt, v) }
func (c ColumnRef) Gte(v any) *Condition { return c.single(OpGte, v) }

// In builds "IN (values...)". An empty list is passed through unchanged.
func (c ColumnRef) In(values ...any) *Condition { return c.list(OpIn, values) }

// NotIn builds "NOT IN (values...)".
func (c ColumnRef) NotIn(values ...any) *Condition { return c.list(OpNotIn, values) }

// Like passes pattern through verbatim; no wildcards are added here.
func (c ColumnRef) Like(pattern string) *Condition     { return c.pattern(OpLike, pattern) }
func (c ColumnRef) NotLike(pattern string) *Condition  { return c.pattern(OpNotLike, pattern) }
func (c ColumnRef) ILike(pattern string) *Condition    { return c.pattern(OpILike, pattern) }
func (c ColumnRef) NotILike(pattern string) *Condition { return c.pattern(OpNotILike, pattern) }

func (c ColumnRef) IsNull() *Condition    { return NewSimple(c.name, OpIsNull, NoValue()) }
func (c ColumnRef) IsNotNull() *Condition { return NewSimple(c.name, OpIsNotNull, NoValue()) }

// Between builds "BETWEEN low AND high". Panics if either bound is null.
func (c ColumnRef) Between(low, high any) *Condition { return c.rng(OpBetween, low, high) }

// NotBetween builds "NOT BETWEEN low AND high". Panics if either bound is null.
func (c ColumnRef) NotBetween(low, high any) *Condition { return c.rng(OpNotBetween, low, high) }

// Asc returns an ascending sort key on the column.
func (c ColumnRef) Asc() SortKey { return SortKey{Column: c.name, Direction: Ascending} }

// Desc returns a descending sort key on the column.
func (c ColumnRef) Desc() SortKey { return SortKey{Column: c.name, Direction: Descending} }

func (c ColumnRef) single(op Operator, v any) *Condition {
	return NewSimple(c.name, op, ScalarValue(ScalarOf(v)))
}

func (c ColumnRef) list(op Operator, values []any) *Condition {
	items := make([]Scalar, len(values))
	for i, v := range values {
		items[i] = ScalarOf(v)
	}
	return NewSimple(c.name, op, ListValue(items...))
}

func (c ColumnRef) pattern(op Operator, pattern string) *Condition {
	return NewSimple(c.name, op, ScalarValue(String(pattern)))
}

func (c ColumnRef) rng(op Operator, low, high any) *Condition {
	return NewSimple(c.name, op, RangeValue(ScalarOf(low), ScalarOf(high)))
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// SortKey orders results by one column. It is independent of the filter tree.
type SortKey struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// UnmarshalJSON accepts direction case-insensitively and defaults to ASC.
func (k *SortKey) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column    string `json:"column"`
		Direction string `json:"direction"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw.Column) == "" {
		return fmt.Errorf("sort key: empty column")
	}
	dir, err := parseDirection(raw.Direction)
	if err != nil {
		return err
	}
	*k = SortKey{Column: raw.Column, Direction: dir}
	return nil
}

func parseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Ascending, nil
	case "DESC":
		return Descending, nil
	default:
		return "", fmt.Errorf("sort key: invalid direction %q", s)
	}
}

// ParseSortKey reads the "-field" / "+field" / "field" shorthand.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	dir := Ascending
	switch {
	case strings.HasPrefix(s, "-"):
		dir = Descending
		s = strings.TrimPrefix(s, "-")
	case strings.HasPrefix(s, "+"):
		s = strings.TrimPrefix(s, "+")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return SortKey{}, fmt.Errorf("sort key: empty column")
	}
	return SortKey{Column: s, Direction: dir}, nil
}

// String renders the key in the "-field" shorthand.
func (k SortKey) String() string {
	if k.Direction == Descending {
		return "-" + k.Column
	}
	return k.Column
}
