// Package sqlplan translates condition trees and sort keys into squirrel
// builders. It is the reference planner used by the built-in query engine and
// by SQL previews.
package sqlplan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/query"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Planner maps logical column names to SQL expressions. Only whitelisted
// columns, or dotted paths under a whitelisted JSON column, are accepted.
type Planner struct {
	table       string
	columns     map[string]string
	jsonColumns map[string]string
}

// NewPlanner creates a planner for table. columns maps logical names to SQL
// expressions (use the name itself for plain columns); jsonColumns lists
// jsonb columns whose nested keys may be addressed as "col.a.b".
func NewPlanner(table string, columns map[string]string, jsonColumns ...string) *Planner {
	p := &Planner{
		table:       table,
		columns:     make(map[string]string, len(columns)),
		jsonColumns: make(map[string]string, len(jsonColumns)),
	}
	for name, expr := range columns {
		p.columns[name] = expr
	}
	for _, name := range jsonColumns {
		expr, ok := columns[name]
		if !ok {
			expr = name
		}
		p.jsonColumns[name] = expr
	}
	return p
}

// Quoted creates a table-less planner that accepts exactly the given columns,
// each rendered as a quoted identifier. Used for previews of ad hoc conditions.
func Quoted(columns ...string) *Planner {
	cols := make(map[string]string, len(columns))
	for _, name := range columns {
		cols[name] = pgx.Identifier{name}.Sanitize()
	}
	return NewPlanner("", cols)
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (p *Planner) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Column resolves a logical column name into its SQL expression.
func (p *Planner) Column(name string) (string, error) {
	expr, _, err := p.resolve(name)
	return expr, err
}

// resolve is Column that also reports whether name addressed a key inside a
// JSON column. Such paths are extracted as text.
func (p *Planner) resolve(name string) (string, bool, error) {
	if expr, ok := p.columns[name]; ok {
		return expr, false, nil
	}
	head, rest, found := strings.Cut(name, ".")
	if found {
		if base, ok := p.jsonColumns[head]; ok {
			segments := strings.Split(rest, ".")
			for _, s := range segments {
				if !identPattern.MatchString(s) {
					return "", false, invalidColumn(name)
				}
			}
			return fmt.Sprintf("%s #>> '{%s}'", base, strings.Join(segments, ",")), true, nil
		}
	}
	return "", false, invalidColumn(name)
}

func invalidColumn(name string) error {
	return apperror.NewValidation("invalid filter column").WithDetail("column", name)
}

// Where translates a condition tree into a predicate. A nil condition yields nil.
func (p *Planner) Where(c *condition.Condition) (squirrel.Sqlizer, error) {
	if c == nil {
		return nil, nil
	}
	if c.IsCompound() {
		return p.compound(c)
	}
	return p.simple(c)
}

func (p *Planner) compound(c *condition.Condition) (squirrel.Sqlizer, error) {
	left, err := p.Where(c.Left())
	if err != nil {
		return nil, err
	}
	switch c.Logic() {
	case condition.LogicNot:
		sql, args, err := left.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build NOT operand: %w", err)
		}
		return squirrel.Expr("NOT ("+sql+")", args...), nil
	case condition.LogicAnd, condition.LogicOr:
		right, err := p.Where(c.Right())
		if err != nil {
			return nil, err
		}
		if c.Logic() == condition.LogicAnd {
			return squirrel.And{left, right}, nil
		}
		return squirrel.Or{left, right}, nil
	default:
		return nil, fmt.Errorf("unsupported logical operator: %s", c.Logic())
	}
}

func (p *Planner) simple(c *condition.Condition) (squirrel.Sqlizer, error) {
	col, jsonPath, err := p.resolve(c.Column())
	if err != nil {
		return nil, err
	}
	if jsonPath {
		col = castJSONPath(col, c)
	}
	value := c.Value().Interface()

	switch c.Operator() {
	case condition.OpEq, condition.OpIn:
		return squirrel.Eq{col: value}, nil
	case condition.OpNe, condition.OpNotIn:
		return squirrel.NotEq{col: value}, nil
	case condition.OpLt:
		return squirrel.Lt{col: value}, nil
	case condition.OpLte:
		return squirrel.LtOrEq{col: value}, nil
	case condition.OpGt:
		return squirrel.Gt{col: value}, nil
	case condition.OpGte:
		return squirrel.GtOrEq{col: value}, nil
	case condition.OpLike:
		return squirrel.Like{col: value}, nil
	case condition.OpNotLike:
		return squirrel.NotLike{col: value}, nil
	case condition.OpILike:
		return squirrel.ILike{col: value}, nil
	case condition.OpNotILike:
		return squirrel.NotILike{col: value}, nil
	case condition.OpIsNull:
		return squirrel.Eq{col: nil}, nil
	case condition.OpIsNotNull:
		return squirrel.NotEq{col: nil}, nil
	case condition.OpBetween, condition.OpNotBetween:
		low, high := c.Value().Range()
		return squirrel.Expr(col+" "+string(c.Operator())+" ? AND ?", low.Interface(), high.Interface()), nil
	default:
		return nil, fmt.Errorf("unsupported operator: %s", c.Operator())
	}
}

// castJSONPath casts a text-valued JSON path to the operand's type so numbers
// and booleans compare by value. Pattern and null tests stay on text.
func castJSONPath(expr string, c *condition.Condition) string {
	if c.Operator().IsPattern() {
		return expr
	}
	switch operandKind(c.Value()) {
	case condition.KindNumber:
		return "(" + expr + ")::numeric"
	case condition.KindBool:
		return "(" + expr + ")::boolean"
	default:
		return expr
	}
}

// operandKind returns the scalar kind shared by every operand of v, or
// KindNull when there is none or the kinds differ.
func operandKind(v condition.Value) condition.ScalarKind {
	var items []condition.Scalar
	switch v.Kind() {
	case condition.ValueScalar:
		return v.Scalar().Kind()
	case condition.ValueList:
		items = v.List()
	case condition.ValueRange:
		low, high := v.Range()
		items = []condition.Scalar{low, high}
	default:
		return condition.KindNull
	}
	if len(items) == 0 {
		return condition.KindNull
	}
	kind := items[0].Kind()
	for _, it := range items[1:] {
		if it.Kind() != kind {
			return condition.KindNull
		}
	}
	return kind
}

// OrderBy renders sort keys as ORDER BY items.
func (p *Planner) OrderBy(keys []condition.SortKey) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		col, err := p.Column(k.Column)
		if err != nil {
			return nil, apperror.NewValidation("invalid orderBy").WithDetail("column", k.Column)
		}
		dir := condition.Ascending
		if k.Direction == condition.Descending {
			dir = condition.Descending
		}
		out = append(out, col+" "+string(dir))
	}
	return out, nil
}

// Select builds the page query and the matching count query for req.
func (p *Planner) Select(req query.Request, selectCols ...string) (squirrel.SelectBuilder, squirrel.SelectBuilder, error) {
	if len(selectCols) == 0 {
		selectCols = []string{"*"}
	}
	q := p.Builder().Select(selectCols...).From(p.table)

	where, err := p.Where(req.Filter)
	if err != nil {
		return q, q, err
	}
	if where != nil {
		q = q.Where(where)
	}

	countQ := p.Builder().Select("COUNT(*)").FromSelect(q, "sub")

	orderBy, err := p.OrderBy(req.OrderBy)
	if err != nil {
		return q, countQ, err
	}
	q = q.OrderBy(orderBy...)

	if req.Limit > 0 {
		q = q.Limit(uint64(req.Limit))
	}
	if req.Offset > 0 {
		q = q.Offset(uint64(req.Offset))
	}
	return q, countQ, nil
}

// Preview renders c as a standalone WHERE predicate with "?" placeholders.
func (p *Planner) Preview(c *condition.Condition) (string, []any, error) {
	where, err := p.Where(c)
	if err != nil || where == nil {
		return "", nil, err
	}
	return where.ToSql()
}
