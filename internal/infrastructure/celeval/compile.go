// Package celeval evaluates condition trees against rows that are already in
// memory, such as a cached page being re-filtered on the client.
//
// A condition compiles to a CEL expression over a single variable, row, of
// type map(string, dyn). Comparisons against a missing or null column are
// false, including negated operators; NOT of a subtree is plain boolean
// negation.
package celeval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"inspectview/internal/domain/condition"
)

// RowVar is the name of the CEL variable holding the row.
const RowVar = "row"

// Expression renders c as CEL source. A nil condition matches every row.
func Expression(c *condition.Condition) (string, error) {
	if c == nil {
		return "true", nil
	}
	var b strings.Builder
	if err := writeNode(&b, c); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeNode(b *strings.Builder, c *condition.Condition) error {
	if !c.IsCompound() {
		return writeLeaf(b, c)
	}
	switch c.Logic() {
	case condition.LogicNot:
		b.WriteString("!(")
		if err := writeNode(b, c.Left()); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case condition.LogicAnd, condition.LogicOr:
		sep := " && "
		if c.Logic() == condition.LogicOr {
			sep = " || "
		}
		b.WriteString("(")
		if err := writeNode(b, c.Left()); err != nil {
			return err
		}
		b.WriteString(sep)
		if err := writeNode(b, c.Right()); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	default:
		return fmt.Errorf("unsupported logical operator: %s", c.Logic())
	}
}

func writeLeaf(b *strings.Builder, c *condition.Condition) error {
	key := strconv.Quote(c.Column())
	v := RowVar + "[" + key + "]"
	present := "(" + key + " in " + RowVar + " && " + v + " != null)"

	op := c.Operator()
	switch op {
	case condition.OpIsNull:
		b.WriteString("!" + present)
		return nil
	case condition.OpIsNotNull:
		b.WriteString(present)
		return nil
	}

	var pred string
	switch op {
	case condition.OpEq, condition.OpNe, condition.OpLt, condition.OpLte, condition.OpGt, condition.OpGte:
		s := c.Value().Scalar()
		pred = typeGuard(v, s) + " && " + v + " " + celComparison(op) + " " + literal(s)
	case condition.OpLike, condition.OpNotLike, condition.OpILike, condition.OpNotILike:
		pattern, _ := c.Value().Scalar().Str()
		re := strconv.Quote(likeToRegexp(pattern, op == condition.OpILike || op == condition.OpNotILike))
		match := v + ".matches(" + re + ")"
		if op == condition.OpNotLike || op == condition.OpNotILike {
			match = "!" + match
		}
		pred = "type(" + v + ") == string && " + match
	case condition.OpIn, condition.OpNotIn:
		items := c.Value().List()
		lits := make([]string, len(items))
		for i, it := range items {
			lits[i] = literal(it)
		}
		pred = v + " in [" + strings.Join(lits, ", ") + "]"
		if op == condition.OpNotIn {
			pred = "!(" + pred + ")"
		}
	case condition.OpBetween, condition.OpNotBetween:
		low, high := c.Value().Range()
		if op == condition.OpBetween {
			pred = typeGuard(v, low) + " && " + v + " >= " + literal(low) + " && " + v + " <= " + literal(high)
		} else {
			pred = typeGuard(v, low) + " && (" + v + " < " + literal(low) + " || " + v + " > " + literal(high) + ")"
		}
	default:
		return fmt.Errorf("unsupported operator: %s", op)
	}
	b.WriteString("(" + present + " && " + pred + ")")
	return nil
}

func celComparison(op condition.Operator) string {
	switch op {
	case condition.OpEq:
		return "=="
	case condition.OpNe:
		return "!="
	default:
		return string(op)
	}
}

// typeGuard keeps ordered comparisons from failing at runtime when the row
// holds a value of another type than the literal.
func typeGuard(v string, s condition.Scalar) string {
	switch s.Kind() {
	case condition.KindString:
		return "type(" + v + ") == string"
	case condition.KindNumber:
		return "(type(" + v + ") == double || type(" + v + ") == int || type(" + v + ") == uint)"
	case condition.KindBool:
		return "type(" + v + ") == bool"
	default:
		return "true"
	}
}

func literal(s condition.Scalar) string {
	switch s.Kind() {
	case condition.KindString:
		str, _ := s.Str()
		return strconv.Quote(str)
	case condition.KindNumber:
		n, _ := s.Num()
		text := strconv.FormatFloat(n, 'f', -1, 64)
		if !strings.Contains(text, ".") {
			text += ".0"
		}
		return text
	case condition.KindBool:
		b, _ := s.Boolean()
		return strconv.FormatBool(b)
	default:
		return "null"
	}
}

// likeToRegexp converts a LIKE pattern into an anchored RE2 expression.
// "%" matches any run of characters and "_" exactly one; a backslash escapes
// the next character.
func likeToRegexp(pattern string, fold bool) string {
	var b strings.Builder
	if fold {
		b.WriteString("(?is)^")
	} else {
		b.WriteString("(?s)^")
	}
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(regexp.QuoteMeta(`\`))
	}
	b.WriteString("$")
	return b.String()
}
