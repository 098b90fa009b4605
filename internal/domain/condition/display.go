package condition

import "strings"

// ChipText renders a leaf compactly for an active-filter chip, without the
// column name: "= 'gpt-4'", "IN ('a', 'b')", "BETWEEN 5 AND 10", "IS NULL".
// Compound nodes render as Describe.
func ChipText(c *Condition) string {
	if c == nil {
		return ""
	}
	if c.kind == NodeCompound {
		return Describe(c)
	}
	switch c.value.Kind() {
	case ValueNone:
		return string(c.op)
	case ValueList:
		parts := make([]string, len(c.value.items))
		for i, it := range c.value.items {
			parts[i] = literal(it)
		}
		return string(c.op) + " (" + strings.Join(parts, ", ") + ")"
	case ValueRange:
		low, high := c.value.Range()
		return string(c.op) + " " + literal(low) + " AND " + literal(high)
	default:
		return string(c.op) + " " + literal(c.value.scalar)
	}
}

// Describe renders the whole tree as readable text, parenthesizing nested
// compound operands: "model = 'gpt-4' AND (score > 0.8 OR score IS NULL)".
func Describe(c *Condition) string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	describe(&sb, c, false)
	return sb.String()
}

func describe(sb *strings.Builder, c *Condition, nested bool) {
	if c.kind == NodeSimple {
		sb.WriteString(c.column)
		sb.WriteByte(' ')
		sb.WriteString(ChipText(c))
		return
	}
	if c.logic == LogicNot {
		sb.WriteString("NOT (")
		describe(sb, c.left, false)
		sb.WriteByte(')')
		return
	}
	if nested {
		sb.WriteByte('(')
	}
	describe(sb, c.left, c.left.kind == NodeCompound && c.left.logic != LogicNot)
	sb.WriteByte(' ')
	sb.WriteString(string(c.logic))
	sb.WriteByte(' ')
	describe(sb, c.right, c.right.kind == NodeCompound && c.right.logic != LogicNot)
	if nested {
		sb.WriteByte(')')
	}
}

func literal(s Scalar) string {
	switch s.Kind() {
	case KindString:
		return "'" + strings.ReplaceAll(s.str, "'", "''") + "'"
	case KindNull:
		return "NULL"
	default:
		return s.String()
	}
}
