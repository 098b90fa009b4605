package condition

import "strings"

// Operator is a leaf comparison operator. The string form is the wire token.
type Operator string

const (
	OpEq         Operator = "="
	OpNe         Operator = "!="
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpLike       Operator = "LIKE"
	OpNotLike    Operator = "NOT LIKE"
	OpILike      Operator = "ILIKE"
	OpNotILike   Operator = "NOT ILIKE"
	OpIn         Operator = "IN"
	OpNotIn      Operator = "NOT IN"
	OpIsNull     Operator = "IS NULL"
	OpIsNotNull  Operator = "IS NOT NULL"
	OpBetween    Operator = "BETWEEN"
	OpNotBetween Operator = "NOT BETWEEN"
)

var allOperators = []Operator{
	OpEq, OpNe, OpLt, OpLte, OpGt, OpGte,
	OpLike, OpNotLike, OpILike, OpNotILike,
	OpIn, OpNotIn, OpIsNull, OpIsNotNull,
	OpBetween, OpNotBetween,
}

// Arity is the value shape an operator requires.
type Arity uint8

const (
	ArityNone Arity = iota
	AritySingle
	ArityList
	ArityRange
)

func (a Arity) String() string {
	switch a {
	case ArityNone:
		return "none"
	case AritySingle:
		return "single"
	case ArityList:
		return "list"
	case ArityRange:
		return "range"
	default:
		return "unknown"
	}
}

// ValueKind returns the Value shape matching the arity.
func (a Arity) ValueKind() ValueKind {
	switch a {
	case AritySingle:
		return ValueScalar
	case ArityList:
		return ValueList
	case ArityRange:
		return ValueRange
	default:
		return ValueNone
	}
}

// Arity classifies the operator by the value shape it takes.
func (op Operator) Arity() Arity {
	switch op {
	case OpIsNull, OpIsNotNull:
		return ArityNone
	case OpIn, OpNotIn:
		return ArityList
	case OpBetween, OpNotBetween:
		return ArityRange
	default:
		return AritySingle
	}
}

// Valid reports whether op is a known leaf operator.
func (op Operator) Valid() bool {
	for _, o := range allOperators {
		if o == op {
			return true
		}
	}
	return false
}

// IsPattern reports whether op is one of the LIKE family.
func (op Operator) IsPattern() bool {
	switch op {
	case OpLike, OpNotLike, OpILike, OpNotILike:
		return true
	}
	return false
}

// ParseOperator resolves a wire token, case-insensitively and tolerant of
// surrounding and repeated whitespace ("not  in" -> NOT IN).
func ParseOperator(s string) (Operator, bool) {
	norm := Operator(strings.ToUpper(strings.Join(strings.Fields(s), " ")))
	if norm.Valid() {
		return norm, true
	}
	return "", false
}

// Logic is a compound operator.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
	LogicNot Logic = "NOT"
)

// Valid reports whether l is a known compound operator.
func (l Logic) Valid() bool {
	return l == LogicAnd || l == LogicOr || l == LogicNot
}
