package condition

import "strings"

// FilterType is the logical column type that governs which operators apply
// and how values are parsed and formatted.
type FilterType string

const (
	TypeString   FilterType = "string"
	TypeNumber   FilterType = "number"
	TypeBoolean  FilterType = "boolean"
	TypeDate     FilterType = "date"
	TypeDatetime FilterType = "datetime"
	TypeDuration FilterType = "duration"
	TypeUnknown  FilterType = "unknown"
)

// The first operator of each list is the type's default.
var (
	stringOperators = []Operator{
		OpEq, OpNe, OpLike, OpNotLike, OpILike, OpNotILike,
		OpIn, OpNotIn, OpIsNull, OpIsNotNull,
	}
	numberOperators = []Operator{
		OpEq, OpNe, OpLt, OpLte, OpGt, OpGte,
		OpIn, OpNotIn, OpBetween, OpNotBetween, OpIsNull, OpIsNotNull,
	}
	booleanOperators = []Operator{
		OpEq, OpNe, OpIsNull, OpIsNotNull,
	}
	dateOperators = []Operator{
		OpEq, OpNe, OpLt, OpLte, OpGt, OpGte,
		OpBetween, OpNotBetween, OpIsNull, OpIsNotNull,
	}
)

// FilterTypes lists every filter type in catalog order.
func FilterTypes() []FilterType {
	return []FilterType{
		TypeString, TypeNumber, TypeBoolean, TypeDate,
		TypeDatetime, TypeDuration, TypeUnknown,
	}
}

// ParseFilterType resolves a type name; anything unrecognized is TypeUnknown.
func ParseFilterType(s string) FilterType {
	ft := FilterType(strings.ToLower(strings.TrimSpace(s)))
	switch ft {
	case TypeString, TypeNumber, TypeBoolean, TypeDate, TypeDatetime, TypeDuration:
		return ft
	default:
		return TypeUnknown
	}
}

func operatorTable(ft FilterType) []Operator {
	switch ft {
	case TypeNumber, TypeDuration:
		return numberOperators
	case TypeBoolean:
		return booleanOperators
	case TypeDate, TypeDatetime:
		return dateOperators
	default:
		return stringOperators
	}
}

// Operators returns the ordered operators a UI may offer for ft.
// The returned slice is a fresh copy.
func Operators(ft FilterType) []Operator {
	table := operatorTable(ft)
	out := make([]Operator, len(table))
	copy(out, table)
	return out
}

// DefaultOperator returns the operator preselected when no condition exists yet.
func DefaultOperator(ft FilterType) Operator {
	return operatorTable(ft)[0]
}

// Supports reports whether op is offered for ft.
func Supports(ft FilterType, op Operator) bool {
	for _, o := range operatorTable(ft) {
		if o == op {
			return true
		}
	}
	return false
}
