package dto

import (
	"encoding/json"

	"inspectview/internal/domain/condition"
	"inspectview/internal/domain/filteredit"
	"inspectview/internal/domain/query"
)

// OperatorInfo describes one operator offered for a filter type.
type OperatorInfo struct {
	Operator string `json:"operator"`
	Arity    string `json:"arity"`
}

// OperatorsResponse is the operator catalog of one filter type.
type OperatorsResponse struct {
	FilterType string         `json:"filter_type"`
	Default    string         `json:"default"`
	Operators  []OperatorInfo `json:"operators"`
}

// NewOperatorsResponse builds the catalog entry for ft.
func NewOperatorsResponse(ft condition.FilterType) OperatorsResponse {
	ops := condition.Operators(ft)
	out := OperatorsResponse{
		FilterType: string(ft),
		Default:    string(condition.DefaultOperator(ft)),
		Operators:  make([]OperatorInfo, len(ops)),
	}
	for i, op := range ops {
		out.Operators[i] = OperatorInfo{Operator: string(op), Arity: op.Arity().String()}
	}
	return out
}

// CommitRequest carries the raw text of a filter edit.
type CommitRequest struct {
	Column     string `json:"column" binding:"required"`
	FilterType string `json:"filter_type"`
	Operator   string `json:"operator" binding:"required"`
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
}

// CommitResponse is a committed leaf condition.
type CommitResponse struct {
	Condition *condition.Condition `json:"condition"`
	Chip      string               `json:"chip"`
}

// FormatRequest asks for the editable text of a condition.
type FormatRequest struct {
	FilterType string          `json:"filter_type"`
	Condition  json.RawMessage `json:"condition"`
}

// FormatResponse mirrors filteredit.EditState.
type FormatResponse = filteredit.EditState

// DescribeResponse renders a condition for display and as SQL.
type DescribeResponse struct {
	Chip    string   `json:"chip"`
	Text    string   `json:"text"`
	SQL     string   `json:"sql,omitempty"`
	Args    []any    `json:"args,omitempty"`
	Columns []string `json:"columns"`
	CEL     string   `json:"cel,omitempty"`
}

// EvaluateRequest applies a condition to inline rows.
type EvaluateRequest struct {
	Condition json.RawMessage `json:"condition"`
	Rows      []query.Row     `json:"rows"`
}

// EvaluateResponse holds the matching rows.
type EvaluateResponse struct {
	Rows    []query.Row `json:"rows"`
	Matched int         `json:"matched"`
	Total   int         `json:"total"`
}

// SuggestRequest filters autocomplete candidates for an in-progress edit.
type SuggestRequest struct {
	filteredit.EditState
	Candidates []condition.Scalar `json:"candidates"`
	Limit      int                `json:"limit"`
}

// SuggestResponse lists formatted suggestions.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}
