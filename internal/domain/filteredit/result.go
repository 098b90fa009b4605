package filteredit

import (
	"errors"

	"inspectview/internal/domain/condition"
)

// ErrUnsupportedOperator marks an operator that is unknown or not offered for
// the filter type.
var ErrUnsupportedOperator = errors.New("unsupported operator")

// Status is the outcome of parsing editor text.
type Status uint8

const (
	// StatusEmpty: nothing typed yet. Not an error; no condition is built.
	StatusEmpty Status = iota
	// StatusIncomplete: only one bound of a range is filled. Not an error.
	StatusIncomplete
	// StatusInvalid: text is present but does not parse. Err is set.
	StatusInvalid
	// StatusValid: Value (and, after Commit, Condition) is set.
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusIncomplete:
		return "incomplete"
	case StatusInvalid:
		return "invalid"
	case StatusValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Result is the three-way parse outcome. Empty and Incomplete both mean
// "no condition yet" and never carry an error.
type Result struct {
	Status    Status
	Value     condition.Value
	Condition *condition.Condition
	Err       error
}

// OK reports whether a value was produced.
func (r Result) OK() bool { return r.Status == StatusValid }

// Pending reports whether input is still missing (empty or incomplete).
func (r Result) Pending() bool {
	return r.Status == StatusEmpty || r.Status == StatusIncomplete
}

func invalid(err error) Result {
	return Result{Status: StatusInvalid, Err: err}
}

// EditState is the in-progress edit of one filter: the chosen operator and
// the raw text of its inputs. Secondary is only used by range operators.
type EditState struct {
	FilterType condition.FilterType `json:"filter_type"`
	Operator   condition.Operator   `json:"operator"`
	Primary    string               `json:"primary"`
	Secondary  string               `json:"secondary,omitempty"`
}
