package condition

import "fmt"

// OperandError reports a construction-time invariant violation, such as a null
// range bound or a value whose shape does not match the operator. It is raised
// with panic: it always indicates a caller bug, never bad user input.
type OperandError struct {
	Column   string
	Operator string
	Reason   string
}

func (e *OperandError) Error() string {
	switch {
	case e.Column != "" && e.Operator != "":
		return fmt.Sprintf("condition: %s %s: %s", e.Column, e.Operator, e.Reason)
	case e.Operator != "":
		return fmt.Sprintf("condition: %s: %s", e.Operator, e.Reason)
	default:
		return "condition: " + e.Reason
	}
}

// DecodeError reports a wire document that cannot be turned back into a Condition.
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "condition: decode"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }
