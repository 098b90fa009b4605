package filteredit

import (
	"fmt"
	"strings"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
)

// SessionState is the lifecycle state of an edit session.
type SessionState uint8

const (
	Closed SessionState = iota
	Editing
)

func (s SessionState) String() string {
	if s == Editing {
		return "editing"
	}
	return "closed"
}

// Session drives one filter editor for one column at a time:
//
//	Closed --Open--> Editing --Commit(valid)--> Closed (applied)
//	                 Editing --Commit(empty|incomplete|invalid)--> Editing
//	                 Editing --Cancel--> Closed (discarded)
//
// A Session is owned by a single caller and is not safe for concurrent use.
type Session struct {
	codec   Codec
	state   SessionState
	column  string
	edit    EditState
	prior   *condition.Condition
	applied *condition.Condition
	err     error
}

// NewSession returns a closed session using codec.
func NewSession(codec Codec) *Session {
	return &Session{codec: codec}
}

// Open starts editing column. When existing is a leaf on the same column its
// operator and formatted value seed the editor; otherwise the type's default
// operator with empty text is used.
func (s *Session) Open(column string, ft condition.FilterType, existing *condition.Condition) {
	if existing != nil && (existing.IsCompound() || existing.Column() != column) {
		existing = nil
	}
	s.state = Editing
	s.column = column
	s.prior = existing
	s.applied = nil
	s.err = nil
	s.edit = s.codec.FormatCondition(ft, existing)
}

// SwitchColumn retargets an open session. It behaves as Cancel followed by Open.
func (s *Session) SwitchColumn(column string, ft condition.FilterType, existing *condition.Condition) {
	s.Cancel()
	s.Open(column, ft, existing)
}

// State returns the lifecycle state.
func (s *Session) State() SessionState { return s.state }

// Column returns the column being edited.
func (s *Session) Column() string { return s.column }

// Edit returns a snapshot of the editor state.
func (s *Session) Edit() EditState { return s.edit }

// Err returns the parse error from the last commit, if any.
func (s *Session) Err() error { return s.err }

// Applied returns the condition produced by the last successful commit.
func (s *Session) Applied() *condition.Condition { return s.applied }

// SetOperator changes the operator. Text is kept so switching between
// operators of the same arity does not lose input.
func (s *Session) SetOperator(op condition.Operator) error {
	if s.state != Editing {
		return apperror.NewValidation("filter editor is not open")
	}
	if !condition.Supports(s.edit.FilterType, op) {
		return apperror.NewUnsupportedOperator(string(s.edit.FilterType), string(op))
	}
	s.edit.Operator = op
	s.err = nil
	return nil
}

// SetPrimary replaces the primary input text.
func (s *Session) SetPrimary(text string) {
	if s.state == Editing {
		s.edit.Primary = text
		s.err = nil
	}
}

// SetSecondary replaces the secondary (range upper bound) input text.
func (s *Session) SetSecondary(text string) {
	if s.state == Editing {
		s.edit.Secondary = text
		s.err = nil
	}
}

// Commit parses the current input. A valid result closes the session and
// records the condition; any other result keeps it open. Committing a closed
// session is a no-op returning StatusEmpty.
func (s *Session) Commit() Result {
	if s.state != Editing {
		return Result{Status: StatusEmpty}
	}
	r := s.codec.Commit(s.column, s.edit)
	switch r.Status {
	case StatusValid:
		s.applied = r.Condition
		s.prior = r.Condition
		s.err = nil
		s.state = Closed
	case StatusInvalid:
		s.err = r.Err
	default:
		s.err = nil
	}
	return r
}

// Cancel discards the edit and reverts the text to the prior condition.
func (s *Session) Cancel() {
	if s.state != Editing {
		return
	}
	s.edit = s.codec.FormatCondition(s.edit.FilterType, s.prior)
	s.err = nil
	s.state = Closed
}

// Suggest filters candidates for autocomplete against the token being typed.
// For list operators the token is the text after the last comma and values
// already in the list are skipped. limit <= 0 means no limit.
func (s *Session) Suggest(candidates []condition.Scalar, limit int) []string {
	return s.codec.Suggest(s.edit, candidates, limit)
}

// Suggest is the session-free form of Session.Suggest.
func (c Codec) Suggest(st EditState, candidates []condition.Scalar, limit int) []string {
	token := st.Primary
	taken := make(map[string]struct{})
	if st.Operator.Arity() == condition.ArityList {
		parts := strings.Split(st.Primary, listSeparator)
		token = parts[len(parts)-1]
		for _, p := range parts[:len(parts)-1] {
			taken[strings.TrimSpace(p)] = struct{}{}
		}
	}
	token = strings.ToLower(strings.TrimSpace(token))

	var out []string
	seen := make(map[string]struct{})
	for _, cand := range candidates {
		text := c.FormatScalar(st.FilterType, cand)
		if text == "" {
			continue
		}
		if _, ok := taken[text]; ok {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		if token != "" && !strings.Contains(strings.ToLower(text), token) {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (s *Session) String() string {
	return fmt.Sprintf("%s %s %s %q %q", s.state, s.column, s.edit.Operator, s.edit.Primary, s.edit.Secondary)
}
