// Package filteredit converts between typed condition values and the raw text
// edited in filter inputs, and drives a single filter edit session from open
// to commit or cancel.
package filteredit

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"inspectview/internal/domain/condition"
)

// ErrUnparseable marks text that is present but does not parse for the filter type.
var ErrUnparseable = errors.New("unparseable input")

const (
	dateLayout       = "2006-01-02"
	datetimeLayout   = "2006-01-02T15:04"
	storedTimeLayout = "2006-01-02T15:04:05.000Z07:00"
	listSeparator    = ","
	listJoin         = ", "
)

// Accepted input layouts, tried in order. Layouts without a zone are read in
// the codec location.
var timeLayouts = []string{
	time.RFC3339Nano,
	dateLayout,
	datetimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Codec formats and parses filter values. The zero value uses UTC.
type Codec struct {
	// Location is used to read zone-less input and to render datetimes.
	Location *time.Location
}

// DefaultCodec renders and reads times in UTC.
var DefaultCodec = Codec{Location: time.UTC}

func (c Codec) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// FormatScalar renders a single value for editing. Null renders as "".
func (c Codec) FormatScalar(ft condition.FilterType, s condition.Scalar) string {
	if s.IsNull() {
		return ""
	}
	switch ft {
	case condition.TypeNumber, condition.TypeDuration:
		if n, ok := s.Num(); ok {
			return decimal.NewFromFloat(n).String()
		}
	case condition.TypeDate:
		if t, ok := c.scalarTime(s); ok {
			return t.Format(dateLayout)
		}
	case condition.TypeDatetime:
		if t, ok := c.scalarTime(s); ok {
			return t.Format(datetimeLayout)
		}
	}
	return s.String()
}

func (c Codec) scalarTime(s condition.Scalar) (time.Time, bool) {
	str, ok := s.Str()
	if !ok {
		return time.Time{}, false
	}
	t, err := c.parseTime(str)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(c.loc()), true
}

func (c Codec) parseTime(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, text, c.loc()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrUnparseable, text)
}

// Format renders a condition value as editor text. Lists join into the
// primary text; ranges split into primary (low) and secondary (high).
func (c Codec) Format(ft condition.FilterType, v condition.Value) (primary, secondary string) {
	switch v.Kind() {
	case condition.ValueScalar:
		return c.FormatScalar(ft, v.Scalar()), ""
	case condition.ValueList:
		items := v.List()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = c.FormatScalar(ft, it)
		}
		return strings.Join(parts, listJoin), ""
	case condition.ValueRange:
		low, high := v.Range()
		return c.FormatScalar(ft, low), c.FormatScalar(ft, high)
	default:
		return "", ""
	}
}

// FormatCondition seeds editor state from an existing leaf. Pattern values
// are shown as stored, wildcards included.
func (c Codec) FormatCondition(ft condition.FilterType, cond *condition.Condition) EditState {
	if cond == nil || cond.IsCompound() {
		return EditState{FilterType: ft, Operator: condition.DefaultOperator(ft)}
	}
	primary, secondary := c.Format(ft, cond.Value())
	return EditState{
		FilterType: ft,
		Operator:   cond.Operator(),
		Primary:    primary,
		Secondary:  secondary,
	}
}

// ParseScalar reads one value. Failures wrap ErrUnparseable. Callers handle
// empty text before calling.
func (c Codec) ParseScalar(ft condition.FilterType, text string) (condition.Scalar, error) {
	switch ft {
	case condition.TypeNumber, condition.TypeDuration:
		d, err := decimal.NewFromString(strings.TrimSpace(text))
		if err != nil {
			return condition.Null(), fmt.Errorf("%w: %q is not a number", ErrUnparseable, text)
		}
		f, _ := d.Float64()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return condition.Null(), fmt.Errorf("%w: %q is not a finite number", ErrUnparseable, text)
		}
		return condition.Number(f), nil
	case condition.TypeBoolean:
		switch strings.TrimSpace(text) {
		case "true":
			return condition.Bool(true), nil
		case "false":
			return condition.Bool(false), nil
		}
		return condition.Null(), fmt.Errorf("%w: %q is not true or false", ErrUnparseable, text)
	case condition.TypeDate:
		t, err := c.parseTime(text)
		if err != nil {
			return condition.Null(), err
		}
		return condition.String(t.In(c.loc()).Format(dateLayout)), nil
	case condition.TypeDatetime:
		t, err := c.parseTime(text)
		if err != nil {
			return condition.Null(), err
		}
		return condition.String(t.UTC().Format(storedTimeLayout)), nil
	default:
		return condition.String(text), nil
	}
}

// Parse converts editor text into a value shaped for op. Operators outside
// the catalog of ft are Invalid with ErrUnsupportedOperator.
func (c Codec) Parse(ft condition.FilterType, op condition.Operator, primary, secondary string) Result {
	if !op.Valid() {
		return invalid(fmt.Errorf("%w: unknown operator %q", ErrUnsupportedOperator, op))
	}
	if !condition.Supports(ft, op) {
		return invalid(fmt.Errorf("%w: %q is not offered for %s filters", ErrUnsupportedOperator, op, ft))
	}
	switch op.Arity() {
	case condition.ArityNone:
		return Result{Status: StatusValid, Value: condition.NoValue()}
	case condition.ArityList:
		return c.parseList(ft, primary)
	case condition.ArityRange:
		return c.parseRange(ft, primary, secondary)
	default:
		if blank(primary) {
			return Result{Status: StatusEmpty}
		}
		s, err := c.ParseScalar(ft, primary)
		if err != nil {
			return invalid(err)
		}
		return Result{Status: StatusValid, Value: condition.ScalarValue(s)}
	}
}

func (c Codec) parseList(ft condition.FilterType, text string) Result {
	var items []condition.Scalar
	for _, seg := range strings.Split(text, listSeparator) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		s, err := c.ParseScalar(ft, seg)
		if err != nil {
			return invalid(err)
		}
		items = append(items, s)
	}
	if len(items) == 0 {
		return Result{Status: StatusEmpty}
	}
	return Result{Status: StatusValid, Value: condition.ListValue(items...)}
}

func (c Codec) parseRange(ft condition.FilterType, primary, secondary string) Result {
	switch {
	case blank(primary) && blank(secondary):
		return Result{Status: StatusEmpty}
	case blank(primary) || blank(secondary):
		return Result{Status: StatusIncomplete}
	}
	low, err := c.ParseScalar(ft, primary)
	if err != nil {
		return invalid(err)
	}
	high, err := c.ParseScalar(ft, secondary)
	if err != nil {
		return invalid(err)
	}
	return Result{Status: StatusValid, Value: condition.RangeValue(low, high)}
}

// Commit parses st and, when the input is complete and valid, builds the leaf
// condition for column. LIKE-family values without a '%' are wrapped as
// "%value%"; the wrapping is not undone when the value is formatted again.
func (c Codec) Commit(column string, st EditState) Result {
	r := c.Parse(st.FilterType, st.Operator, st.Primary, st.Secondary)
	if r.Status != StatusValid {
		return r
	}
	if st.Operator.IsPattern() {
		if s, ok := r.Value.Scalar().Str(); ok && !strings.Contains(s, "%") {
			r.Value = condition.ScalarValue(condition.String("%" + s + "%"))
		}
	}
	r.Condition = condition.NewSimple(column, st.Operator, r.Value)
	return r
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
