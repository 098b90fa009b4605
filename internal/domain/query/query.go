// Package query defines the request and response exchanged with the remote
// query engine: a filter condition, sort keys and a page window.
package query

import (
	"bytes"
	"encoding/json"
	"strings"

	"inspectview/internal/core/apperror"
	"inspectview/internal/domain/condition"
)

const (
	DefaultLimit = 100
	MaxLimit     = 5000
)

// Request asks the engine for one page of rows.
type Request struct {
	Filter  *condition.Condition `json:"filter"`
	OrderBy []condition.SortKey  `json:"order_by,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
	Offset  int                  `json:"offset,omitempty"`
}

// Normalize applies the default limit.
func (r Request) Normalize() Request {
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// Validate checks the page window.
func (r Request) Validate() error {
	if r.Limit < 0 || r.Limit > MaxLimit {
		return apperror.NewValidation("limit out of range").
			WithDetail("limit", r.Limit).
			WithDetail("max", MaxLimit)
	}
	if r.Offset < 0 {
		return apperror.NewValidation("offset must not be negative").WithDetail("offset", r.Offset)
	}
	return nil
}

// Key returns the serialized request. Requests with equal keys are
// interchangeable and may share a cached response.
// HTML characters are not escaped, so the key equals the body sent to engines.
func (r Request) Key() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Row is one result row keyed by column name.
type Row map[string]any

// Response is one page of rows.
type Response struct {
	Rows       []Row `json:"rows"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
