// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// TablesResponse lists the queryable tables.
type TablesResponse struct {
	Tables []string `json:"tables"`
}
