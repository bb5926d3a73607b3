package catalog

import (
	"errors"
	"fmt"
)

// Code classifies a catalog API failure.
type Code string

const (
	CodeNetworkError Code = "NETWORK_ERROR"
	CodeNotFound     Code = "NOT_FOUND"
	CodeServerError  Code = "SERVER_ERROR"
	CodeUnknownError Code = "UNKNOWN_ERROR"
)

// Error is the classified form every catalog fetch failure is reported as,
// both to the direct caller and on the store's error broadcast.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Code    Code   `json:"code"`
	Details string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("catalog: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("catalog: %s (%s)", e.Message, e.Code)
}

// AsError extracts the classified error from err, wrapping unclassified
// failures as UNKNOWN_ERROR so consumers always observe the taxonomy.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{
		Message: "An unexpected error occurred.",
		Code:    CodeUnknownError,
		Details: err.Error(),
	}
}
