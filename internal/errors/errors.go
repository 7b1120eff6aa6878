package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Hira error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrNoActiveRound  ErrorCode = "NO_ACTIVE_ROUND" // 409
	ErrCorpusParse    ErrorCode = "CORPUS_PARSE"    // 422
	ErrEmptyCorpus    ErrorCode = "EMPTY_CORPUS"    // 422
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// HiraError represents a structured error with code, status, and details.
type HiraError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the underlying error, if any. Not exposed in Details.
	cause error
}

// Error implements the error interface.
func (e *HiraError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause so errors.Is/As see through it.
func (e *HiraError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *HiraError {
	return &HiraError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing resource, e.g. ("session", id).
func NewNotFound(kind string, id any) *HiraError {
	return &HiraError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %v", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewNoActiveRound creates a 409 error for an answer submitted with no prompt pending.
func NewNoActiveRound() *HiraError {
	return &HiraError{
		Code:    ErrNoActiveRound,
		Status:  409,
		Message: "no prompt is pending; request the next card first",
	}
}

// NewCorpusParse creates a 422 error for a corpus line that does not split into a pair.
func NewCorpusParse(source string, line, fields int) *HiraError {
	return &HiraError{
		Code:   ErrCorpusParse,
		Status: 422,
		Message: fmt.Sprintf("%s:%d: expected 2 fields separated by %q, got %d",
			source, line, " -- ", fields),
		Details: map[string]any{
			"source":          source,
			"line":            line,
			"fields":          fields,
			"expected_fields": 2,
		},
	}
}

// NewEmptyCorpus creates a 422 error for a corpus with no cards.
func NewEmptyCorpus() *HiraError {
	return &HiraError{
		Code:    ErrEmptyCorpus,
		Status:  422,
		Message: "corpus contains no cards",
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *HiraError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &HiraError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a HiraError with the given code.
func Is(err error, code ErrorCode) bool {
	var hErr *HiraError
	if stderrors.As(err, &hErr) {
		return hErr.Code == code
	}
	return false
}
