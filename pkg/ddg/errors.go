package ddg

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrTokenNotFound is returned when the search page carries no vqd token.
	ErrTokenNotFound = errors.New("DDG API token not found in response")

	// ErrEmptyResponse is returned when an instant answer has no abstract.
	ErrEmptyResponse = errors.New("DDG returned an empty answer")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents bodies that could not be parsed.
	ErrorClassDecode ErrorClass = "decode"
)

// Error is an upstream failure with its classification.
type Error struct {
	StatusCode int
	Class      ErrorClass
	Endpoint   string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("DDG %s error on %s (status %d): %v", e.Class, e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("DDG %s error on %s: %v", e.Class, e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// classOf returns the classification carried by err, if any.
func classOf(err error) ErrorClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		// 4xx and unparseable bodies will not improve on retry
		return false
	}
}
