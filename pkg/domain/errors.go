package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownOption is returned when a selection does not name a known service.
var ErrUnknownOption = errors.New("unknown option")

// ErrInvalidInput is returned when raw input is rejected before reaching the engine.
var ErrInvalidInput = errors.New("invalid input")

// ErrMalformedResponse is wrapped in a TransportError when a service reply cannot be used.
var ErrMalformedResponse = errors.New("malformed response")

// ValidationCode classifies a field validation failure.
type ValidationCode string

const (
	CodeOutOfRange ValidationCode = "out_of_range"
)

// ValidationError reports an answer that could not be accepted for a question.
// The session stays on the same step.
type ValidationError struct {
	Key  string
	Code ValidationCode

	// Eligibility marks the hard gate: the step never advances until a
	// qualifying answer is given.
	Eligibility bool

	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s (%s): %s", e.Key, e.Code, e.Reason)
	}
	return fmt.Sprintf("invalid %s (%s)", e.Key, e.Code)
}

// TransportError reports a failed call to an external service.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
