// Package api provides error types for backend responses.
package api

import (
	"errors"
	"fmt"
)

// ErrNoData marks a response that carried a "warning" instead of data.
var ErrNoData = errors.New("no data available")

// TransportError means the call itself failed: connection refused,
// timeout, a non-JSON body, or an error status without an error field.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AppError is a well-formed response whose "error" field is set.
type AppError struct {
	Op      string
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// WarningError is a well-formed response whose "warning" field is set.
// It matches ErrNoData with errors.Is.
type WarningError struct {
	Op      string
	Message string
	Logs    []string
}

func (e *WarningError) Error() string {
	return e.Message
}

func (e *WarningError) Is(target error) bool {
	return target == ErrNoData
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsApp reports whether err is an application-reported failure.
func IsApp(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// Message returns the text shown to the user for err: the backend's own
// message for application errors and warnings, the cause for transport
// failures.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	var we *WarningError
	if errors.As(err, &we) {
		return we.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		if te.StatusCode != 0 {
			return fmt.Sprintf("server returned status %d", te.StatusCode)
		}
		return te.Err.Error()
	}
	return err.Error()
}
