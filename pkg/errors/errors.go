// Package errors defines the error taxonomy of the ingestion pipeline.
// Callers branch on classification, not on broad error types: decode and
// mapping failures skip a record, store failures drive the retry ladder,
// external-sink failures are logged and swallowed.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies a pipeline error.
type ErrorType string

const (
	// ErrorTypeDecode marks a transport payload that could not be decoded.
	ErrorTypeDecode ErrorType = "DECODE"
	// ErrorTypeMapping marks an event the schema table does not recognize.
	ErrorTypeMapping ErrorType = "MAPPING"
	// ErrorTypeStore marks a storage write or read failure.
	ErrorTypeStore ErrorType = "STORE"
	// ErrorTypeExternal marks a best-effort sink failure (metrics, mail,
	// event bus). Never fatal.
	ErrorTypeExternal ErrorType = "EXTERNAL"
	// ErrorTypeInternal marks anything else.
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError is a classified pipeline error.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewDecodeError creates a decode error.
func NewDecodeError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeDecode, Message: message, Cause: cause}
}

// NewMappingError creates a mapping error.
func NewMappingError(message string) *AppError {
	return &AppError{Type: ErrorTypeMapping, Message: message}
}

// NewStoreError creates a store error.
func NewStoreError(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeStore,
		Message: fmt.Sprintf("store operation %q failed", operation),
		Cause:   cause,
	}
}

// NewExternalError creates an external-sink error.
func NewExternalError(sink string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: fmt.Sprintf("sink %q failed", sink),
		Cause:   cause,
	}
}

// IsType reports whether err carries the given classification anywhere in
// its chain.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	for errors.As(err, &appErr) {
		if appErr.Type == t {
			return true
		}
		err = appErr.Cause
		if err == nil {
			return false
		}
	}
	return false
}
