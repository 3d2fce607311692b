package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing           ErrorType = "PARSING"
	ErrTypeStorage           ErrorType = "STORAGE"
	ErrTypeValidation        ErrorType = "VALIDATION"
	ErrTypeConfig            ErrorType = "CONFIG"
	ErrTypeNumerical         ErrorType = "NUMERICAL"
	ErrTypeTimeIntegrity     ErrorType = "TIME_INTEGRITY"
	ErrTypeBarrierConvention ErrorType = "BARRIER_CONVENTION"
	ErrTypeInternal          ErrorType = "INTERNAL"
)

// fatalTypes abort a whole batch rather than a single row
var fatalTypes = map[ErrorType]bool{
	ErrTypeTimeIntegrity:     true,
	ErrTypeBarrierConvention: true,
	ErrTypeNumerical:         true,
	ErrTypeConfig:            true,
}

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// IsFatal reports whether err must abort the batch
func IsFatal(err error) bool {
	return fatalTypes[TypeOf(err)]
}

// Helper functions for common error types

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a schema validation error
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewNumericalError creates an error for a failed numerical consistency check
func NewNumericalError(message string) *AppError {
	return NewAppError(ErrTypeNumerical, message, nil)
}

// NewTimeIntegrityError creates a lookahead violation error
func NewTimeIntegrityError(message string, cause error) *AppError {
	return NewAppError(ErrTypeTimeIntegrity, message, cause)
}

// NewBarrierConventionError creates a debt barrier unit mismatch error
func NewBarrierConventionError(message string) *AppError {
	return NewAppError(ErrTypeBarrierConvention, message, nil)
}
