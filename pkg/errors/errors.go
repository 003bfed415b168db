package errors

import (
	"errors"
	"fmt"
)

// Common application errors with proper types for error handling

var (
	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates missing or malformed service configuration
	ErrConfiguration = errors.New("configuration error")

	// ErrExternalService indicates a failure in a third-party API (Sheets, email provider)
	ErrExternalService = errors.New("external service error")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// Code is a stable, client-visible error identifier. Raw error text stays in server logs.
type Code string

const (
	CodeValidation         Code = "validation_failed"
	CodeConfiguration      Code = "configuration_error"
	CodeSheetWriteFailed   Code = "sheet_write_failed"
	CodeNotificationFailed Code = "notification_failed"
	CodeInternal           Code = "internal_error"
)

// FieldViolation is a single field-level validation failure
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in one submission
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s: %s", e.Violations[0].Field, e.Violations[0].Message)
	default:
		return fmt.Sprintf("validation failed: %d violations", len(e.Violations))
	}
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// HasField reports whether a violation was recorded for field
func (e *ValidationError) HasField(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// MissingConfigError names a required configuration variable that is not set
type MissingConfigError struct {
	Variable string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Variable)
}

func (e *MissingConfigError) Unwrap() error { return ErrConfiguration }

// MissingConfig creates a MissingConfigError for the given variable
func MissingConfig(variable string) error {
	return &MissingConfigError{Variable: variable}
}

// ExternalServiceError wraps a failure returned by a remote API
type ExternalServiceError struct {
	Service   string
	Operation string
	Code      Code
	Err       error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Operation, e.Err)
}

func (e *ExternalServiceError) Unwrap() []error { return []error{ErrExternalService, e.Err} }

// ExternalService wraps err as an ExternalServiceError. A nil err stays nil.
func ExternalService(service, operation string, code Code, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Service: service, Operation: operation, Code: code, Err: err}
}

// InvalidInputError creates an invalid input error with context
func InvalidInputError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidInput)
}

// InternalError creates an internal error with context
func InternalError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInternal)
}

// CodeOf maps any error to its stable public code
func CodeOf(err error) Code {
	var ext *ExternalServiceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ext):
		if ext.Code != "" {
			return ext.Code
		}
		return CodeInternal
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	default:
		return CodeInternal
	}
}

// PublicMessage returns the client-facing message for a code
func PublicMessage(code Code) string {
	switch code {
	case CodeValidation:
		return "Validation failed"
	case CodeConfiguration:
		return "Service is not configured"
	case CodeSheetWriteFailed:
		return "Failed to record lead"
	case CodeNotificationFailed:
		return "Failed to send notification"
	default:
		return "Internal server error"
	}
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
