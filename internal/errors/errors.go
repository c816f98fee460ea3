// Package errors provides the typed error model used during startup.
//
// Everything that can go wrong while turning properties into components is a
// configuration fault: a required property is missing or a value cannot be
// interpreted. Faults carry the name of the offending field so the host can
// report it before refusing to serve.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of an error.
type ErrorType string

const (
	// ErrorTypeConfiguration marks faults raised while resolving configuration.
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"
)

// ErrorCode is a stable identifier for programmatic handling.
type ErrorCode string

const (
	CodeMissingProperty ErrorCode = "MISSING_PROPERTY"
	CodeInvalidProperty ErrorCode = "INVALID_PROPERTY"
	CodeInvalidConfig   ErrorCode = "INVALID_CONFIG"
)

// Error is the single error type produced by configuration resolution.
type Error struct {
	Type    ErrorType `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %q)", msg, e.Field)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Builder provides a fluent interface for constructing an Error.
type Builder struct {
	err *Error
}

// NewConfigurationFault starts a fault for the given field.
func NewConfigurationFault(code ErrorCode, field, message string) *Builder {
	return &Builder{
		err: &Error{
			Type:    ErrorTypeConfiguration,
			Code:    code,
			Field:   field,
			Message: message,
		},
	}
}

// MissingProperty is the fault for an absent required property.
func MissingProperty(field string) *Error {
	return NewConfigurationFault(CodeMissingProperty, field, "required property is missing").Build()
}

// InvalidProperty is the fault for a value that cannot be interpreted.
func InvalidProperty(field, value string, cause error) *Error {
	return NewConfigurationFault(CodeInvalidProperty, field, "property value cannot be interpreted").
		WithDetails(fmt.Sprintf("got %q", value)).
		WithCause(cause).
		Build()
}

// WithDetails adds additional context to the fault.
func (b *Builder) WithDetails(details string) *Builder {
	b.err.Details = details
	return b
}

// WithCause records the underlying cause.
func (b *Builder) WithCause(cause error) *Builder {
	b.err.Cause = cause
	return b
}

// Build returns the constructed Error.
func (b *Builder) Build() *Error {
	return b.err
}

// IsConfigurationFault reports whether err, or anything it wraps, is a fault.
func IsConfigurationFault(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrorTypeConfiguration
	}
	return false
}

// FieldOf returns the field named by the fault in err, or "".
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// CodeOf returns the code of the fault in err, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
