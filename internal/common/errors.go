package common

import "fmt"

// NotRegisteredError indicates a lookup of an unknown channel name.
// It carries the requested name so callers can surface actionable
// diagnostics or fall back to another channel.
type NotRegisteredError struct {
	Name string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("channel '%s' is not registered", e.Name)
}

// NewNotRegisteredError creates a new NotRegisteredError.
func NewNotRegisteredError(name string) *NotRegisteredError {
	return &NotRegisteredError{Name: name}
}

// ValidationError indicates invalid input data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// UnauthorizedError indicates missing or invalid authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// TransportError indicates a request-level failure of an external delivery
// transport — one that prevented any dispatch attempt, as opposed to the
// per-recipient failures recorded in dispatch results.
type TransportError struct {
	Transport string
	Message   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %s", e.Transport, e.Message)
}

// NewTransportError creates a new TransportError.
func NewTransportError(transport, message string) *TransportError {
	return &TransportError{Transport: transport, Message: message}
}
