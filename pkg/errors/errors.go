// Package errors provides custom error types for the gatelink runtime.
// These errors enable programmatic error checking across the session,
// subscription and event channel layers.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are the standard library helpers, re-exported so callers need
// a single errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the gatelink runtime
var (
	// ErrUnrecognizedEvent indicates a wire event whose type is not registered
	ErrUnrecognizedEvent = errors.New("unrecognized event")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrGatewayUnavailable indicates that the gateway answered with a server error
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrUnauthorized indicates that the gateway rejected the credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSubscriptionRejected indicates that the gateway refused a subscription
	ErrSubscriptionRejected = errors.New("subscription rejected")

	// ErrAlreadyListening indicates a second ListenEvents on the same session
	ErrAlreadyListening = errors.New("session already listening")

	// ErrNotListening indicates an operation that needs an active event channel
	ErrNotListening = errors.New("session not listening")

	// ErrSessionClosed indicates use of a session after Close
	ErrSessionClosed = errors.New("session closed")

	// ErrChannelClosed indicates the event channel terminated
	ErrChannelClosed = errors.New("event channel closed")

	// ErrListenerPanic indicates an application listener panicked during dispatch
	ErrListenerPanic = errors.New("listener panic")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// UnrecognizedEventError is returned by the decoder for event names
// that have no registry entry.
type UnrecognizedEventError struct {
	Name   string
	Reason string
}

// Error implements the error interface
func (e *UnrecognizedEventError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unrecognized event %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("unrecognized event %q", e.Name)
}

// Is implements errors.Is support
func (e *UnrecognizedEventError) Is(target error) bool {
	return target == ErrUnrecognizedEvent
}

// NewUnrecognizedEventError creates a new UnrecognizedEventError
func NewUnrecognizedEventError(name, reason string) *UnrecognizedEventError {
	return &UnrecognizedEventError{Name: name, Reason: reason}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents a non-success answer from a gateway REST endpoint
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s failed (status %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway %s failed: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return target == ErrUnauthorized
	case e.StatusCode >= 500:
		return target == ErrGatewayUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(operation string, statusCode int, message string) *APIError {
	return &APIError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ChannelError represents a failure of the chunked event channel.
// Op is "open" when the request could not be established and "read"
// when an established stream broke.
type ChannelError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *ChannelError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("event channel %s %s: status %d", e.Op, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("event channel %s %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("event channel %s %s failed", e.Op, e.URL)
	}
}

// Unwrap implements errors.Unwrap
func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ChannelError) Is(target error) bool {
	if target == ErrChannelClosed {
		return true
	}
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return target == ErrUnauthorized
	}
	if e.StatusCode >= 500 {
		return target == ErrGatewayUnavailable
	}
	return false
}

// Rejected reports whether the gateway refused the channel with a client
// error status. Retrying such a request does not help.
func (e *ChannelError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ConfigError represents a configuration error. It is also used for
// registry construction errors, which abort the process.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ConsistencyError reports that the registry and a live listener disagree
// on a listener contract. It is never recoverable.
type ConsistencyError struct {
	Interface string
	Method    string
	Message   string
}

// Error implements the error interface
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("listener contract mismatch for %s.%s: %s", e.Interface, e.Method, e.Message)
}

// NewConsistencyError creates a new ConsistencyError
func NewConsistencyError(iface, method, message string) *ConsistencyError {
	return &ConsistencyError{Interface: iface, Method: method, Message: message}
}

// SubscriptionError represents a subscription the gateway did not accept
type SubscriptionError struct {
	Status  string
	Message string
}

// Error implements the error interface
func (e *SubscriptionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("subscription %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("subscription %s", e.Status)
}

// Is implements errors.Is support
func (e *SubscriptionError) Is(target error) bool {
	return target == ErrSubscriptionRejected
}

// ParseError represents an error when parsing wire data
type ParseError struct {
	Format  string
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s parse error in %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, source string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during a resource operation
type ResourceError struct {
	Operation string // "open", "close", "create", "delete"
	Resource  string // "session", "subscription", "channel"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Message:   message,
	}
}

// Helper functions for error checking

// IsUnrecognizedEvent checks if an error is an unknown event error
func IsUnrecognizedEvent(err error) bool {
	return errors.Is(err, ErrUnrecognizedEvent)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnauthorized checks if an error reports rejected credentials
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsGatewayUnavailable checks if an error indicates a gateway server error
func IsGatewayUnavailable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(operation string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
