// Package errors provides general-purpose error wrapping helpers. No
// other ralph package imports it. It is deliberately small: a single concrete type
// (OperationError) carrying an operation, an optional component and
// resource, and an optional cause, plus a set of constructors for the
// recurring shapes (database, network, validation, configuration,
// timeout, auth, parse).
package errors

import (
	"fmt"
	"strings"
)

// OperationError describes a failed operation with optional context.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := "failed to " + e.Operation
	if e.Component != "" {
		msg += ", component: " + e.Component
	}
	if e.Resource != "" {
		msg += ", resource: " + e.Resource
	}
	if e.Cause != nil {
		msg += ", cause: " + e.Cause.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo returns a plain "failed to <action>" error wrapping cause
// with %w; it does not build an OperationError.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return fmt.Errorf("failed to %s", action)
	}
	return fmt.Errorf("failed to %s: %w", action, cause)
}

// FailedToWithDetails builds an OperationError with component and
// resource context.
func FailedToWithDetails(operation, component, resource string, cause error) error {
	return &OperationError{
		Operation: operation,
		Component: component,
		Resource:  resource,
		Cause:     cause,
	}
}

// Wrapf wraps err with an additional formatted message, returning nil
// when err is nil so call sites can wrap unconditionally.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", err)
}

// DatabaseError wraps a failed database operation.
func DatabaseError(operation string, cause error) error {
	return FailedToWithDetails(operation, "database", "", cause)
}

// NetworkError wraps a failed network operation against endpoint.
func NetworkError(operation, endpoint string, cause error) error {
	return FailedToWithDetails(operation, "network", endpoint, cause)
}

// ValidationError reports a field-level validation failure.
func ValidationError(field, reason string) error {
	return fmt.Errorf("validation failed for field %s: %s", field, reason)
}

// ConfigurationError reports an invalid configuration setting.
func ConfigurationError(setting, reason string) error {
	return fmt.Errorf("configuration error for setting %s: %s", setting, reason)
}

// TimeoutError reports an operation that exceeded its deadline.
func TimeoutError(operation, duration string) error {
	return fmt.Errorf("timeout while %s after %s", operation, duration)
}

// AuthenticationError reports a failed authentication attempt.
func AuthenticationError(reason string) error {
	return fmt.Errorf("authentication failed: %s", reason)
}

// AuthorizationError reports insufficient permissions for an action.
func AuthorizationError(action, resource string) error {
	return fmt.Errorf("authorization failed: insufficient permissions to %s %s", action, resource)
}

// ParseError reports a failed parse of target as format.
func ParseError(target, format string, cause error) error {
	return FailedTo(fmt.Sprintf("parse %s as %s", target, format), cause)
}

// IsRetryable reports whether err looks like a transient failure worth
// retrying. It is a heuristic over the error string, not a type switch,
// since many causes originate from third-party clients that don't
// expose a retryable marker.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"timeout", "connection refused", "connection reset", "temporarily unavailable", "EOF", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
