// Package errors defines ralph's error taxonomy by kind rather than by
// concrete type name (spec.md §7): each kind carries a message and an
// optional cause error and reports its propagation class through
// Kind(), so the Scheduler can branch without type assertions leaking
// into every caller.
package errors

import "fmt"

// Kind is one of the seven error kinds from spec.md §7.
type Kind string

const (
	KindInput               Kind = "input"
	KindTransientExternal    Kind = "transient_external"
	KindProviderBudget       Kind = "provider_budget"
	KindVerificationFailure Kind = "verification_failure"
	KindValidationReject    Kind = "validation_reject"
	KindStoreWrite           Kind = "store_write"
	KindCancellation         Kind = "cancellation"
)

// RalphError is implemented by every typed error in this package.
type RalphError interface {
	error
	Kind() Kind
	Unwrap() error
}

type typedError struct {
	kind    Kind
	message string
	cause   error
}

func (e *typedError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *typedError) Kind() Kind   { return e.kind }
func (e *typedError) Unwrap() error { return e.cause }

// Input reports malformed input or missing configuration (exit code 2).
func Input(message string, cause error) RalphError {
	return &typedError{kind: KindInput, message: message, cause: cause}
}

// TransientExternal reports a recoverable network/provider failure;
// callers demote the hop to NO_PROGRESS rather than failing the run.
func TransientExternal(message string, cause error) RalphError {
	return &typedError{kind: KindTransientExternal, message: message, cause: cause}
}

// ProviderBudget reports LLM quota exhaustion or a cost-cap hit (exit
// code 3, state COST_CAP).
func ProviderBudget(message string, cause error) RalphError {
	return &typedError{kind: KindProviderBudget, message: message, cause: cause}
}

// VerificationFailure reports a URL/content verification failure;
// never fatal, degrades evidence credibility only.
func VerificationFailure(message string, cause error) RalphError {
	return &typedError{kind: KindVerificationFailure, message: message, cause: cause}
}

// ValidationReject reports a candidate failing one of the four
// validation passes; logged, never surfaced as an error.
func ValidationReject(message string) RalphError {
	return &typedError{kind: KindValidationReject, message: message}
}

// StoreWrite reports a signal store write failure after retries
// exhausted (exit code 5, run marked FAILED).
func StoreWrite(message string, cause error) RalphError {
	return &typedError{kind: KindStoreWrite, message: message, cause: cause}
}

// Cancellation reports a cooperative cancellation observed at a
// suspension point.
func Cancellation() RalphError {
	return &typedError{kind: KindCancellation, message: "run cancelled"}
}

// ExitCode maps a RalphError's kind to the CLI exit codes in spec.md §6.
func ExitCode(err error) int {
	re, ok := err.(RalphError)
	if !ok {
		return 1
	}
	switch re.Kind() {
	case KindInput:
		return 2
	case KindProviderBudget:
		return 3
	case KindStoreWrite:
		return 5
	default:
		return 1
	}
}
