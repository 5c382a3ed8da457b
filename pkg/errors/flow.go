package errors

import (
	"fmt"
)

/*
FlowError classifies every failure the automation engine can surface. The
Code groups errors into matchable categories so callers can branch with
errors.Is against the sentinel values below without caring about the
formatted message.
*/
type FlowError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	cause   error
}

func (e *FlowError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

/*
Is matches any FlowError carrying the same code, so copies produced by
WithMessagef and Wrap still satisfy errors.Is against their sentinel.
*/
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	return ok && t.Code == e.Code
}

func (e *FlowError) Unwrap() error {
	return e.cause
}

// Provider errors (1000-1099) cover the reasoning-provider gateway, adapter
// errors (2000-2099) cover the agent adapters.
var (
	ErrProviderUnavailable = &FlowError{Code: 1000, Message: "reasoning provider unavailable"}
	ErrProviderTimeout     = &FlowError{Code: 1001, Message: "reasoning provider timed out"}
	ErrMalformedPlan       = &FlowError{Code: 1002, Message: "reasoning provider returned a malformed plan"}

	ErrAgentNotConfigured = &FlowError{Code: 2000, Message: "agent not configured"}
	ErrActionUnparseable  = &FlowError{Code: 2001, Message: "action unparseable"}
	ErrAdapterCallFailed  = &FlowError{Code: 2002, Message: "adapter call failed"}
)

// WithMessagef creates a *copy* of a FlowError with a formatted message.
// It does not modify the original error variable.
func (e *FlowError) WithMessagef(format string, args ...any) *FlowError {
	newErr := *e
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

// Wrap creates a *copy* of a FlowError carrying cause as its underlying
// error, reachable through errors.Unwrap.
func (e *FlowError) Wrap(cause error) *FlowError {
	newErr := *e
	newErr.cause = cause
	return &newErr
}

// WithData creates a *copy* of a FlowError carrying the offending payload,
// typically the raw provider output that failed to decode.
func (e *FlowError) WithData(data any) *FlowError {
	newErr := *e
	newErr.Data = data
	return &newErr
}
