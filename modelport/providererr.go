package modelport

import (
	"errors"
	"fmt"
)

// ProviderErrorKind classifies a model-transport failure into a small set
// of categories suitable for retry and user-facing decisions.
type ProviderErrorKind string

const (
	ProviderErrorAuth           ProviderErrorKind = "auth"
	ProviderErrorInvalidRequest ProviderErrorKind = "invalid_request"
	ProviderErrorRateLimited    ProviderErrorKind = "rate_limited"
	ProviderErrorUnavailable    ProviderErrorKind = "unavailable"
	ProviderErrorUnknown        ProviderErrorKind = "unknown"
)

// ProviderError normalizes a failure from any backing model provider so the
// engine can surface stable, structured information regardless of which
// provider adapter produced it. Unwrap returns Cause; a ProviderError does
// not itself match reacterr.ErrModel.
type ProviderError struct {
	Provider   string
	Operation  string
	HTTPStatus int
	Kind       ProviderErrorKind
	Code       string
	Message    string
	RequestID  string
	Retryable  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	op := e.Operation
	if op == "" {
		op = "request"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		msg = "provider error"
	}
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s %s %d (%s): %s", e.Provider, e.Kind, e.HTTPStatus, op, msg)
	}
	return fmt.Sprintf("%s %s (%s): %s", e.Provider, e.Kind, op, msg)
}

// Unwrap exposes the underlying transport error, if any, so errors.Is/As
// keep working across the adapter boundary.
func (e *ProviderError) Unwrap() error { return e.Cause }

// AsProviderError extracts the first ProviderError in err's chain, if any.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
