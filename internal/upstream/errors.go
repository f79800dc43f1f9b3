package upstream

import (
	"errors"
	"fmt"
)

// ErrUpstream marks any failure reported by, or while talking to, an external
// provider.
var ErrUpstream = errors.New("upstream request failed")

// Error carries the provider's own failure message.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap lets errors.Is match both ErrUpstream and the transport cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstream, e.Err}
	}
	return []error{ErrUpstream}
}

// New returns an upstream error for provider with the given message.
func New(provider string, status int, message string) *Error {
	return &Error{Provider: provider, StatusCode: status, Message: message}
}

// Wrap converts a transport failure into an upstream error.
func Wrap(provider string, err error) *Error {
	return &Error{Provider: provider, Message: err.Error(), Err: err}
}

// MessageOf returns the provider message carried by err, or fallback when err
// is not an upstream error or has no message.
func MessageOf(err error, fallback string) string {
	var ue *Error
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}
