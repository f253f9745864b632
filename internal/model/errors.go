package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a tool failure for the caller.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "ConfigurationError"
	KindNotFound      ErrorKind = "NotFoundError"
	KindValidation    ErrorKind = "ValidationError"
	KindUpstream      ErrorKind = "UpstreamError"
)

// ProviderError is returned by the remote API client.
type ProviderError struct {
	Code       string
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ToolError is the single user-facing failure type. Message is shown to the
// calling agent verbatim.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func Configurationf(format string, args ...interface{}) error {
	return &ToolError{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &ToolError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) error {
	return &ToolError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a remote API failure, appending the upstream message.
func Upstream(message string, cause error) error {
	msg := message
	var pe *ProviderError
	if errors.As(cause, &pe) && pe.Message != "" {
		msg = message + ": " + pe.Message
	} else if cause != nil {
		msg = message + ": " + cause.Error()
	}
	return &ToolError{Kind: KindUpstream, Message: msg, Cause: cause}
}

// KindOf reports the kind of err, or "" when err is not a ToolError.
func KindOf(err error) ErrorKind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsRetryable reports whether the underlying provider marked err retryable.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
