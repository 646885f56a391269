// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound = errors.New("not found")

	// Backend errors.
	ErrEmptyResponse = errors.New("empty response from backend")

	// Controller errors.
	ErrNotReady        = errors.New("no data source loaded")
	ErrBusy            = errors.New("a request is already in progress")
	ErrInvalidPasscode = errors.New("incorrect passcode")
	ErrAdminRequired   = errors.New("admin access required")
	ErrNoQuery         = errors.New("no previous query to retry")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ValidationError reports local input that failed a format rule.
// It never leaves the form or command that produced it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// BackendTransportError covers network failures, timeouts and non-2xx
// statuses from an LLM backend or the proxy in front of it.
type BackendTransportError struct {
	Err        error
	Provider   string
	Message    string
	StatusCode int
	Timeout    bool
}

func (e *BackendTransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s request timed out: %s", e.Provider, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
	}
}

func (e *BackendTransportError) Unwrap() error {
	return e.Err
}

// BackendProtocolError is returned when a backend answered with success but
// the body was empty, not JSON, or did not match the declared schema.
type BackendProtocolError struct {
	Err      error
	Provider string
	Message  string
}

func (e *BackendProtocolError) Error() string {
	return fmt.Sprintf("%s returned an invalid response: %s", e.Provider, e.Message)
}

func (e *BackendProtocolError) Unwrap() error {
	return e.Err
}

// StoreError wraps a persistence failure. Callers log and swallow it.
type StoreError struct {
	Err error
	Op  string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var transportErr *BackendTransportError
	if errors.As(err, &transportErr) {
		// Client errors other than throttling will fail the same way again.
		if transportErr.StatusCode >= 400 && transportErr.StatusCode < 500 {
			return transportErr.StatusCode == 429 || transportErr.StatusCode == 408
		}
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}

var noisyPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^GoogleGenAIError:\s*`),
	regexp.MustCompile(`(?i)^genai:\s*`),
	regexp.MustCompile(`(?i)^Error:\s*`),
}

// DefaultErrorMessage is shown when an error carries no usable text.
const DefaultErrorMessage = "An unexpected error occurred. Please check your data source and try again."

// UserMessage derives the banner text for a failed search.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	var userErr *UserError
	if errors.As(err, &userErr) {
		msg = userErr.UserMessage
	}

	for _, re := range noisyPrefixes {
		msg = re.ReplaceAllString(msg, "")
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return DefaultErrorMessage
	}
	return msg
}
