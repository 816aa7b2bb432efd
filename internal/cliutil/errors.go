// Package cliutil holds the closed set of error kinds the CLI maps to exit
// codes, plus small helpers shared by command handlers (confirmation
// prompts, token redaction).
package cliutil

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDryRunPrinted signals that --dry-run rendered the request instead of
// executing it. It is not a failure: callers must exit 0 without printing
// anything further.
var ErrDryRunPrinted = errors.New("dry-run: request printed")

// InvalidArgumentError reports bad user input. Deterministic, never retried.
type InvalidArgumentError struct {
	Msg string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Msg
}

// InvalidArgumentf builds an InvalidArgumentError from a format string.
func InvalidArgumentf(format string, args ...any) error {
	return &InvalidArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// MissingConfigError reports a required configuration value (typically a
// credential) that is absent. This is client misconfiguration, not a
// transient condition, so it is never retried.
type MissingConfigError struct {
	Field string
}

func (e *MissingConfigError) Error() string {
	return "missing required configuration: " + e.Field
}

// HTTPStatusError carries a non-success HTTP response.
type HTTPStatusError struct {
	Status  int
	Message string
	Body    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// RateLimitedError means the retry budget was exhausted against repeated 429
// responses. Kept distinct from HTTPStatusError so it maps to its own exit
// code.
type RateLimitedError struct{}

func (e *RateLimitedError) Error() string {
	return "rate limited (429) after retries exhausted"
}

// SessionRequiredError means the operation needs session authentication and
// the stored session is missing or expired.
type SessionRequiredError struct{}

func (e *SessionRequiredError) Error() string {
	return "session authentication required: run 'ztnet auth login'"
}

// DecodeError means the response body was not valid JSON where JSON was
// expected. It is the signal that the request may have hit the wrong API
// base.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error to the process exit code.
//
//	0  dry-run printed (not a failure)
//	2  invalid argument / missing configuration
//	3  authentication (401/403, session required)
//	4  not found
//	5  conflict / unprocessable
//	6  rate limited
//	1  everything else
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrDryRunPrinted) {
		return 0
	}

	var invalidArg *InvalidArgumentError
	var missingCfg *MissingConfigError
	if errors.As(err, &invalidArg) || errors.As(err, &missingCfg) {
		return 2
	}

	var sessionRequired *SessionRequiredError
	if errors.As(err, &sessionRequired) {
		return 3
	}

	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		return 6
	}

	var httpStatus *HTTPStatusError
	if errors.As(err, &httpStatus) {
		switch httpStatus.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return 3
		case http.StatusNotFound:
			return 4
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return 5
		case http.StatusTooManyRequests:
			return 6
		default:
			return 1
		}
	}

	return 1
}
