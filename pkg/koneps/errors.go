package koneps

import (
	"errors"
	"fmt"
)

// ErrRetryExhausted is returned when all retry attempts are exhausted.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// ErrorKind classifies a failed upstream call.
type ErrorKind string

const (
	// KindTimeout means the request exceeded its deadline.
	KindTimeout ErrorKind = "timeout"

	// KindConnection means the request never reached the upstream.
	KindConnection ErrorKind = "connection"

	// KindHTTP means the upstream answered with a non-200 status.
	KindHTTP ErrorKind = "http"

	// KindUpstream means the upstream answered 200 but rejected the call
	// at the API level (result code other than "00").
	KindUpstream ErrorKind = "upstream"

	// KindParse means the 200 response body was not valid JSON.
	KindParse ErrorKind = "parse"
)

// APIError is a classified failure from the procurement API.
type APIError struct {
	Kind    ErrorKind
	Status  int    // HTTP status, set for KindHTTP
	Code    string // upstream result code, set for KindUpstream
	Message string
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("koneps %s error (status %d): %s", e.Kind, e.Status, e.Message)
	case KindUpstream:
		return fmt.Sprintf("koneps %s error (code %s): %s", e.Kind, e.Code, e.Message)
	default:
		if e.Err != nil {
			return fmt.Sprintf("koneps %s error: %s: %v", e.Kind, e.Message, e.Err)
		}
		return fmt.Sprintf("koneps %s error: %s", e.Kind, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient. Timeouts, connection
// failures and 5xx responses are retryable; API-level rejections and 4xx
// responses are not.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection:
		return true
	case KindHTTP:
		return e.Status >= 500
	default:
		return false
	}
}
