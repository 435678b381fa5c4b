package koneps

import (
	"errors"
	"testing"
)

func TestAPIError_Retryable(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected bool
	}{
		{
			name:     "timeout is retryable",
			err:      &APIError{Kind: KindTimeout},
			expected: true,
		},
		{
			name:     "connection failure is retryable",
			err:      &APIError{Kind: KindConnection},
			expected: true,
		},
		{
			name:     "500 response is retryable",
			err:      &APIError{Kind: KindHTTP, Status: 500},
			expected: true,
		},
		{
			name:     "503 response is retryable",
			err:      &APIError{Kind: KindHTTP, Status: 503},
			expected: true,
		},
		{
			name:     "404 response is not retryable",
			err:      &APIError{Kind: KindHTTP, Status: 404},
			expected: false,
		},
		{
			name:     "upstream rejection is not retryable",
			err:      &APIError{Kind: KindUpstream, Code: "30"},
			expected: false,
		},
		{
			name:     "parse failure is not retryable",
			err:      &APIError{Kind: KindParse},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Retryable()
			if result != tt.expected {
				t.Errorf("Retryable() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "http error includes status",
			err:      &APIError{Kind: KindHTTP, Status: 502, Message: "502 Bad Gateway"},
			expected: "koneps http error (status 502): 502 Bad Gateway",
		},
		{
			name:     "upstream error includes result code",
			err:      &APIError{Kind: KindUpstream, Code: "30", Message: "SERVICE KEY IS NOT REGISTERED"},
			expected: "koneps upstream error (code 30): SERVICE KEY IS NOT REGISTERED",
		},
		{
			name:     "timeout error with wrapped cause",
			err:      &APIError{Kind: KindTimeout, Message: "request timed out", Err: errors.New("context deadline exceeded")},
			expected: "koneps timeout error: request timed out: context deadline exceeded",
		},
		{
			name:     "connection error without cause",
			err:      &APIError{Kind: KindConnection, Message: "request failed"},
			expected: "koneps connection error: request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &APIError{Kind: KindConnection, Message: "request failed", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}

	var apiErr *APIError
	if !errors.As(error(err), &apiErr) {
		t.Error("errors.As should match *APIError")
	}
}
