package koneps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.Delay != 2*time.Second {
		t.Errorf("Delay = %v, want 2s", config.Delay)
	}
}

func TestCallWithRetry_Success(t *testing.T) {
	callCount := 0
	fn := func() (*PageResult, error) {
		callCount++
		return &PageResult{TotalCount: 7}, nil
	}

	res, err := CallWithRetry(context.Background(), zerolog.Nop(), testRetryConfig(), fn)
	if err != nil {
		t.Fatalf("CallWithRetry() error = %v, want nil", err)
	}
	if res.TotalCount != 7 {
		t.Errorf("TotalCount = %d, want 7", res.TotalCount)
	}
	if callCount != 1 {
		t.Errorf("callCount = %d, want 1", callCount)
	}
}

func TestCallWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	callCount := 0
	fn := func() (*PageResult, error) {
		callCount++
		if callCount < 3 {
			return nil, &APIError{Kind: KindTimeout, Message: "request timed out"}
		}
		return &PageResult{TotalCount: 1}, nil
	}

	res, err := CallWithRetry(context.Background(), zerolog.Nop(), testRetryConfig(), fn)
	if err != nil {
		t.Fatalf("CallWithRetry() error = %v, want nil", err)
	}
	if res == nil {
		t.Fatal("CallWithRetry() result is nil")
	}
	if callCount != 3 {
		t.Errorf("callCount = %d, want 3", callCount)
	}
}

func TestCallWithRetry_ExhaustsAttempts(t *testing.T) {
	callCount := 0
	fn := func() (*PageResult, error) {
		callCount++
		return nil, &APIError{Kind: KindConnection, Message: "request failed"}
	}

	_, err := CallWithRetry(context.Background(), zerolog.Nop(), testRetryConfig(), fn)
	if err == nil {
		t.Fatal("CallWithRetry() error = nil, want exhaustion error")
	}
	if callCount != 3 {
		t.Errorf("callCount = %d, want 3", callCount)
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("errors.Is(err, ErrRetryExhausted) = false, err = %v", err)
	}

	// The last failure must remain reachable through the wrapper.
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("errors.As(*APIError) = false, err = %v", err)
	}
	if apiErr.Kind != KindConnection {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, KindConnection)
	}
}

func TestCallWithRetry_NonRetryableFailsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
	}{
		{name: "upstream rejection", err: &APIError{Kind: KindUpstream, Code: "30"}},
		{name: "client status", err: &APIError{Kind: KindHTTP, Status: 404}},
		{name: "parse failure", err: &APIError{Kind: KindParse}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callCount := 0
			fn := func() (*PageResult, error) {
				callCount++
				return nil, tt.err
			}

			_, err := CallWithRetry(context.Background(), zerolog.Nop(), testRetryConfig(), fn)
			if err == nil {
				t.Fatal("CallWithRetry() error = nil, want error")
			}
			if callCount != 1 {
				t.Errorf("callCount = %d, want 1", callCount)
			}
			if errors.Is(err, ErrRetryExhausted) {
				t.Error("non-retryable failure should not be wrapped as exhaustion")
			}
		})
	}
}

func TestCallWithRetry_PlainErrorNotRetried(t *testing.T) {
	callCount := 0
	fn := func() (*PageResult, error) {
		callCount++
		return nil, errors.New("not an API error")
	}

	_, err := CallWithRetry(context.Background(), zerolog.Nop(), testRetryConfig(), fn)
	if err == nil {
		t.Fatal("CallWithRetry() error = nil, want error")
	}
	if callCount != 1 {
		t.Errorf("callCount = %d, want 1", callCount)
	}
}

func TestCallWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	fn := func() (*PageResult, error) {
		callCount++
		cancel()
		return nil, &APIError{Kind: KindTimeout, Message: "request timed out"}
	}

	cfg := RetryConfig{MaxAttempts: 3, Delay: time.Minute}
	_, err := CallWithRetry(ctx, zerolog.Nop(), cfg, fn)
	if err == nil {
		t.Fatal("CallWithRetry() error = nil, want cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("errors.Is(err, context.Canceled) = false, err = %v", err)
	}
	if callCount != 1 {
		t.Errorf("callCount = %d, want 1", callCount)
	}
}

func testRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}
}
