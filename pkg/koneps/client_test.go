package koneps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := New(Config{
		BaseURL:    baseURL,
		ServiceKey: "test-key",
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  Config{BaseURL: "http://example.com", ServiceKey: "key"},
			wantErr: false,
		},
		{
			name:    "missing base URL",
			config:  Config{ServiceKey: "key"},
			wantErr: true,
		},
		{
			name:    "missing service key",
			config:  Config{BaseURL: "http://example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetchPage_Success(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":{"header":{"resultCode":"00","resultMsg":"OK"},"body":{"totalCount":2,"items":[{"bidNtceNo":"1"},{"bidNtceNo":"2"}]}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	params := url.Values{}
	params.Set("bidNtceBgnDt", "202501010000")

	res, err := client.FetchPage(context.Background(), "/getDataSetOpnStdBidPblancInfo", params, 3)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if res.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", res.TotalCount)
	}
	if len(res.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(res.Items))
	}
	if got := gotQuery.Get("serviceKey"); got != "test-key" {
		t.Errorf("serviceKey = %q, want %q", got, "test-key")
	}
	if got := gotQuery.Get("type"); got != "json" {
		t.Errorf("type = %q, want %q", got, "json")
	}
	if got := gotQuery.Get("pageNo"); got != "3" {
		t.Errorf("pageNo = %q, want %q", got, "3")
	}
	if got := gotQuery.Get("bidNtceBgnDt"); got != "202501010000" {
		t.Errorf("bidNtceBgnDt = %q, want %q", got, "202501010000")
	}
	if client.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", client.Calls())
	}
}

func TestFetchPage_DoesNotMutateCallerParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"header":{"resultCode":"00","resultMsg":"OK"},"body":{"totalCount":0,"items":""}}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	params := url.Values{}
	params.Set("numOfRows", "100")

	if _, err := client.FetchPage(context.Background(), "/x", params, 1); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if _, ok := params["pageNo"]; ok {
		t.Error("caller params gained a pageNo key")
	}
	if _, ok := params["serviceKey"]; ok {
		t.Error("caller params gained a serviceKey key")
	}
}

func TestFetchPage_InvalidPageNumber(t *testing.T) {
	client := newTestClient(t, "http://example.com")

	if _, err := client.FetchPage(context.Background(), "/x", nil, 0); err == nil {
		t.Error("FetchPage(page 0) error = nil, want error")
	}
}

func TestFetchPage_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind ErrorKind
	}{
		{
			name: "http 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantKind: KindHTTP,
		},
		{
			name: "upstream rejection",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"response":{"header":{"resultCode":"30","resultMsg":"SERVICE KEY IS NOT REGISTERED"},"body":{"totalCount":0,"items":""}}}`))
			},
			wantKind: KindUpstream,
		},
		{
			name: "xml body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<?xml version="1.0"?><OpenAPI_ServiceResponse/>`))
			},
			wantKind: KindParse,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"response":`))
			},
			wantKind: KindParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newTestClient(t, server.URL)

			_, err := client.FetchPage(context.Background(), "/x", nil, 1)
			if err == nil {
				t.Fatal("FetchPage() error = nil, want error")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("errors.As(*APIError) = false, err = %v", err)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", apiErr.Kind, tt.wantKind)
			}
		})
	}
}

func TestFetchPage_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := New(Config{
		BaseURL:    server.URL,
		ServiceKey: "test-key",
		Timeout:    20 * time.Millisecond,
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.FetchPage(context.Background(), "/x", nil, 1)
	if err == nil {
		t.Fatal("FetchPage() error = nil, want timeout")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("errors.As(*APIError) = false, err = %v", err)
	}
	if apiErr.Kind != KindTimeout {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, KindTimeout)
	}
	if !apiErr.Retryable() {
		t.Error("timeout should be retryable")
	}
}

// timeoutError satisfies net.Error's Timeout so url.Error reports it.
type timeoutError struct{}

func (timeoutError) Error() string   { return "deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// timeoutTransport fails every request with a timeout before it leaves
// the process.
type timeoutTransport struct{}

func (timeoutTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, timeoutError{}
}

func TestSetHTTPClient_InjectedTransport(t *testing.T) {
	client := newTestClient(t, "http://example.com")
	client.SetHTTPClient(&http.Client{Transport: timeoutTransport{}})

	_, err := client.FetchPage(context.Background(), "/x", nil, 1)
	if err == nil {
		t.Fatal("FetchPage() error = nil, want timeout")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("errors.As(*APIError) = false, err = %v", err)
	}
	if apiErr.Kind != KindTimeout {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, KindTimeout)
	}
	if client.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", client.Calls())
	}
}

func TestFetchPage_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchPage(context.Background(), "/x", nil, 1)
	if err == nil {
		t.Fatal("FetchPage() error = nil, want connection error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("errors.As(*APIError) = false, err = %v", err)
	}
	if apiErr.Kind != KindConnection {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, KindConnection)
	}
}

func TestClient_CallsCountsEveryAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	cfg := RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}
	_, err := CallWithRetry(context.Background(), zerolog.Nop(), cfg, func() (*PageResult, error) {
		return client.FetchPage(context.Background(), "/x", nil, 1)
	})
	if err == nil {
		t.Fatal("CallWithRetry() error = nil, want exhaustion")
	}
	if client.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", client.Calls())
	}
}
