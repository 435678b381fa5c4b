// Package koneps provides the HTTP client for the Korean public-procurement
// open-data API (KONEPS), with response classification and retry support.
package koneps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream API calls.
var (
	konepsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "koneps_requests_total",
		Help: "Total upstream API requests by endpoint and outcome",
	}, []string{"endpoint", "status"})

	konepsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "koneps_request_duration_seconds",
		Help:    "Upstream API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	konepsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "koneps_errors_total",
		Help: "Total upstream API errors by kind",
	}, []string{"kind"})
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 30 * time.Second

// Config holds the client configuration.
type Config struct {
	// BaseURL of the public-data service, without a trailing slash.
	BaseURL string

	// ServiceKey is the credential issued by the open-data portal.
	// The upstream is case-sensitive about the parameter name.
	ServiceKey string

	// Timeout per HTTP request (default 30s).
	Timeout time.Duration

	// Logger for request-level diagnostics.
	Logger zerolog.Logger
}

// Client issues single-page GET requests against the procurement API.
// A Client is scoped to one sync invocation so that its call counter
// accounts for exactly that invocation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
	logger     zerolog.Logger
	calls      atomic.Int64
}

// PageResult is one successfully fetched and unwrapped page.
type PageResult struct {
	// TotalCount is the upstream's total row count for the whole query.
	TotalCount int

	// Items holds the raw records of this page, single-object pages
	// already normalized to a one-element slice.
	Items []json.RawMessage
}

// New creates a client for one sync invocation.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("service key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		logger:     cfg.Logger.With().Str("component", "koneps-client").Logger(),
	}, nil
}

// Calls returns how many HTTP attempts this client has made, retried
// attempts included.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// FetchPage performs one GET for the given page of a date-bounded query
// and classifies the response. The caller's params are never mutated.
func (c *Client) FetchPage(ctx context.Context, endpoint string, params url.Values, pageNo int) (*PageResult, error) {
	if pageNo < 1 {
		return nil, fmt.Errorf("page number must be >= 1, got %d", pageNo)
	}

	query := cloneValues(params)
	query.Set("serviceKey", c.serviceKey)
	query.Set("type", "json")
	query.Set("pageNo", strconv.Itoa(pageNo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.calls.Add(1)

	resp, err := c.httpClient.Do(req)
	konepsRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		apiErr := classifyTransportError(err)
		konepsErrorsTotal.WithLabelValues(string(apiErr.Kind)).Inc()
		konepsRequestsTotal.WithLabelValues(endpoint, string(apiErr.Kind)).Inc()
		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("page", pageNo).
			Str("kind", string(apiErr.Kind)).
			Msg("Upstream request failed")
		return nil, apiErr
	}
	defer resp.Body.Close()

	konepsRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		konepsErrorsTotal.WithLabelValues(string(KindHTTP)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("page", pageNo).
			Int("status", resp.StatusCode).
			Msg("Upstream returned non-200 status")
		return nil, &APIError{Kind: KindHTTP, Status: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		konepsErrorsTotal.WithLabelValues(string(KindConnection)).Inc()
		return nil, &APIError{Kind: KindConnection, Message: "read response body", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		konepsErrorsTotal.WithLabelValues(string(KindParse)).Inc()
		msg := "response is not valid JSON"
		if bytes.HasPrefix(bytes.TrimSpace(body), []byte("<?xml")) {
			msg = "response is XML, not JSON"
		}
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("page", pageNo).
			Msg("Upstream response parse failed")
		return nil, &APIError{Kind: KindParse, Message: msg, Err: err}
	}

	if code := env.Response.Header.ResultCode; code != resultSuccess {
		konepsErrorsTotal.WithLabelValues(string(KindUpstream)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("page", pageNo).
			Str("result_code", code).
			Str("result_msg", env.Response.Header.ResultMsg).
			Msg("Upstream rejected the request")
		return nil, &APIError{Kind: KindUpstream, Code: code, Message: env.Response.Header.ResultMsg}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("page", pageNo).
		Int("total_count", env.Response.Body.TotalCount).
		Int("items", len(env.Response.Body.Items)).
		Msg("Page fetched")

	return &PageResult{
		TotalCount: env.Response.Body.TotalCount,
		Items:      env.Response.Body.Items,
	}, nil
}

// classifyTransportError maps request-level errors to timeout or connection.
func classifyTransportError(err error) *APIError {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &APIError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &APIError{Kind: KindConnection, Message: "request failed", Err: err}
}

func cloneValues(params url.Values) url.Values {
	out := make(url.Values, len(params)+3)
	for k, vs := range params {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
