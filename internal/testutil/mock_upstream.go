// Package testutil provides a configurable mock of the procurement
// open-data API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockUpstream serves the standard response envelope over httptest,
// paginating a configured dataset the way the real API does, including
// the single-object items quirk.
type MockUpstream struct {
	server *httptest.Server

	mu         sync.Mutex
	datasets   map[string][]map[string]any
	failPages  map[string]map[int]int // endpoint -> page -> HTTP status
	resultCode map[string]string      // endpoint -> non-"00" result code
	rawBody    map[string]string      // endpoint -> verbatim response body

	requestCount int
}

// NewMockUpstream creates and starts the mock server.
func NewMockUpstream() *MockUpstream {
	m := &MockUpstream{
		datasets:   make(map[string][]map[string]any),
		failPages:  make(map[string]map[int]int),
		resultCode: make(map[string]string),
		rawBody:    make(map[string]string),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server base URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts the server down.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// RequestCount returns how many requests the server has received.
func (m *MockUpstream) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// SetDataset configures the full item list served for an endpoint. The
// handler slices it into pages from the request's numOfRows and pageNo.
func (m *MockUpstream) SetDataset(endpoint string, items []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[endpoint] = items
}

// FailPage makes one page of an endpoint answer with the given HTTP status.
func (m *MockUpstream) FailPage(endpoint string, page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPages[endpoint] == nil {
		m.failPages[endpoint] = make(map[int]int)
	}
	m.failPages[endpoint][page] = status
}

// SetResultCode makes an endpoint answer 200 with a non-success envelope.
func (m *MockUpstream) SetResultCode(endpoint, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resultCode[endpoint] = code
}

// SetRawBody makes an endpoint answer 200 with a verbatim body, for
// malformed-response scenarios.
func (m *MockUpstream) SetRawBody(endpoint, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawBody[endpoint] = body
}

// NoticeItem builds a minimal upstream bid-notice record for tests.
func NoticeItem(noticeNo, ord, title string) map[string]any {
	return map[string]any{
		"bidNtceNo":   noticeNo,
		"bidNtceOrd":  ord,
		"bidNtceNm":   title,
		"dminsttNm":   "Test Agency",
		"rgstDt":      "202501011230",
		"presmptPrce": "1000000",
	}
}

func (m *MockUpstream) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestCount++
	endpoint := r.URL.Path
	items := m.datasets[endpoint]
	failures := m.failPages[endpoint]
	code := m.resultCode[endpoint]
	raw := m.rawBody[endpoint]
	m.mu.Unlock()

	pageNo, _ := strconv.Atoi(r.URL.Query().Get("pageNo"))
	if pageNo < 1 {
		pageNo = 1
	}
	numOfRows, _ := strconv.Atoi(r.URL.Query().Get("numOfRows"))
	if numOfRows < 1 {
		numOfRows = 100
	}

	if status, ok := failures[pageNo]; ok {
		w.WriteHeader(status)
		return
	}
	if raw != "" {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, raw)
		return
	}
	if code != "" {
		writeEnvelope(w, code, "SERVICE ERROR", 0, nil)
		return
	}

	lo := (pageNo - 1) * numOfRows
	hi := lo + numOfRows
	if lo > len(items) {
		lo = len(items)
	}
	if hi > len(items) {
		hi = len(items)
	}

	writeEnvelope(w, "00", "NORMAL SERVICE", len(items), items[lo:hi])
}

// writeEnvelope emits the standard wrapper. A one-item page is emitted as
// a bare object, mirroring the real API.
func writeEnvelope(w http.ResponseWriter, code, msg string, totalCount int, items []map[string]any) {
	var itemsField any
	switch len(items) {
	case 0:
		itemsField = ""
	case 1:
		itemsField = items[0]
	default:
		itemsField = items
	}

	body := map[string]any{
		"response": map[string]any{
			"header": map[string]any{
				"resultCode": code,
				"resultMsg":  msg,
			},
			"body": map[string]any{
				"totalCount": totalCount,
				"items":      itemsField,
				"numOfRows":  len(items),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}
