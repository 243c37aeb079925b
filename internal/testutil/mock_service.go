// Package testutil provides a configurable mock of the identifier-mapping
// service for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// ScriptedResponse is one canned response served before the mock falls back
// to its mapping table.
type ScriptedResponse struct {
	StatusCode int
	Body       string
}

// MockService is a configurable mock identifier-mapping server. Its default
// handler answers tab-format queries from an in-memory mapping table,
// echoing rows for every known identifier in query order.
type MockService struct {
	server *httptest.Server

	mu       sync.Mutex
	table    map[string][]string
	script   []ScriptedResponse
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount  int
	Queries       [][]string
	LastUserAgent string
	LastParams    map[string]string
}

// NewMockService creates a new mock mapping server.
func NewMockService() *MockService {
	mock := &MockService{
		table:    make(map[string][]string),
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Fields(r.URL.Query().Get("query"))

		mock.mu.Lock()
		mock.RequestCount++
		mock.Queries = append(mock.Queries, ids)
		mock.LastUserAgent = r.Header.Get("User-Agent")
		mock.LastParams = map[string]string{
			"from":   r.URL.Query().Get("from"),
			"to":     r.URL.Query().Get("to"),
			"format": r.URL.Query().Get("format"),
		}

		if len(mock.script) > 0 {
			scripted := mock.script[0]
			mock.script = mock.script[1:]
			mock.mu.Unlock()
			w.WriteHeader(scripted.StatusCode)
			fmt.Fprint(w, scripted.Body)
			return
		}

		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, ids)
	}))

	return mock
}

// defaultHandler answers a query from the mapping table.
func (m *MockService) defaultHandler(w http.ResponseWriter, ids []string) {
	var sb strings.Builder
	sb.WriteString("From\tTo\n")

	m.mu.Lock()
	for _, id := range ids {
		for _, target := range m.table[id] {
			fmt.Fprintf(&sb, "%s\t%s\n", id, target)
		}
	}
	m.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, sb.String())
}

// URL returns the mock server URL.
func (m *MockService) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockService) Close() {
	m.server.Close()
}

// SetMapping registers the targets an identifier maps to.
func (m *MockService) SetMapping(id string, targets ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[id] = targets
}

// Script queues canned responses served, in order, before any table lookup.
func (m *MockService) Script(responses ...ScriptedResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

// SetHandler sets a custom handler for a specific path, bypassing the
// mapping table (scripted responses still take precedence). A nil handler
// restores the default table lookup.
func (m *MockService) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if handler == nil {
		delete(m.handlers, path)
		return
	}
	m.handlers[path] = handler
}

// Reset clears tracking counters and any unserved scripted responses.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Queries = nil
	m.LastUserAgent = ""
	m.LastParams = nil
	m.script = nil
}

// WorkedExample loads the documented five-accession ACC to P_REFSEQ_AC
// fixture, 13 rows in total.
func (m *MockService) WorkedExample() {
	m.SetMapping("P08238", "NP_031381.2", "XP_005248748.1")
	m.SetMapping("P10275", "NP_000035.2", "NP_001011645.1", "NP_001334990.1", "NP_001334992.1")
	m.SetMapping("E9PAV3", "NP_001356524.1")
	m.SetMapping("O00170", "NP_001289.1", "XP_011518844.1")
	m.SetMapping("O43504", "NP_006398.2", "XP_005256102.1", "XP_016883281.1", "XP_016883282.1")
}
