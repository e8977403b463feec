// Package testutil provides testing utilities for the dinkelberg bot.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// DefaultToken is the vqd token served by the mock search page.
const DefaultToken = "3-322225378556065850860803507288131703155-133178935652763664263271092398831973244"

// Paths served by MockDDG.
const (
	PathSearch = "/"
	PathImages = "/i.js"
	PathAPI    = "/api/"
)

// MockImage is one image result as the search endpoint encodes it.
type MockImage struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
	Source string `json:"source"`
	Title  string `json:"title"`
	Image  string `json:"image"`
}

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockDDG is a configurable DuckDuckGo stand-in. The search page, image
// endpoint and instant answer API are served from one server; use URL()
// as the search base and APIURL() as the answer base.
type MockDDG struct {
	server *httptest.Server

	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	images   map[string][]MockImage
	answers  map[string]string
	requests map[string]int
	token    string
}

// NewMockDDG creates a new mock server.
func NewMockDDG() *MockDDG {
	mock := &MockDDG{
		handlers: make(map[string]http.HandlerFunc),
		images:   make(map[string][]MockImage),
		answers:  make(map[string]string),
		requests: make(map[string]int),
		token:    DefaultToken,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests[r.URL.Path]++
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case PathSearch:
			mock.searchPage(w, r)
		case PathImages:
			mock.imageResults(w, r)
		case PathAPI:
			mock.instantAnswer(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the search base URL.
func (m *MockDDG) URL() string {
	return m.server.URL
}

// APIURL returns the instant answer base URL.
func (m *MockDDG) APIURL() string {
	return m.server.URL + "/api"
}

// Close shuts down the mock server.
func (m *MockDDG) Close() {
	m.server.Close()
}

// Reset clears request counters.
func (m *MockDDG) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
}

// SetHandler overrides the handler for a path.
func (m *MockDDG) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockDDG) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetToken changes the token embedded in the search page. An empty token
// serves a page without one.
func (m *MockDDG) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// SetImages configures the image results for query.
func (m *MockDDG) SetImages(query string, images ...MockImage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[query] = images
}

// SetAnswer configures the instant answer abstract for query.
func (m *MockDDG) SetAnswer(query, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[query] = text
}

// RequestCount returns the number of requests served for path.
func (m *MockDDG) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// TotalRequests returns the number of requests served for all paths.
func (m *MockDDG) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requests {
		total += n
	}
	return total
}

func (m *MockDDG) searchPage(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if token == "" {
		fmt.Fprint(w, "<html><body>no token here</body></html>")
		return
	}
	fmt.Fprintf(w, "<html><script>nrj('/d.js?q=%s&t=D&l=us-en&vqd=%s&p_ent=&ex=-1');</script></html>",
		r.URL.Query().Get("q"), token)
}

func (m *MockDDG) imageResults(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	m.mu.RLock()
	token := m.token
	images, ok := m.images[query]
	m.mu.RUnlock()

	if r.URL.Query().Get("vqd") != token {
		http.Error(w, "invalid vqd", http.StatusForbidden)
		return
	}
	if !ok {
		images = []MockImage{NewMockImage(query)}
	}

	writeJSON(w, map[string]any{
		"query":   query,
		"results": images,
	})
}

func (m *MockDDG) instantAnswer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	m.mu.RLock()
	text := m.answers[query]
	m.mu.RUnlock()

	body := map[string]string{
		"Heading":      query,
		"AbstractText": text,
		"AbstractURL":  "",
	}
	if text != "" {
		body["AbstractURL"] = "https://en.wikipedia.org/wiki/" + query
	}
	writeJSON(w, body)
}

// NewMockImage returns a deterministic image result for query.
func NewMockImage(query string) MockImage {
	return MockImage{
		Width:  640,
		Height: 480,
		URL:    "https://example.com/" + query,
		Source: "Bing",
		Title:  query,
		Image:  "https://images.example.com/" + query + ".jpg",
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
