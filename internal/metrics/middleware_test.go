package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestHTTPMiddleware(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	r := chi.NewRouter()
	r.Use(HTTPMiddleware)
	r.Get("/api/audits/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest("GET", "/api/audits/550e8400-e29b-41d4-a716-446655440000", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	counter, err := m.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/api/audits/{id}", "404")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	if v := counterValue(t, counter); v != 1 {
		t.Errorf("Expected request counter 1, got %f", v)
	}

	errCounter, err := m.HTTPErrorsTotal.GetMetricWithLabelValues("not_found")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	if v := counterValue(t, errCounter); v != 1 {
		t.Errorf("Expected error counter 1, got %f", v)
	}
}

func TestHTTPMiddlewareImplicitOK(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	counter, err := m.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/health", "200")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	if v := counterValue(t, counter); v != 1 {
		t.Errorf("Expected request counter 1, got %f", v)
	}
}

func TestHTTPMiddlewareNoMetrics(t *testing.T) {
	SetGlobal(nil)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := HTTPMiddleware(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	// Should not panic when global metrics is nil
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestNormalizePathWithoutRoute(t *testing.T) {
	req := httptest.NewRequest("GET", "/files/550e8400-e29b-41d4-a716-446655440000/pdf", nil)
	if got := normalizePath(req); got != "/files/{id}/pdf" {
		t.Errorf("normalizePath() = %q, want /files/{id}/pdf", got)
	}
}

func TestIsUUID(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"550E8400-E29B-41D4-A716-446655440000", true},
		{"not-a-uuid", false},
		{"550e8400e29b41d4a716446655440000", false}, // missing dashes
		{"", false},
		{"550e8400-e29b-41d4-a716-44665544000", false},   // too short
		{"550e8400-e29b-41d4-a716-4466554400000", false}, // too long
	}

	for _, tt := range tests {
		result := isUUID(tt.input)
		if result != tt.expected {
			t.Errorf("isUUID(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestCategorizeStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{500, "server_error"},
		{503, "server_error"},
		{429, "rate_limited"},
		{401, "auth_error"},
		{403, "auth_error"},
		{404, "not_found"},
		{400, "bad_request"},
		{409, "client_error"},
		{200, "unknown"},
	}

	for _, tt := range tests {
		if got := categorizeStatus(tt.status); got != tt.expected {
			t.Errorf("categorizeStatus(%d) = %q, expected %q", tt.status, got, tt.expected)
		}
	}
}
