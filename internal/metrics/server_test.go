package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/orangehats/orangehats/internal/ipfilter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, allowed []string) *Server {
	t.Helper()
	filter, err := ipfilter.New(allowed, testLogger())
	if err != nil {
		t.Fatalf("ipfilter.New() error = %v", err)
	}
	return NewServer(New(), "127.0.0.1:0", "/metrics", filter, testLogger())
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("Expected Go runtime metrics in output")
	}
}

func TestServerIPFiltering(t *testing.T) {
	srv := newTestServer(t, []string{"10.0.0.0/8"})

	tests := []struct {
		name       string
		remoteAddr string
		path       string
		wantStatus int
	}{
		{"allowed scraper", "10.1.2.3:5555", "/metrics", http.StatusOK},
		{"denied scraper", "192.168.1.1:5555", "/metrics", http.StatusForbidden},
		{"health is open", "192.168.1.1:5555", "/health", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
