package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_namespace")
	if m == nil {
		t.Fatal("Expected metrics instance, got nil")
	}

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal should be initialized")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration should be initialized")
	}
	if m.RequestsInFlight == nil {
		t.Error("RequestsInFlight should be initialized")
	}
	if m.DecisionsTotal == nil {
		t.Error("DecisionsTotal should be initialized")
	}
	if m.AdminOpsTotal == nil {
		t.Error("AdminOpsTotal should be initialized")
	}
}

func TestNewMetrics_Singleton(t *testing.T) {
	m1 := NewMetrics("test")
	m2 := NewMetrics("other")

	if m1 != m2 {
		t.Error("NewMetrics should return the same instance (singleton)")
	}
}

func TestIncDecision(t *testing.T) {
	m := NewMetrics("test")

	initial := m.requestCount
	m.IncDecision("allowed")

	if m.requestCount != initial+1 {
		t.Errorf("Expected request count %d, got %d", initial+1, m.requestCount)
	}
}

func TestIncError(t *testing.T) {
	m := NewMetrics("test")

	initial := m.errorCount
	m.IncError()

	if m.errorCount != initial+1 {
		t.Errorf("Expected error count %d, got %d", initial+1, m.errorCount)
	}
}

func TestMiddleware_RecordsRequests(t *testing.T) {
	m := NewMetrics("test")

	handler := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestStatsHandler(t *testing.T) {
	m := NewMetrics("test")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	m.StatsHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "requests") || !strings.Contains(body, "errors") {
		t.Errorf("unexpected stats body: %s", body)
	}
}
