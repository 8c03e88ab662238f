package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request must be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients are independent")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("window must reset after a minute")
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5})
	defer rl.Stop()
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("1.2.3.4")
	now = now.Add(11 * time.Minute)
	rl.cleanupStaleEntries()
	if rl.GetMetrics().ClientCount != 0 {
		t.Fatal("stale client not removed")
	}
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}
}
