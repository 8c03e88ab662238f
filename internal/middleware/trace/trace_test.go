package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"botspese/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	h := NewMiddleware(log.Discard(), nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("request id not echoed")
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status changed to %d", rec.Code)
	}
}

func TestMiddlewareKeepsClientRequestID(t *testing.T) {
	id := uuid.NewString()
	var seen string
	m := NewMiddleware(log.Discard(), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Fatalf("got %q, want %q", seen, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "not a uuid <script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not a uuid <script>" {
		t.Fatalf("malformed client id was kept")
	}
	if m.GetMetrics().TotalRequests != 2 {
		t.Fatalf("unexpected metrics %+v", m.GetMetrics())
	}
}
