package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"botspese/internal/log"
)

func TestHeaders(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing headers: %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected HSTS %q", rec.Header().Get("Strict-Transport-Security"))
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(log.Discard())
	tests := []struct {
		name  string
		req   func() *http.Request
		wants bool
	}{
		{"ingest", func() *http.Request { return httptest.NewRequest(http.MethodPost, "/ingest", nil) }, false},
		{"curl is fine", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/ingest", nil)
			r.Header.Set("User-Agent", "curl/8.0")
			return r
		}, false},
		{"dotenv scan", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/.env", nil) }, true},
		{"scanner", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("User-Agent", "sqlmap/1.7")
			return r
		}, true},
		{"trace method", func() *http.Request { return httptest.NewRequest("TRACE", "/", nil) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DetectSuspiciousRequest(tt.req()); got != tt.wants {
				t.Fatalf("got %v, want %v", got, tt.wants)
			}
		})
	}
	if d.GetMetrics().SuspiciousRequests != 3 {
		t.Fatalf("unexpected metrics %+v", d.GetMetrics())
	}
}

func TestMiddlewareRejectsProbes(t *testing.T) {
	d := NewDetector(log.Discard())
	called := false
	h := d.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin/", nil))
	if rec.Code != http.StatusNotFound || called {
		t.Fatalf("scan reached handler: %d %v", rec.Code, called)
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(log.Discard())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:4242"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(r); got != "203.0.113.7" {
		t.Fatalf("untrusted peer must not set the client ip, got %s", got)
	}

	r.RemoteAddr = "10.0.0.2:4242"
	if got := d.ExtractClientIP(r); got != "198.51.100.1" {
		t.Fatalf("got %s", got)
	}

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "198.51.100.9")
	if got := d.ExtractClientIP(r); got != "198.51.100.9" {
		t.Fatalf("got %s", got)
	}

	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("expected CIDR error")
	}
}
