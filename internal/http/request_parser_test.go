package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func parse(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(httptest.NewRecorder(), req, maxTextBody)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
		json        bool
	}{
		{"json", "application/json", `{"text":" taxi 15€ "}`, "taxi 15€", true},
		{"json sniffed", "", `{"text":"bar 2€"}`, "bar 2€", true},
		{"json number", "application/json; charset=utf-8", `{"text":12}`, "12", true},
		{"form", "application/x-www-form-urlencoded", "text=spesa+30+euro", "spesa 30 euro", false},
		{"empty", "", "", "", false},
		{"control chars", "application/json", `{"text":"bar\u0000 2€\u0007"}`, "bar 2€", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parse(t, tt.contentType, tt.body)
			if got := p.Get("text"); got != tt.want {
				t.Fatalf("Get(text) = %q, want %q", got, tt.want)
			}
			if p.IsJSON() != tt.json {
				t.Fatalf("IsJSON = %v", p.IsJSON())
			}
		})
	}
}

func TestRequestBodyParserErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"text":`))
	p := NewRequestBodyParser(httptest.NewRecorder(), req, maxTextBody)
	if err := p.Parse(); err == nil {
		t.Fatal("expected JSON error")
	}
	if p.TooLarge() {
		t.Fatal("syntax error reported as size error")
	}

	req = httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(strings.Repeat("x", 100)))
	p = NewRequestBodyParser(httptest.NewRecorder(), req, 10)
	if err := p.Parse(); err == nil || !p.TooLarge() {
		t.Fatalf("expected size error, got %v", err)
	}
}
