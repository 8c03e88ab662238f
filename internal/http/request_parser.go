// Package http is the HTTP front end: a JSON ingest API with health checks.
//
// This file implements utilities for parsing and validating request data.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxTextBody bounds text ingestion requests.
const maxTextBody = 64 << 10

// RequestBodyParser reads a JSON or form-encoded body once.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most limit bytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request, limit int64) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	return p
}

// Parse decodes the body as JSON when the content type or the first byte
// says so, and as a form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.looksLikeJSON() {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

func (p *RequestBodyParser) looksLikeJSON() bool {
	if mt, _, err := mime.ParseMediaType(p.contentType); err == nil && mt == "application/json" {
		return true
	}
	return p.body[0] == '{'
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// TooLarge reports whether reading stopped at the size limit.
func (p *RequestBodyParser) TooLarge() bool {
	var maxErr *http.MaxBytesError
	return errors.As(p.err, &maxErr)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
