package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatfmt/internal/document"

	"github.com/google/go-cmp/cmp"
)

func post(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFormatEndpoint(t *testing.T) {
	h := NewRouter(nil, 80)
	rec := post(t, h, "/api/format", `{"text":"Row|A|B\n---|---|---\nX|1|2\nY|3"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var doc document.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.Layout != document.LayoutTable {
		t.Fatalf("unexpected layout %s", doc.Layout)
	}
	want := []document.TableBlock{{
		Header: []string{"Row", "A", "B"},
		Rows:   [][]string{{"X", "1", "2"}, {"Y", "3", ""}},
	}}
	if diff := cmp.Diff(want, doc.Tables()); diff != "" {
		t.Fatalf("unexpected tables (-want +got):\n%s", diff)
	}
}

func TestFormatEndpointBadBody(t *testing.T) {
	rec := post(t, NewRouter(nil, 80), "/api/format", `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
		t.Fatalf("expected JSON error body, got %q", rec.Body.String())
	}
}

func TestRenderEndpoint(t *testing.T) {
	h := NewRouter(nil, 80)
	cases := []struct {
		format      string
		contentType string
		want        string
	}{
		{"html", "text/html; charset=utf-8", "<strong>world</strong>"},
		{"markdown", "text/markdown; charset=utf-8", "**world**"},
		{"text", "text/plain; charset=utf-8", "Hello world"},
		{"json", "application/json", `"layout": "plain"`},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			rec := post(t, h, "/api/render?format="+tc.format, `{"text":"Hello **world**"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tc.contentType {
				t.Fatalf("unexpected content type %q", got)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("missing %q in body:\n%s", tc.want, rec.Body.String())
			}
		})
	}
}

func TestRenderEndpointUnsupportedFormat(t *testing.T) {
	rec := post(t, NewRouter(nil, 80), "/api/render?format=pdf", `{"text":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported format: pdf") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	NewRouter(nil, 80).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRenderEndpointBankProfile(t *testing.T) {
	rec := post(t, NewRouter(nil, 80), "/api/render?format=html", `{"text":"Pay ₹1,200 *today*","profile":"bank"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<span class="currency">₹1,200</span>`) || !strings.Contains(body, "<em>today</em>") {
		t.Fatalf("bank markup missing: %s", body)
	}
}

func TestFormatEndpointUnknownProfile(t *testing.T) {
	rec := post(t, NewRouter(nil, 80), "/api/format", `{"text":"x","profile":"legal"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `unknown profile`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}
