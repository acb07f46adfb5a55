package pslang

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveText(contentType, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(body))
	})
}

func TestMiddlewareProjectsText(t *testing.T) {
	p := newTestProjector(t)
	handler := p.Middleware("publisher", serveText("text/plain; charset=utf-8", testDoc))

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ship the release notes") || strings.Contains(body, "make release") {
		t.Errorf("body = %q", body)
	}
	if got := rec.Header().Get("X-Pslang-Audience"); got != "publisher" {
		t.Errorf("audience header = %q", got)
	}
}

func TestMiddlewarePassesBinary(t *testing.T) {
	p := newTestProjector(t)
	handler := p.Middleware("publisher", serveText("application/octet-stream", testDoc))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blob", nil))

	if rec.Body.String() != testDoc {
		t.Errorf("binary body should pass through, got %q", rec.Body.String())
	}
}

func TestMiddlewareFailsClosed(t *testing.T) {
	p := newTestProjector(t)
	handler := p.Middleware("nobody", serveText("text/plain", testDoc))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "salary") || strings.Contains(rec.Body.String(), "release") {
		t.Errorf("failed projection leaked content: %q", rec.Body.String())
	}
}
