package ui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler(t *testing.T) {
	h := Handler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /: status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Prime Brief") {
		t.Fatal("GET /: missing app shell")
	}
}

func TestHandler_fallback(t *testing.T) {
	h := Handler()
	req := httptest.NewRequest(http.MethodGet, "/runs/abc", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	// Unknown path should fall back to index.html
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /runs/abc (fallback): status=%d", rec.Code)
	}
}
