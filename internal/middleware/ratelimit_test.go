package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestRateLimit_InMemory(t *testing.T) {
	t.Parallel()

	mw, err := RateLimit("2-M", "test", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("RateLimit() error = %v", err)
	}
	handler := mw(okHandler)

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
		req.RemoteAddr = ip + ":4242"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := call("10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := call("10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 after the limit, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Success || body.Error != "Too Many Requests" {
		t.Errorf("Unexpected error body %+v", body)
	}

	if w := call("10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("Expected a separate bucket per client, got %d", w.Code)
	}
}

func TestRateLimit_InvalidRate(t *testing.T) {
	t.Parallel()

	if _, err := RateLimit("often", "test", nil, zap.NewNop()); err == nil {
		t.Error("Expected an error for an invalid rate")
	}
}
