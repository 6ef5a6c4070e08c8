package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/taskboard/internal/clock"
)

func completion(content string) string {
	b, _ := json.Marshal(Response{Choices: []Choice{{Message: Message{Role: "assistant", Content: content}}}})
	return string(b)
}

func TestClient_Suggest(t *testing.T) {
	t.Parallel()

	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/openai" {
			t.Errorf("Expected POST /api/openai, got %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(completion("  Work \n")))
	}))
	defer server.Close()

	c := NewClient(server.URL + "/")
	out, err := c.Suggest(context.Background(), TypeCategorizeTask, "Finish report")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if out != "Work" {
		t.Errorf("Expected trimmed content %q, got %q", "Work", out)
	}
	if got.Type != TypeCategorizeTask || got.Prompt != "Finish report" {
		t.Errorf("Unexpected request body %+v", got)
	}
}

func TestClient_CacheTTL(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(completion("Shopping")))
	}))
	defer server.Close()

	fake := clock.NewFake(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	cache := NewMemoryCache(DefaultCacheTTL, fake)
	c := NewClient(server.URL, WithCache(cache))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Suggest(ctx, TypeCategorizeTask, "Buy milk"); err != nil {
			t.Fatalf("Suggest() error = %v", err)
		}
		fake.Advance(time.Minute)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("Expected 1 request within the TTL, got %d", n)
	}

	fake.Advance(2 * time.Minute)
	if _, err := c.Suggest(ctx, TypeCategorizeTask, "Buy milk"); err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("Expected a second request after the TTL, got %d", n)
	}

	// Different type is a different key.
	if _, err := c.Suggest(ctx, TypeGenerateSubtasks, "Buy milk"); err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("Expected type to be part of the cache key, got %d requests", n)
	}
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"backend error body", http.StatusTooManyRequests, `{"error":"rate limited"}`, 429, "rate limited"},
		{"no error body", http.StatusInternalServerError, `oops`, 500, "Unknown error"},
		{"malformed success", http.StatusOK, `{not json`, 200, ""},
		{"empty choices", http.StatusOK, `{"choices":[]}`, 200, "no choices in response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			cache := NewMemoryCache(DefaultCacheTTL, nil)
			c := NewClient(server.URL, WithCache(cache))
			_, err := c.Suggest(context.Background(), TypeGenerateSubtasks, "Plan trip")

			var be *BackendError
			if !errors.As(err, &be) {
				t.Fatalf("Expected *BackendError, got %v", err)
			}
			if be.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, be.StatusCode)
			}
			if tt.wantMsg != "" && be.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, be.Message)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Errorf("Expected no retry, got %d requests", n)
			}
			if cache.Len() != 0 {
				t.Error("Expected failures not to be cached")
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).Suggest(context.Background(), TypeCategorizeTask, "x")
	if !IsNetworkError(err) {
		t.Fatalf("Expected network error, got %v", err)
	}
	if IsBackendError(err) {
		t.Error("Network error must not be reported as backend error")
	}
}

func TestClient_ClearCache(t *testing.T) {
	t.Parallel()

	cache := NewMemoryCache(DefaultCacheTTL, nil)
	cache.Set(context.Background(), CacheKey(TypeCategorizeTask, "a"), "Work")
	c := NewClient("http://unused", WithCache(cache))

	if err := c.ClearCache(context.Background()); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", cache.Len())
	}
}

func TestNewHTTPClient_ClientCredentials(t *testing.T) {
	t.Parallel()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc123","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	var auth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(completion("Health")))
	}))
	defer backend.Close()

	hc := NewHTTPClient(context.Background(), OAuthConfig{
		ClientID:     "board",
		ClientSecret: "secret",
		TokenURL:     tokenServer.URL,
	}, 0)
	if hc.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", hc.Timeout)
	}

	c := NewClient(backend.URL, WithHTTPClient(hc))
	if _, err := c.Suggest(context.Background(), TypeCategorizeTask, "Dentist"); err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if auth != "Bearer abc123" {
		t.Errorf("Expected bearer token from client credentials, got %q", auth)
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	if got := CacheKey(TypeCategorizeTask, "Buy milk"); got != "categorizeTask_Buy milk" {
		t.Errorf("CacheKey() = %q", got)
	}
}
