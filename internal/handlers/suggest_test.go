package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/taskboard/internal/services/ai"
	"github.com/benvon/taskboard/internal/services/suggest"
	"github.com/gorilla/mux"
)

// mockAnswerer implements Answerer
type mockAnswerer struct {
	AnswerFunc func(ctx context.Context, t suggest.Type, prompt string) (string, error)
}

func (m *mockAnswerer) Answer(ctx context.Context, t suggest.Type, prompt string) (string, error) {
	return m.AnswerFunc(ctx, t, prompt)
}

func TestSuggestionHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		answer     string
		answerErr  error
		wantStatus int
		wantError  string
	}{
		{
			name:       "categorize",
			body:       `{"type":"categorizeTask","prompt":"Buy apples"}`,
			answer:     "Shopping",
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid body",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "unknown type",
			body:       `{"type":"poem","prompt":"x"}`,
			answerErr:  fmt.Errorf("%w: poem", ai.ErrUnknownType),
			wantStatus: http.StatusBadRequest,
			wantError:  "Unknown request type",
		},
		{
			name:       "empty prompt",
			body:       `{"type":"generateSubtasks","prompt":""}`,
			answerErr:  ai.ErrEmptyPrompt,
			wantStatus: http.StatusBadRequest,
			wantError:  "Prompt is required",
		},
		{
			name:       "prompt too long",
			body:       `{"type":"generateSubtasks","prompt":"long"}`,
			answerErr:  ai.ErrPromptTooLong,
			wantStatus: http.StatusBadRequest,
			wantError:  "Prompt is too long",
		},
		{
			name:       "provider timeout",
			body:       `{"type":"generateSubtasks","prompt":"Plan trip"}`,
			answerErr:  context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "AI provider request failed",
		},
		{
			name:       "provider failure",
			body:       `{"type":"generateSubtasks","prompt":"Plan trip"}`,
			answerErr:  errors.New("upstream exploded"),
			wantStatus: http.StatusBadGateway,
			wantError:  "AI provider request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewSuggestionHandler(&mockAnswerer{
				AnswerFunc: func(context.Context, suggest.Type, string) (string, error) {
					return tt.answer, tt.answerErr
				},
			}, nil)
			h.now = func() time.Time { return testNow }
			r := mux.NewRouter()
			h.RegisterRoutes(r.PathPrefix(suggest.EndpointPath).Subrouter())

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, suggest.EndpointPath, bytes.NewBufferString(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantError != "" {
				var body suggest.ErrorBody
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("Failed to decode error body: %v", err)
				}
				if body.Error != tt.wantError {
					t.Errorf("Expected error %q, got %q", tt.wantError, body.Error)
				}
				return
			}

			var resp CompletionResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode completion: %v", err)
			}
			if resp.Created != testNow.Unix() {
				t.Errorf("Expected created %d, got %d", testNow.Unix(), resp.Created)
			}
			if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != tt.answer {
				t.Errorf("Expected one choice with %q, got %+v", tt.answer, resp.Choices)
			}
		})
	}
}

// TestSuggestionHandler_RoundTrip drives the real suggestion client against the handler.
func TestSuggestionHandler_RoundTrip(t *testing.T) {
	t.Parallel()

	var calls int32
	r := mux.NewRouter()
	NewSuggestionHandler(&mockAnswerer{
		AnswerFunc: func(_ context.Context, typ suggest.Type, prompt string) (string, error) {
			atomic.AddInt32(&calls, 1)
			if typ != suggest.TypeGenerateSubtasks {
				return "", fmt.Errorf("%w: %s", ai.ErrUnknownType, typ)
			}
			return "Step one\nStep two", nil
		},
	}, nil).RegisterRoutes(r.PathPrefix(suggest.EndpointPath).Subrouter())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := suggest.NewClient(srv.URL, suggest.WithHTTPClient(srv.Client()))
	got, err := client.Suggest(context.Background(), suggest.TypeGenerateSubtasks, "Plan trip")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if got != "Step one\nStep two" {
		t.Errorf("Unexpected content %q", got)
	}

	if _, err := client.Suggest(context.Background(), suggest.TypeGenerateSubtasks, "Plan trip"); err != nil {
		t.Fatalf("cached Suggest() error = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected the second call to be served from cache, backend saw %d calls", n)
	}
}
