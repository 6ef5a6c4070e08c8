package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/taskboard/internal/services/suggest"
)

type mockCompleter struct {
	completeFunc func(ctx context.Context, system, user string) (string, error)
	lastSystem   string
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.lastSystem = system
	return m.completeFunc(ctx, system, user)
}

func answering(content string) *mockCompleter {
	return &mockCompleter{completeFunc: func(context.Context, string, string) (string, error) {
		return content, nil
	}}
}

func TestBackend_Answer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		typ        suggest.Type
		prompt     string
		completion string
		want       string
		wantErr    error
	}{
		{
			name:       "category canonicalised",
			typ:        suggest.TypeCategorizeTask,
			prompt:     "Prepare quarterly report",
			completion: " work.\n",
			want:       "Work",
		},
		{
			name:       "unknown category passed through",
			typ:        suggest.TypeCategorizeTask,
			prompt:     "Something odd",
			completion: "Errands",
			want:       "Errands",
		},
		{
			name:       "subtasks stripped of markers and capped",
			typ:        suggest.TypeGenerateSubtasks,
			prompt:     "Plan a party",
			completion: "1. Pick a date\n2) Book venue\n\n- Send invites\n* Order cake\n• Buy drinks\n6. Clean up",
			want:       "Pick a date\nBook venue\nSend invites\nOrder cake\nBuy drinks",
		},
		{
			name:    "empty prompt",
			typ:     suggest.TypeGenerateSubtasks,
			prompt:  "   ",
			wantErr: ErrEmptyPrompt,
		},
		{
			name:    "prompt too long",
			typ:     suggest.TypeCategorizeTask,
			prompt:  strings.Repeat("a", MaxPromptLength+1),
			wantErr: ErrPromptTooLong,
		},
		{
			name:    "unknown type",
			typ:     suggest.Type("summarize"),
			prompt:  "x",
			wantErr: ErrUnknownType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := NewBackend(answering(tt.completion), nil)

			got, err := b.Answer(context.Background(), tt.typ, tt.prompt)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Answer() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Answer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBackend_SystemPrompts(t *testing.T) {
	t.Parallel()

	m := answering("Work")
	b := NewBackend(m, nil)

	_, _ = b.Answer(context.Background(), suggest.TypeCategorizeTask, "Pay rent")
	for _, c := range []string{"Work", "Personal", "Urgent", "Shopping", "Health", "Projects"} {
		if !strings.Contains(m.lastSystem, c) {
			t.Errorf("Expected categorize prompt to list %s, got %q", c, m.lastSystem)
		}
	}

	_, _ = b.Answer(context.Background(), suggest.TypeGenerateSubtasks, "Pay rent")
	if !strings.Contains(m.lastSystem, "at most 5") {
		t.Errorf("Expected subtask prompt to cap at 5, got %q", m.lastSystem)
	}
}

func TestBackend_CompleterError(t *testing.T) {
	t.Parallel()

	upstream := errors.New("upstream down")
	b := NewBackend(&mockCompleter{completeFunc: func(context.Context, string, string) (string, error) {
		return "", upstream
	}}, nil)

	if _, err := b.Answer(context.Background(), suggest.TypeCategorizeTask, "x"); !errors.Is(err, upstream) {
		t.Errorf("Expected upstream error, got %v", err)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Expected bearer API key, got %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Health"}}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", server.URL, "", nil, true)
	got, err := p.Complete(context.Background(), "system", "Book dentist")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Health" {
		t.Errorf("Expected 'Health', got %q", got)
	}
	if gotBody["model"] != DefaultOpenAIModel {
		t.Errorf("Expected default model, got %v", gotBody["model"])
	}
	if msgs, ok := gotBody["messages"].([]any); !ok || len(msgs) != 2 {
		t.Errorf("Expected system and user messages, got %v", gotBody["messages"])
	}
}

func TestOpenAIProvider_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit_error"}}`, http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, http.StatusBadGateway},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewOpenAIProvider("sk-test", server.URL, "m", nil, false)
			_, err := p.Complete(context.Background(), "s", "u")
			if err == nil {
				t.Fatal("Expected an error")
			}
			if got := StatusFor(err); got != tt.wantStatus {
				t.Errorf("StatusFor() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}
