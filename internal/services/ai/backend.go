package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/services/suggest"
	"go.uber.org/zap"
)

// MaxPromptLength bounds the prompt text accepted from callers
const MaxPromptLength = 500

var (
	// ErrUnknownType is returned for a request type the backend does not serve
	ErrUnknownType = errors.New("unknown suggestion type")
	// ErrEmptyPrompt is returned when the prompt is blank
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrPromptTooLong is returned when the prompt exceeds MaxPromptLength
	ErrPromptTooLong = errors.New("prompt too long")
)

const categorizeSystem = "You sort to-do items into categories. Answer with exactly one word from this list and nothing else: %s."

const subtasksSystem = "You break a to-do item into at most %d short, concrete subtasks. " +
	"Answer with one subtask per line, without numbering, bullets or any other text."

// listMarker matches leading "1.", "2)", "-", "*" or "•" list markers
var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// Backend answers suggestion requests
type Backend struct {
	completer   Completer
	logger      *zap.Logger
	maxSubtasks int
}

// NewBackend creates a backend on top of completer
func NewBackend(completer Completer, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{completer: completer, logger: logger, maxSubtasks: 5}
}

// Answer validates the request, asks the model and normalises its answer. A
// categorisation answer that is not a known category comes back as the raw text so
// the caller can decide to ignore it.
func (b *Backend) Answer(ctx context.Context, t suggest.Type, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if len([]rune(prompt)) > MaxPromptLength {
		return "", ErrPromptTooLong
	}

	var system string
	switch t {
	case suggest.TypeCategorizeTask:
		system = fmt.Sprintf(categorizeSystem, categoryList())
	case suggest.TypeGenerateSubtasks:
		system = fmt.Sprintf(subtasksSystem, b.maxSubtasks)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	content, err := b.completer.Complete(ctx, system, prompt)
	if err != nil {
		return "", err
	}

	switch t {
	case suggest.TypeCategorizeTask:
		answer := strings.Trim(strings.TrimSpace(content), ".\"'")
		if c, ok := models.ParseCategory(answer); ok {
			return string(c), nil
		}
		b.logger.Info("ai_category_unrecognised", zap.Int("answer_length", len(answer)))
		return answer, nil
	default:
		return b.cleanSubtasks(content), nil
	}
}

func (b *Backend) cleanSubtasks(content string) string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == b.maxSubtasks {
			break
		}
	}
	return strings.Join(out, "\n")
}

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
