// Package priority derives a task priority from keywords in its title.
package priority

import (
	"fmt"
	"os"
	"strings"

	"github.com/benvon/taskboard/internal/models"
	"gopkg.in/yaml.v3"
)

// Keywords holds the three keyword tiers checked in order: urgent, high, low.
type Keywords struct {
	Urgent []string `yaml:"urgent"`
	High   []string `yaml:"high"`
	Low    []string `yaml:"low"`
}

// DefaultKeywords returns the built-in keyword lists (English and French terms).
func DefaultKeywords() Keywords {
	return Keywords{
		Urgent: []string{
			"urgent", "asap", "immediately", "critical", "deadline", "due today",
			"immédiat", "critique", "échéance",
		},
		High: []string{
			"important", "priority", "soon", "this week",
			"prioritaire", "bientôt", "cette semaine",
		},
		Low: []string{
			"later", "eventually", "someday", "when possible", "if time",
			"quand possible", "plus tard", "éventuellement", "si temps",
		},
	}
}

// LoadKeywords reads keyword lists from a YAML file. Tiers missing from the file
// keep their default lists.
func LoadKeywords(path string) (Keywords, error) {
	kw := DefaultKeywords()
	data, err := os.ReadFile(path)
	if err != nil {
		return kw, fmt.Errorf("failed to read keyword file: %w", err)
	}

	var fromFile Keywords
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return kw, fmt.Errorf("failed to parse keyword file: %w", err)
	}
	if len(fromFile.Urgent) > 0 {
		kw.Urgent = fromFile.Urgent
	}
	if len(fromFile.High) > 0 {
		kw.High = fromFile.High
	}
	if len(fromFile.Low) > 0 {
		kw.Low = fromFile.Low
	}
	return kw, nil
}

// Heuristic suggests priorities from title keywords
type Heuristic struct {
	urgent []string
	high   []string
	low    []string
}

// New creates a heuristic from the given keyword lists
func New(kw Keywords) *Heuristic {
	return &Heuristic{
		urgent: lowerAll(kw.Urgent),
		high:   lowerAll(kw.High),
		low:    lowerAll(kw.Low),
	}
}

// Suggest returns Critical, High, Low or Normal, checking tiers in that order.
func (h *Heuristic) Suggest(title string) models.Priority {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, h.urgent):
		return models.PriorityCritical
	case containsAny(t, h.high):
		return models.PriorityHigh
	case containsAny(t, h.low):
		return models.PriorityLow
	default:
		return models.PriorityNormal
	}
}

var defaultHeuristic = New(DefaultKeywords())

// Suggest runs the default heuristic
func Suggest(title string) models.Priority {
	return defaultHeuristic.Suggest(title)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
