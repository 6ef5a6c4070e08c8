package board

import (
	"strings"

	"github.com/benvon/taskboard/internal/models"
)

// Tasks returns a copy of every task in board order
func (s *Store) Tasks() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneTasksLocked()
}

// Get returns a copy of one task
func (s *Store) Get(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, _ := s.findLocked(id)
	if task == nil {
		return nil, ErrNotFound
	}
	return task.Clone(), nil
}

// Metrics returns the metrics as of the last mutation
func (s *Store) Metrics() models.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Filter returns tasks whose title, category or priority contains term, ignoring case.
// An empty term returns every task.
func (s *Store) Filter(term string) []*models.Task {
	term = strings.ToLower(strings.TrimSpace(term))

	s.mu.Lock()
	defer s.mu.Unlock()
	if term == "" {
		return s.cloneTasksLocked()
	}

	out := []*models.Task{}
	for _, t := range s.tasks {
		if Matches(t, term) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Matches reports whether a lower-cased term occurs in the task's title, category or priority
func Matches(t *models.Task, term string) bool {
	if strings.Contains(strings.ToLower(t.Title), term) {
		return true
	}
	if t.Category != nil && strings.Contains(strings.ToLower(string(*t.Category)), term) {
		return true
	}
	return t.Priority != nil && strings.Contains(strings.ToLower(string(*t.Priority)), term)
}

// ColumnCounts returns the number of tasks per column; every column is present
func (s *Store) ColumnCounts() map[models.Column]int {
	counts := make(map[models.Column]int, len(models.Columns))
	for _, c := range models.Columns {
		counts[c] = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		counts[t.Column]++
	}
	return counts
}

// CategoryStats returns the number of tasks per category; every category is present
func (s *Store) CategoryStats() map[models.Category]int {
	stats := make(map[models.Category]int, len(models.Categories))
	for _, c := range models.Categories {
		stats[c] = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.Category != nil {
			stats[*t.Category]++
		}
	}
	return stats
}

// ByColumn groups the tasks matching term by column, keeping board order
func (s *Store) ByColumn(term string) map[models.Column][]*models.Task {
	grouped := make(map[models.Column][]*models.Task, len(models.Columns))
	for _, c := range models.Columns {
		grouped[c] = []*models.Task{}
	}
	for _, t := range s.Filter(term) {
		grouped[t.Column] = append(grouped[t.Column], t)
	}
	return grouped
}
