// Package store holds the in-memory task collection. It is the only writer of tasks;
// everything else works on the copies it hands out.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tgienger/academiaflow/internal/models"
)

var ErrNotFound = errors.New("task not found")

// Store is the task collection. Not safe for concurrent use; the UI event loop owns it.
type Store struct {
	tasks []models.Task
	log   *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{log: log}
}

// Len returns the number of tasks
func (s *Store) Len() int { return len(s.tasks) }

// List returns a copy of the collection, most recent first
func (s *Store) List() []models.Task {
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// IDs returns the id of every task in collection order
func (s *Store) IDs() []string {
	out := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.ID
	}
	return out
}

// Get returns a copy of the task with the given id
func (s *Store) Get(id string) (models.Task, bool) {
	i := s.index(id)
	if i < 0 {
		return models.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// Add prepends t. An empty or duplicate id is replaced with a fresh one.
func (s *Store) Add(t models.Task) models.Task {
	if t.ID == "" || s.index(t.ID) >= 0 {
		t.ID = uuid.NewString()
	}
	t = t.Clone()
	s.tasks = append([]models.Task{t}, s.tasks...)
	s.log.Debugw("task added", "id", t.ID, "count", len(s.tasks))
	return t.Clone()
}

// Update replaces the task with the same id in place
func (s *Store) Update(t models.Task) error {
	i := s.index(t.ID)
	if i < 0 {
		return fmt.Errorf("update %s: %w", t.ID, ErrNotFound)
	}
	s.tasks[i] = t.Clone()
	s.log.Debugw("task updated", "id", t.ID)
	return nil
}

// Toggle flips the completion flag of a task and returns the new value
func (s *Store) Toggle(id string) (bool, error) {
	i := s.index(id)
	if i < 0 {
		return false, fmt.Errorf("toggle %s: %w", id, ErrNotFound)
	}
	s.tasks[i].IsCompleted = !s.tasks[i].IsCompleted
	s.log.Debugw("task toggled", "id", id, "completed", s.tasks[i].IsCompleted)
	return s.tasks[i].IsCompleted, nil
}

// Delete removes a task. There is no undo.
func (s *Store) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.log.Debugw("task deleted", "id", id, "count", len(s.tasks))
	return nil
}

func (s *Store) index(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// SampleTasks returns the starter tasks shown on first launch
func SampleTasks(now time.Time) []models.Task {
	today := models.DateOf(now)
	return []models.Task{
		{
			ID:          uuid.NewString(),
			Title:       "Submit CS301 Database Project",
			Description: "Finalize the SQL schema and normalization documentation.",
			Priority:    models.PriorityUrgent,
			Category:    models.CategoryProject,
			DueDate:     today.AddDays(1),
			SubTasks: []models.ChecklistItem{
				{ID: uuid.NewString(), Title: "ER Diagram update", IsCompleted: true},
				{ID: uuid.NewString(), Title: "Normalization proof"},
			},
			Collaborators: []string{"Sarah L.", "Mike R."},
			CreatedAt:     now,
		},
		{
			ID:          uuid.NewString(),
			Title:       "Psychology 101 Midterm",
			Description: "Read chapters 5-8 on cognitive development.",
			Priority:    models.PriorityHigh,
			Category:    models.CategoryExam,
			DueDate:     today.AddDays(2),
			CreatedAt:   now,
		},
	}
}

// Seed replaces the collection with tasks, keeping their order
func (s *Store) Seed(tasks []models.Task) {
	s.tasks = make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		s.tasks = append(s.tasks, t.Clone())
	}
}
