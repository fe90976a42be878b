package models

import (
	"fmt"
	"strings"
	"time"
)

// Priority is how pressing a task is
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = [...]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
	PriorityUrgent: "Urgent",
}

// AllPriorities returns every priority in ascending order
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

func (p Priority) String() string {
	if p < 0 || int(p) >= len(priorityNames) {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Valid reports whether p is one of the declared priorities
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// Next cycles to the following priority, wrapping around
func (p Priority) Next() Priority {
	return Priority((int(p) + 1) % len(priorityNames))
}

// Prev cycles to the previous priority, wrapping around
func (p Priority) Prev() Priority {
	n := len(priorityNames)
	return Priority((int(p) + n - 1) % n)
}

// ParsePriority accepts a priority name in any case
func ParsePriority(s string) (Priority, error) {
	for _, p := range AllPriorities() {
		if strings.EqualFold(strings.TrimSpace(s), p.String()) {
			return p, nil
		}
	}
	return PriorityMedium, fmt.Errorf("unknown priority %q", s)
}

// Category is the kind of academic work a task represents
type Category int

const (
	CategoryExam Category = iota
	CategoryPaper
	CategoryHomework
	CategoryLab
	CategoryProject
	CategoryOther
)

var categoryNames = [...]string{
	CategoryExam:     "Exam",
	CategoryPaper:    "Paper",
	CategoryHomework: "Homework",
	CategoryLab:      "Lab",
	CategoryProject:  "Project",
	CategoryOther:    "Other",
}

// AllCategories returns every category in sidebar order
func AllCategories() []Category {
	return []Category{CategoryExam, CategoryPaper, CategoryHomework, CategoryLab, CategoryProject, CategoryOther}
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the declared categories
func (c Category) Valid() bool {
	return c >= CategoryExam && c <= CategoryOther
}

// Next cycles to the following category, wrapping around
func (c Category) Next() Category {
	return Category((int(c) + 1) % len(categoryNames))
}

// Prev cycles to the previous category, wrapping around
func (c Category) Prev() Category {
	n := len(categoryNames)
	return Category((int(c) + n - 1) % n)
}

// ParseCategory accepts a category name in any case
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories() {
		if strings.EqualFold(strings.TrimSpace(s), c.String()) {
			return c, nil
		}
	}
	return CategoryOther, fmt.Errorf("unknown category %q", s)
}

// ChecklistItem is a step inside a task. IDs are unique within the parent task.
type ChecklistItem struct {
	ID          string
	Title       string
	IsCompleted bool
}

// Task represents a single academic assignment
type Task struct {
	ID            string
	Title         string
	Description   string
	Priority      Priority
	Category      Category
	DueDate       Date
	IsCompleted   bool
	SubTasks      []ChecklistItem // display order
	Collaborators []string        // display order, duplicates allowed
	CreatedAt     time.Time
}

// Clone returns a copy of t that shares no slices with it
func (t Task) Clone() Task {
	c := t
	if t.SubTasks != nil {
		c.SubTasks = append([]ChecklistItem(nil), t.SubTasks...)
	}
	if t.Collaborators != nil {
		c.Collaborators = append([]string(nil), t.Collaborators...)
	}
	return c
}

// IsOverdue reports whether an open task's due date has already passed
func (t Task) IsOverdue(today Date) bool {
	return !t.IsCompleted && !t.DueDate.IsZero() && t.DueDate.Before(today)
}

// CompletedSubTasks counts finished checklist items
func (t Task) CompletedSubTasks() int {
	n := 0
	for _, st := range t.SubTasks {
		if st.IsCompleted {
			n++
		}
	}
	return n
}
