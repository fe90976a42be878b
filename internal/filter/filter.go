// Package filter computes the visible subset of the task collection.
package filter

import (
	"fmt"
	"strings"

	"github.com/tgienger/academiaflow/internal/models"
)

// Window is the time-window selector shown in the sidebar navigation
type Window int

const (
	WindowAll Window = iota
	WindowToday
	WindowUpcoming
	WindowCompleted
)

var windowKeys = [...]string{
	WindowAll:       "all",
	WindowToday:     "today",
	WindowUpcoming:  "upcoming",
	WindowCompleted: "completed",
}

var windowLabels = [...]string{
	WindowAll:       "All Tasks",
	WindowToday:     "Today",
	WindowUpcoming:  "Upcoming",
	WindowCompleted: "Completed",
}

// AllWindows returns the windows in sidebar order
func AllWindows() []Window {
	return []Window{WindowAll, WindowToday, WindowUpcoming, WindowCompleted}
}

// String returns the stable key used in settings and config
func (w Window) String() string {
	if w < 0 || int(w) >= len(windowKeys) {
		return fmt.Sprintf("Window(%d)", int(w))
	}
	return windowKeys[w]
}

// Label returns the sidebar caption
func (w Window) Label() string {
	if w < 0 || int(w) >= len(windowLabels) {
		return w.String()
	}
	return windowLabels[w]
}

// ParseWindow accepts the keys produced by Window.String
func ParseWindow(s string) (Window, error) {
	for _, w := range AllWindows() {
		if strings.EqualFold(strings.TrimSpace(s), w.String()) {
			return w, nil
		}
	}
	return WindowAll, fmt.Errorf("unknown window %q", s)
}

// CategorySelector is either "all" or one specific category
type CategorySelector struct {
	category models.Category
	specific bool
}

// AnyCategory matches every task
func AnyCategory() CategorySelector { return CategorySelector{} }

// OnlyCategory matches tasks of exactly c
func OnlyCategory(c models.Category) CategorySelector {
	return CategorySelector{category: c, specific: true}
}

// IsAll reports whether the selector matches every category
func (s CategorySelector) IsAll() bool { return !s.specific }

// Category returns the selected category and whether one is selected
func (s CategorySelector) Category() (models.Category, bool) {
	return s.category, s.specific
}

func (s CategorySelector) String() string {
	if !s.specific {
		return "all"
	}
	return s.category.String()
}

// ParseCategorySelector accepts "all" or a category name
func ParseCategorySelector(s string) (CategorySelector, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") || strings.TrimSpace(s) == "" {
		return AnyCategory(), nil
	}
	c, err := models.ParseCategory(s)
	if err != nil {
		return AnyCategory(), err
	}
	return OnlyCategory(c), nil
}

func (s CategorySelector) matches(c models.Category) bool {
	return !s.specific || s.category == c
}

// Criteria holds the three filter inputs
type Criteria struct {
	Query    string
	Category CategorySelector
	Window   Window
}

// Match reports whether t is visible under c on the given day
func (c Criteria) Match(t models.Task, today models.Date) bool {
	if !matchesQuery(t, c.Query) {
		return false
	}
	if !c.Category.matches(t.Category) {
		return false
	}
	if !matchesWindow(t, c.Window, today) {
		return false
	}
	// Completed tasks only surface under "completed" and "all"; open tasks never under "completed".
	if c.Window == WindowCompleted {
		return t.IsCompleted
	}
	return !t.IsCompleted || c.Window == WindowAll
}

// Apply returns the tasks visible under c, in their original order
func Apply(tasks []models.Task, c Criteria, today models.Date) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if c.Match(t, today) {
			out = append(out, t)
		}
	}
	return out
}

func matchesQuery(t models.Task, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

func matchesWindow(t models.Task, w Window, today models.Date) bool {
	switch w {
	case WindowToday:
		return t.DueDate == today
	case WindowUpcoming:
		return t.DueDate.After(today)
	case WindowCompleted:
		return t.IsCompleted
	default:
		return true
	}
}
