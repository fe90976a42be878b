// Package form holds the working copy of a task while the create/edit form is open.
package form

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tgienger/academiaflow/internal/advisor"
	"github.com/tgienger/academiaflow/internal/models"
)

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrDueDateRequired  = errors.New("due date is required")
	ErrBreakdownPending = errors.New("breakdown already in progress")
	ErrClosed           = errors.New("form is closed")
)

// Mode says whether the form creates a new task or edits an existing one
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Draft is the editable part of a task
type Draft struct {
	Title         string
	Description   string
	Priority      models.Priority
	Category      models.Category
	DueDate       models.Date
	SubTasks      []models.ChecklistItem
	Collaborators []string
}

// Controller owns a Draft for the lifetime of one form session
type Controller struct {
	Draft Draft

	mode     Mode
	original models.Task
	loading  bool
	closed   bool
	gen      *advisor.Generation
}

// NewCreate opens a blank form due today
func NewCreate(today models.Date) *Controller {
	return &Controller{
		mode: ModeCreate,
		gen:  &advisor.Generation{},
		Draft: Draft{
			Priority: models.PriorityMedium,
			Category: models.CategoryHomework,
			DueDate:  today,
		},
	}
}

// NewEdit opens a form over a copy of task
func NewEdit(task models.Task) *Controller {
	orig := task.Clone()
	cp := task.Clone()
	return &Controller{
		mode:     ModeEdit,
		original: orig,
		gen:      &advisor.Generation{},
		Draft: Draft{
			Title:         cp.Title,
			Description:   cp.Description,
			Priority:      cp.Priority,
			Category:      cp.Category,
			DueDate:       cp.DueDate,
			SubTasks:      cp.SubTasks,
			Collaborators: cp.Collaborators,
		},
	}
}

// ShareGeneration makes breakdown tokens come from g. Forms opened one after
// another on the same g never accept each other's replies.
func (c *Controller) ShareGeneration(g *advisor.Generation) {
	if g != nil {
		c.gen = g
	}
}

func (c *Controller) Mode() Mode { return c.mode }

// TaskID is the id of the task being edited, empty in create mode
func (c *Controller) TaskID() string { return c.original.ID }

// Loading reports whether a breakdown request is in flight
func (c *Controller) Loading() bool { return c.loading }

func (c *Controller) Closed() bool { return c.closed }

// AddChecklistItem appends a new open item. Blank titles are ignored.
func (c *Controller) AddChecklistItem(title string) bool {
	if strings.TrimSpace(title) == "" {
		return false
	}
	c.Draft.SubTasks = append(c.Draft.SubTasks, models.ChecklistItem{
		ID:    uuid.NewString(),
		Title: title,
	})
	return true
}

func (c *Controller) RemoveChecklistItem(id string) bool {
	for i, it := range c.Draft.SubTasks {
		if it.ID == id {
			c.Draft.SubTasks = append(c.Draft.SubTasks[:i], c.Draft.SubTasks[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Controller) ToggleChecklistItem(id string) bool {
	for i := range c.Draft.SubTasks {
		if c.Draft.SubTasks[i].ID == id {
			c.Draft.SubTasks[i].IsCompleted = !c.Draft.SubTasks[i].IsCompleted
			return true
		}
	}
	return false
}

// AddCollaborator appends name as typed. Duplicates are allowed.
func (c *Controller) AddCollaborator(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	c.Draft.Collaborators = append(c.Draft.Collaborators, name)
	return true
}

// RemoveCollaborator removes the first entry equal to name
func (c *Controller) RemoveCollaborator(name string) bool {
	for i, n := range c.Draft.Collaborators {
		if n == name {
			c.Draft.Collaborators = append(c.Draft.Collaborators[:i], c.Draft.Collaborators[i+1:]...)
			return true
		}
	}
	return false
}

// StartBreakdown enters the loading state and returns the request to send
// along with the token FinishBreakdown expects back.
func (c *Controller) StartBreakdown() (advisor.BreakdownRequest, uint64, error) {
	if c.closed {
		return advisor.BreakdownRequest{}, 0, ErrClosed
	}
	if strings.TrimSpace(c.Draft.Title) == "" {
		return advisor.BreakdownRequest{}, 0, ErrTitleRequired
	}
	if c.loading {
		return advisor.BreakdownRequest{}, 0, ErrBreakdownPending
	}
	c.loading = true
	req := advisor.BreakdownRequest{
		Title:       c.Draft.Title,
		Description: c.Draft.Description,
		Category:    c.Draft.Category,
		DueDate:     c.Draft.DueDate,
	}
	return req, c.gen.Next(), nil
}

// FinishBreakdown applies a breakdown result. It returns false when token is
// stale, in which case nothing changes.
func (c *Controller) FinishBreakdown(token uint64, b *advisor.Breakdown) bool {
	if !c.gen.IsCurrent(token) {
		return false
	}
	c.loading = false
	if b == nil {
		return true
	}
	for _, title := range b.SubTasks {
		c.Draft.SubTasks = append(c.Draft.SubTasks, models.ChecklistItem{
			ID:    uuid.NewString(),
			Title: title,
		})
	}
	if c.Draft.Description == "" {
		c.Draft.Description = b.Summary()
	}
	return true
}

// CancelBreakdown leaves the loading state; a late reply is then ignored
func (c *Controller) CancelBreakdown() {
	c.loading = false
	c.gen.Invalidate()
}

// RequestBreakdown runs a breakdown to completion on the calling goroutine
func (c *Controller) RequestBreakdown(ctx context.Context, b advisor.Breakdowner) error {
	req, tok, err := c.StartBreakdown()
	if err != nil {
		return err
	}
	c.FinishBreakdown(tok, b.BreakdownTask(ctx, req))
	return nil
}

// Submit validates the draft and returns the task to store.
// On success the controller is closed.
func (c *Controller) Submit(now time.Time) (models.Task, error) {
	if c.closed {
		return models.Task{}, ErrClosed
	}
	if strings.TrimSpace(c.Draft.Title) == "" {
		return models.Task{}, ErrTitleRequired
	}
	if c.Draft.DueDate.IsZero() {
		return models.Task{}, ErrDueDateRequired
	}

	var t models.Task
	switch c.mode {
	case ModeEdit:
		t = c.original.Clone()
	default:
		t = models.Task{
			ID:        uuid.NewString(),
			CreatedAt: now,
		}
	}
	t.Title = c.Draft.Title
	t.Description = c.Draft.Description
	t.Priority = c.Draft.Priority
	t.Category = c.Draft.Category
	t.DueDate = c.Draft.DueDate
	t.SubTasks = append([]models.ChecklistItem(nil), c.Draft.SubTasks...)
	t.Collaborators = append([]string(nil), c.Draft.Collaborators...)

	c.closed = true
	c.CancelBreakdown()
	return t, nil
}

// Close abandons the form without saving
func (c *Controller) Close() {
	c.closed = true
	c.CancelBreakdown()
}
