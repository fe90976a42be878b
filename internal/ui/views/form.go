package views

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/tgienger/academiaflow/internal/advisor"
	"github.com/tgienger/academiaflow/internal/form"
	"github.com/tgienger/academiaflow/internal/models"
	"github.com/tgienger/academiaflow/internal/ui/keys"
	"github.com/tgienger/academiaflow/internal/ui/styles"
)

// FormField is the focused part of the task form
type FormField int

const (
	FieldTitle FormField = iota
	FieldDescription
	FieldPriority
	FieldCategory
	FieldDueDate
	FieldBreakdown
	FieldChecklist
	FieldCollaborators
	FieldSave
	fieldCount
)

// FormSubmittedMsg carries a validated task out of the form
type FormSubmittedMsg struct {
	Task models.Task
	Mode form.Mode
}

// FormCancelledMsg is sent when the form is closed without saving
type FormCancelledMsg struct{}

// BreakdownDoneMsg is the reply to a breakdown started from the form
type BreakdownDoneMsg struct {
	Token  uint64
	Result *advisor.Breakdown
}

var errBadDate = errors.New("due date must be YYYY-MM-DD")

// FormView is the modal create/edit form
type FormView struct {
	ctrl        *form.Controller
	breakdowner advisor.Breakdowner
	styles      *styles.Styles
	keys        keys.KeyMap
	now         func() time.Time

	width  int
	height int

	focus     FormField
	title     textinput.Model
	desc      textarea.Model
	due       textinput.Model
	stepInput textinput.Model
	peerInput textinput.Model
	spinner   spinner.Model

	stepCursor int
	peerCursor int
	err        string

	// cancelled when the form closes so an in-flight breakdown is abandoned
	ctx    context.Context
	cancel context.CancelFunc
}

// NewFormView builds the form around ctrl. now supplies the creation time on submit.
func NewFormView(ctrl *form.Controller, b advisor.Breakdowner, s *styles.Styles, k keys.KeyMap, now func() time.Time) *FormView {
	title := textinput.New()
	title.Placeholder = "e.g., Organic Chemistry Lab Report"
	title.CharLimit = 200
	title.SetValue(ctrl.Draft.Title)

	desc := textarea.New()
	desc.Placeholder = "Add assignment details, requirements, or links..."
	desc.CharLimit = 2000
	desc.SetWidth(50)
	desc.SetHeight(3)
	desc.ShowLineNumbers = false
	desc.SetValue(ctrl.Draft.Description)

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD"
	due.CharLimit = 10
	due.SetValue(ctrl.Draft.DueDate.String())

	step := textinput.New()
	step.Placeholder = "Add a step..."
	step.CharLimit = 200

	peer := textinput.New()
	peer.Placeholder = "Invite peer (e.g. John Doe)..."
	peer.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Secondary)

	ctx, cancel := context.WithCancel(context.Background())
	v := &FormView{
		ctrl:        ctrl,
		breakdowner: b,
		styles:      s,
		keys:        k,
		now:         now,
		title:       title,
		desc:        desc,
		due:         due,
		stepInput:   step,
		peerInput:   peer,
		spinner:     sp,
		ctx:         ctx,
		cancel:      cancel,
	}
	v.updateFocus()
	return v
}

func (v *FormView) Init() tea.Cmd {
	return textinput.Blink
}

// Controller exposes the underlying draft controller
func (v *FormView) Controller() *form.Controller { return v.ctrl }

func (v *FormView) Focus() FormField { return v.focus }

// Err returns the inline validation message, if any
func (v *FormView) Err() string { return v.err }

func (v *FormView) SetSize(width, height int) {
	v.width = width
	v.height = height
	inputWidth := clamp(styles.ContentWidth(width)-16, 20, 60)
	v.desc.SetWidth(inputWidth)
	v.title.Width = inputWidth
	v.stepInput.Width = inputWidth - 4
	v.peerInput.Width = inputWidth - 4
}

// Close abandons the form and cancels any in-flight breakdown
func (v *FormView) Close() {
	v.cancel()
	v.ctrl.Close()
}

// Update handles a message while the form is open
func (v *FormView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case BreakdownDoneMsg:
		if !v.ctrl.FinishBreakdown(msg.Token, msg.Result) {
			return nil
		}
		if msg.Result == nil {
			v.err = "AI breakdown is unavailable right now"
			return nil
		}
		v.err = ""
		v.desc.SetValue(v.ctrl.Draft.Description)
		return nil

	case spinner.TickMsg:
		// let the tick loop die once loading ends
		if !v.ctrl.Loading() {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		return v.updateKeys(msg)
	}
	return nil
}

func (v *FormView) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.Close()
		return func() tea.Msg { return FormCancelledMsg{} }

	case key.Matches(msg, v.keys.Save):
		return v.submit()

	case key.Matches(msg, v.keys.Tab):
		v.cycleFocus(1)
		return nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.cycleFocus(-1)
		return nil
	}

	switch v.focus {
	case FieldTitle:
		if msg.Type == tea.KeyEnter {
			v.cycleFocus(1)
			return nil
		}
		var cmd tea.Cmd
		v.title, cmd = v.title.Update(msg)
		v.ctrl.Draft.Title = v.title.Value()
		return cmd

	case FieldDescription:
		var cmd tea.Cmd
		v.desc, cmd = v.desc.Update(msg)
		v.ctrl.Draft.Description = v.desc.Value()
		return cmd

	case FieldPriority:
		switch {
		case key.Matches(msg, v.keys.Left):
			v.ctrl.Draft.Priority = v.ctrl.Draft.Priority.Prev()
		case key.Matches(msg, v.keys.Right):
			v.ctrl.Draft.Priority = v.ctrl.Draft.Priority.Next()
		case msg.Type == tea.KeyEnter:
			v.cycleFocus(1)
		}
		return nil

	case FieldCategory:
		switch {
		case key.Matches(msg, v.keys.Left):
			v.ctrl.Draft.Category = v.ctrl.Draft.Category.Prev()
		case key.Matches(msg, v.keys.Right):
			v.ctrl.Draft.Category = v.ctrl.Draft.Category.Next()
		case msg.Type == tea.KeyEnter:
			v.cycleFocus(1)
		}
		return nil

	case FieldDueDate:
		if msg.Type == tea.KeyEnter {
			v.cycleFocus(1)
			return nil
		}
		var cmd tea.Cmd
		v.due, cmd = v.due.Update(msg)
		v.syncDueDate()
		return cmd

	case FieldBreakdown:
		if msg.Type == tea.KeyEnter || msg.String() == " " {
			return v.startBreakdown()
		}
		return nil

	case FieldChecklist:
		return v.updateChecklist(msg)

	case FieldCollaborators:
		return v.updateCollaborators(msg)

	case FieldSave:
		if msg.Type == tea.KeyEnter {
			return v.submit()
		}
	}
	return nil
}

func (v *FormView) updateChecklist(msg tea.KeyMsg) tea.Cmd {
	items := v.ctrl.Draft.SubTasks
	switch {
	case msg.Type == tea.KeyEnter:
		if v.ctrl.AddChecklistItem(v.stepInput.Value()) {
			v.stepInput.Reset()
			v.stepCursor = len(v.ctrl.Draft.SubTasks) - 1
		}
		return nil
	case msg.Type == tea.KeyUp:
		if v.stepCursor > 0 {
			v.stepCursor--
		}
		return nil
	case msg.Type == tea.KeyDown:
		if v.stepCursor < len(items)-1 {
			v.stepCursor++
		}
		return nil
	case key.Matches(msg, v.keys.Remove):
		if v.stepCursor < len(items) {
			v.ctrl.RemoveChecklistItem(items[v.stepCursor].ID)
			v.stepCursor = clamp(v.stepCursor, 0, max(len(v.ctrl.Draft.SubTasks)-1, 0))
		}
		return nil
	case key.Matches(msg, v.keys.Check):
		if v.stepCursor < len(items) {
			v.ctrl.ToggleChecklistItem(items[v.stepCursor].ID)
		}
		return nil
	}
	var cmd tea.Cmd
	v.stepInput, cmd = v.stepInput.Update(msg)
	return cmd
}

func (v *FormView) updateCollaborators(msg tea.KeyMsg) tea.Cmd {
	peers := v.ctrl.Draft.Collaborators
	switch {
	case msg.Type == tea.KeyEnter:
		if v.ctrl.AddCollaborator(v.peerInput.Value()) {
			v.peerInput.Reset()
			v.peerCursor = len(v.ctrl.Draft.Collaborators) - 1
		}
		return nil
	case msg.Type == tea.KeyUp:
		if v.peerCursor > 0 {
			v.peerCursor--
		}
		return nil
	case msg.Type == tea.KeyDown:
		if v.peerCursor < len(peers)-1 {
			v.peerCursor++
		}
		return nil
	case key.Matches(msg, v.keys.Remove):
		if v.peerCursor < len(peers) {
			v.ctrl.RemoveCollaborator(peers[v.peerCursor])
			v.peerCursor = clamp(v.peerCursor, 0, max(len(v.ctrl.Draft.Collaborators)-1, 0))
		}
		return nil
	}
	var cmd tea.Cmd
	v.peerInput, cmd = v.peerInput.Update(msg)
	return cmd
}

func (v *FormView) syncDueDate() {
	d, err := models.ParseDate(v.due.Value())
	if err != nil {
		v.ctrl.Draft.DueDate = models.Date{}
		return
	}
	v.ctrl.Draft.DueDate = d
}

func (v *FormView) startBreakdown() tea.Cmd {
	req, tok, err := v.ctrl.StartBreakdown()
	switch {
	case errors.Is(err, form.ErrBreakdownPending):
		return nil
	case err != nil:
		v.err = errorText(err)
		return nil
	}
	if v.breakdowner == nil {
		v.ctrl.FinishBreakdown(tok, nil)
		v.err = "AI breakdown is unavailable right now"
		return nil
	}
	v.err = ""
	ctx, b := v.ctx, v.breakdowner
	return tea.Batch(
		v.spinner.Tick,
		func() tea.Msg {
			return BreakdownDoneMsg{Token: tok, Result: b.BreakdownTask(ctx, req)}
		},
	)
}

func (v *FormView) submit() tea.Cmd {
	v.ctrl.Draft.Title = v.title.Value()
	v.ctrl.Draft.Description = v.desc.Value()
	v.syncDueDate()
	if strings.TrimSpace(v.due.Value()) != "" && v.ctrl.Draft.DueDate.IsZero() && strings.TrimSpace(v.title.Value()) != "" {
		v.err = errorText(errBadDate)
		return nil
	}

	task, err := v.ctrl.Submit(v.now())
	if err != nil {
		v.err = errorText(err)
		return nil
	}
	v.cancel()
	mode := v.ctrl.Mode()
	return func() tea.Msg { return FormSubmittedMsg{Task: task, Mode: mode} }
}

func errorText(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (v *FormView) cycleFocus(dir int) {
	v.focus = FormField((int(v.focus) + dir + int(fieldCount)) % int(fieldCount))
	v.updateFocus()
}

func (v *FormView) updateFocus() {
	v.title.Blur()
	v.desc.Blur()
	v.due.Blur()
	v.stepInput.Blur()
	v.peerInput.Blur()

	switch v.focus {
	case FieldTitle:
		v.title.Focus()
	case FieldDescription:
		v.desc.Focus()
	case FieldDueDate:
		v.due.Focus()
	case FieldChecklist:
		v.stepInput.Focus()
	case FieldCollaborators:
		v.peerInput.Focus()
	}
}

// View renders the form as a centered modal
func (v *FormView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-12, 24, 64)

	field := func(f FormField) lipgloss.Style {
		if v.focus == f {
			return s.FieldFocused.Width(inputWidth)
		}
		return s.Field.Width(inputWidth)
	}

	heading := "New Academic Task"
	if v.ctrl.Mode() == form.ModeEdit {
		heading = "Edit Task"
	}

	aiLabel := "✦ AI Breakdown"
	if v.ctrl.Loading() {
		aiLabel = v.spinner.View() + " Generating..."
	}
	aiStyle := s.Button
	if v.focus == FieldBreakdown {
		aiStyle = s.ButtonFocused
	}
	saveStyle := s.Button
	if v.focus == FieldSave {
		saveStyle = s.ButtonFocused
	}
	saveLabel := " Create Task "
	if v.ctrl.Mode() == form.ModeEdit {
		saveLabel = " Update Task "
	}

	parts := []string{
		s.Title.Render(heading),
		"",
		"Title:",
		field(FieldTitle).Render(v.title.View()),
		"Details:",
		field(FieldDescription).Render(v.desc.View()),
		"Priority:",
		field(FieldPriority).Render(v.renderPriorities()),
		"Category:",
		field(FieldCategory).Render(v.renderCategories()),
		"Due Date:",
		field(FieldDueDate).Render(v.due.View()),
		aiStyle.Render(aiLabel),
		"Checklist:",
		field(FieldChecklist).Render(v.renderChecklist(inputWidth - 4)),
		"Collaborators:",
		field(FieldCollaborators).Render(v.renderCollaborators(inputWidth - 4)),
		saveStyle.Render(saveLabel),
	}
	if v.err != "" {
		parts = append(parts, s.Error.Render(v.err))
	}
	parts = append(parts, v.renderFormHelp())

	modal := s.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		modal,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *FormView) renderPriorities() string {
	var opts []string
	for _, p := range models.AllPriorities() {
		opts = append(opts, v.option(p.String(), styles.PriorityColor(p), p == v.ctrl.Draft.Priority))
	}
	return strings.Join(opts, " ")
}

func (v *FormView) renderCategories() string {
	var opts []string
	for _, c := range models.AllCategories() {
		opts = append(opts, v.option(c.String(), styles.CategoryColor(c), c == v.ctrl.Draft.Category))
	}
	return strings.Join(opts, " ")
}

func (v *FormView) option(label string, color lipgloss.Color, selected bool) string {
	if selected {
		return lipgloss.NewStyle().Foreground(color).Bold(true).Render("[" + label + "]")
	}
	return v.styles.TitleMuted.Render(" " + label + " ")
}

func (v *FormView) renderChecklist(width int) string {
	var lines []string
	for i, it := range v.ctrl.Draft.SubTasks {
		box := "[ ] "
		if it.IsCompleted {
			box = "[x] "
		}
		line := ansi.Truncate(box+it.Title, width, "…")
		if v.focus == FieldChecklist && i == v.stepCursor {
			line = v.styles.ListSelected.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "+ "+v.stepInput.View())
	return strings.Join(lines, "\n")
}

func (v *FormView) renderCollaborators(width int) string {
	var lines []string
	for i, name := range v.ctrl.Draft.Collaborators {
		line := ansi.Truncate("@ "+name, width, "…")
		if v.focus == FieldCollaborators && i == v.peerCursor {
			line = v.styles.ListSelected.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "+ "+v.peerInput.View())
	return strings.Join(lines, "\n")
}

func (v *FormView) renderFormHelp() string {
	var items []string
	for _, b := range v.keys.FormHelp() {
		h := b.Help()
		items = append(items, v.styles.HelpKey.Render(h.Key)+" "+v.styles.HelpDesc.Render(h.Desc))
	}
	return v.styles.Help.Render(strings.Join(items, " • "))
}
