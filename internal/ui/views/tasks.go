package views

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/tgienger/academiaflow/internal/models"
	"github.com/tgienger/academiaflow/internal/ui/styles"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

const (
	// below this grid width cards stack in one column
	twoColumnWidth = 64
	maxChecklist   = 4
	maxAvatars     = 3
)

// TaskGridView shows the filtered tasks as a grid of cards
type TaskGridView struct {
	styles *styles.Styles
	tasks  []models.Task

	width   int
	height  int
	cursor  int
	scrollY int // first visible row
	focused bool
}

func NewTaskGridView(s *styles.Styles) *TaskGridView {
	return &TaskGridView{styles: s, focused: true}
}

// SetTasks replaces the visible tasks, keeping the cursor in range
func (v *TaskGridView) SetTasks(tasks []models.Task) {
	v.tasks = tasks
	if v.cursor >= len(v.tasks) {
		v.cursor = max(0, len(v.tasks)-1)
	}
}

func (v *TaskGridView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *TaskGridView) SetFocused(f bool) { v.focused = f }

// Selected returns the task under the cursor
func (v *TaskGridView) Selected() (models.Task, bool) {
	if len(v.tasks) == 0 {
		return models.Task{}, false
	}
	return v.tasks[v.cursor], true
}

// Select moves the cursor to the task with id, if visible
func (v *TaskGridView) Select(id string) {
	for i, t := range v.tasks {
		if t.ID == id {
			v.cursor = i
			return
		}
	}
}

func (v *TaskGridView) Columns() int {
	if v.width >= twoColumnWidth {
		return 2
	}
	return 1
}

func (v *TaskGridView) MoveUp() {
	if v.cursor-v.Columns() >= 0 {
		v.cursor -= v.Columns()
	}
}

func (v *TaskGridView) MoveDown() {
	if v.cursor+v.Columns() < len(v.tasks) {
		v.cursor += v.Columns()
	}
}

func (v *TaskGridView) MoveLeft() {
	if v.cursor%v.Columns() > 0 {
		v.cursor--
	}
}

func (v *TaskGridView) MoveRight() {
	if v.cursor%v.Columns() < v.Columns()-1 && v.cursor < len(v.tasks)-1 {
		v.cursor++
	}
}

// View renders the grid, scrolled so the selected card is visible
func (v *TaskGridView) View(today models.Date) string {
	s := v.styles
	if len(v.tasks) == 0 {
		empty := lipgloss.JoinVertical(lipgloss.Center,
			s.TaskTitle.Render("No tasks found in this view"),
			s.TitleMuted.Render("Try changing filters or adding a new task!"),
		)
		return lipgloss.Place(max(v.width, 1), max(v.height, 3), lipgloss.Center, lipgloss.Center, empty)
	}

	cols := v.Columns()
	cardWidth := max((v.width-cols)/cols, 20)

	var rows []string
	for start := 0; start < len(v.tasks); start += cols {
		var cards []string
		for i := start; i < min(start+cols, len(v.tasks)); i++ {
			selected := v.focused && i == v.cursor
			cards = append(cards, RenderCard(s, v.tasks[i], today, cardWidth, selected))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	v.ensureVisible(rows, v.cursor/cols)

	var visible []string
	used := 0
	for i := v.scrollY; i < len(rows); i++ {
		h := lipgloss.Height(rows[i])
		if used > 0 && v.height > 0 && used+h > v.height {
			break
		}
		visible = append(visible, rows[i])
		used += h
	}
	return lipgloss.JoinVertical(lipgloss.Left, visible...)
}

func (v *TaskGridView) ensureVisible(rows []string, cursorRow int) {
	if cursorRow < v.scrollY {
		v.scrollY = cursorRow
	}
	if v.height <= 0 {
		return
	}
	for v.scrollY < cursorRow {
		used := 0
		for i := v.scrollY; i <= cursorRow; i++ {
			used += lipgloss.Height(rows[i])
		}
		if used <= v.height {
			break
		}
		v.scrollY++
	}
}

// RenderCard draws one task card of the given outer width
func RenderCard(s *styles.Styles, t models.Task, today models.Date, width int, selected bool) string {
	box := s.Card
	switch {
	case selected:
		box = s.CardSelected
	case t.IsCompleted:
		box = s.CardDone
	}
	inner := max(width-box.GetHorizontalFrameSize(), 10)

	marker := "○ "
	titleStyle := s.TaskTitle
	if t.IsCompleted {
		marker = "● "
		titleStyle = s.TaskDone
	}
	lines := []string{titleStyle.Render(ansi.Truncate(marker+t.Title, inner, "…"))}

	for _, l := range descriptionLines(t.Description, inner) {
		lines = append(lines, s.TitleMuted.Render(l))
	}

	lines = append(lines, "",
		badge(s, strings.ToUpper(t.Priority.String()), styles.PriorityColor(t.Priority))+
			badge(s, strings.ToUpper(t.Category.String()), styles.CategoryColor(t.Category)))

	if len(t.SubTasks) > 0 {
		lines = append(lines, "", s.TitleMuted.Render(fmt.Sprintf("CHECKLIST %d/%d", t.CompletedSubTasks(), len(t.SubTasks))))
		for i, st := range t.SubTasks {
			if i == maxChecklist {
				lines = append(lines, s.TitleMuted.Render(fmt.Sprintf("  +%d more", len(t.SubTasks)-maxChecklist)))
				break
			}
			item := ansi.Truncate("• "+st.Title, inner, "…")
			if st.IsCompleted {
				item = s.TaskDone.Render(item)
			}
			lines = append(lines, item)
		}
	}

	lines = append(lines, "", footer(s, t, today, inner))

	return box.Width(width - box.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

func badge(s *styles.Styles, text string, color lipgloss.Color) string {
	return s.Badge.Foreground(color).Render("[" + text + "]")
}

// descriptionLines wraps text to width and keeps at most two lines
func descriptionLines(text string, width int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	wrapped := strings.Split(ansi.Wrap(text, width, " -"), "\n")
	if len(wrapped) <= 2 {
		return wrapped
	}
	return []string{wrapped[0], ansi.Truncate(wrapped[1]+" "+wrapped[2], width, "…")}
}

func footer(s *styles.Styles, t models.Task, today models.Date, width int) string {
	due := "Due " + t.DueDate.String()
	if t.IsOverdue(today) {
		due = s.Overdue.Render(due + " · Overdue")
	} else {
		due = s.TitleMuted.Render(due)
	}

	avatars := strings.Join(CollaboratorInitials(t.Collaborators), " ")
	if avatars == "" {
		return due
	}
	avatars = s.Avatar.Render(avatars)
	gap := width - lipgloss.Width(due) - lipgloss.Width(avatars)
	if gap < 1 {
		return due + "\n" + avatars
	}
	return due + strings.Repeat(" ", gap) + avatars
}

// CollaboratorInitials returns the first letter of the first three names,
// followed by +N for the rest
func CollaboratorInitials(names []string) []string {
	var out []string
	for i, n := range names {
		if i == maxAvatars {
			out = append(out, fmt.Sprintf("+%d", len(names)-maxAvatars))
			break
		}
		r, _ := utf8.DecodeRuneInString(n)
		if r == utf8.RuneError {
			r = '?'
		}
		out = append(out, "("+string(r)+")")
	}
	return out
}
