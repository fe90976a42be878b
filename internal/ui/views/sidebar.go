package views

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/academiaflow/internal/filter"
	"github.com/tgienger/academiaflow/internal/models"
	"github.com/tgienger/academiaflow/internal/ui/styles"
)

// Selection is the part of the filter chosen from the sidebar
type Selection struct {
	Window   filter.Window
	Category filter.CategorySelector
}

// SidebarEntry is one selectable sidebar line
type SidebarEntry struct {
	Label    string
	IsWindow bool
	Window   filter.Window
	Category models.Category
}

// Apply returns sel with this entry chosen. All Tasks also clears the category.
func (e SidebarEntry) Apply(sel Selection) Selection {
	if e.IsWindow {
		sel.Window = e.Window
		if e.Window == filter.WindowAll {
			sel.Category = filter.AnyCategory()
		}
		return sel
	}
	sel.Category = filter.OnlyCategory(e.Category)
	return sel
}

func (e SidebarEntry) active(sel Selection) bool {
	if e.IsWindow {
		return sel.Window == e.Window
	}
	c, ok := sel.Category.Category()
	return ok && c == e.Category
}

// SidebarEntries lists navigation windows first, then categories
func SidebarEntries() []SidebarEntry {
	var out []SidebarEntry
	for _, w := range filter.AllWindows() {
		out = append(out, SidebarEntry{Label: w.Label(), IsWindow: true, Window: w})
	}
	for _, c := range models.AllCategories() {
		out = append(out, SidebarEntry{Label: c.String(), Category: c})
	}
	return out
}

// SidebarView is the navigation column
type SidebarView struct {
	styles  *styles.Styles
	entries []SidebarEntry
	cursor  int
	focused bool
}

func NewSidebarView(s *styles.Styles) *SidebarView {
	return &SidebarView{styles: s, entries: SidebarEntries()}
}

func (v *SidebarView) SetFocused(f bool) { v.focused = f }
func (v *SidebarView) Focused() bool     { return v.focused }

func (v *SidebarView) MoveUp() {
	if v.cursor > 0 {
		v.cursor--
	}
}

func (v *SidebarView) MoveDown() {
	if v.cursor < len(v.entries)-1 {
		v.cursor++
	}
}

// Current returns the entry under the cursor
func (v *SidebarView) Current() SidebarEntry {
	return v.entries[v.cursor]
}

// View renders the sidebar for the active selection
func (v *SidebarView) View(sel Selection, total, height int) string {
	s := v.styles

	lines := []string{s.Title.Render("AcademiaFlow")}
	lines = append(lines, s.SidebarHeading.Render("NAVIGATION"))
	for i, e := range v.entries {
		if i == len(filter.AllWindows()) {
			lines = append(lines, s.SidebarHeading.Render("CATEGORIES"))
		}
		lines = append(lines, v.renderEntry(i, e, sel))
	}
	lines = append(lines, s.CountBox.Render(
		s.TitleMuted.Render("Total Tasks")+"\n"+s.TaskTitle.Render(strconv.Itoa(total)),
	))

	box := s.Sidebar
	if v.focused {
		box = s.SidebarFocused
	}
	if height > 2 {
		box = box.Height(height - 2)
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (v *SidebarView) renderEntry(i int, e SidebarEntry, sel Selection) string {
	s := v.styles
	marker := "  "
	if e.active(sel) {
		marker = "▸ "
	}
	label := e.Label
	if !e.IsWindow {
		dot := lipgloss.NewStyle().Foreground(styles.CategoryColor(e.Category)).Render("●")
		label = dot + " " + label
	}

	switch {
	case v.focused && i == v.cursor:
		return s.ListSelected.Render(marker + label)
	case e.active(sel):
		return s.ListActive.Render(marker + label)
	default:
		return s.ListItem.Render(marker + label)
	}
}
