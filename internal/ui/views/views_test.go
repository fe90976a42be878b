package views

import (
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/tgienger/academiaflow/internal/filter"
	"github.com/tgienger/academiaflow/internal/models"
	"github.com/tgienger/academiaflow/internal/ui/styles"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestCollaboratorInitials(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"Sam"}, "(S)"},
		{[]string{"Sam", "alex", "Jo"}, "(S) (a) (J)"},
		{[]string{"Sam", "Alex", "Jo", "Kim", "Lee"}, "(S) (A) (J) +2"},
		{[]string{"Élodie"}, "(É)"},
	}
	for _, tt := range tests {
		got := strings.Join(CollaboratorInitials(tt.names), " ")
		if got != tt.want {
			t.Fatalf("CollaboratorInitials(%v) = %q, want %q", tt.names, got, tt.want)
		}
	}
}

func TestDescriptionLines(t *testing.T) {
	if got := descriptionLines("   ", 20); got != nil {
		t.Fatalf("blank description should render nothing, got %q", got)
	}
	if got := descriptionLines("short note", 20); len(got) != 1 || got[0] != "short note" {
		t.Fatalf("short description = %q", got)
	}
	long := strings.Repeat("lorem ipsum dolor ", 10)
	if got := descriptionLines(long, 20); len(got) != 2 {
		t.Fatalf("long description should be cut to 2 lines, got %d", len(got))
	}
}

func TestRenderCard_ShowsBadgesChecklistAndOverdue(t *testing.T) {
	today := models.MustParseDate("2025-10-18")
	task := models.Task{
		ID:          "t1",
		Title:       "Lab Report",
		Description: "Write up titration results",
		Priority:    models.PriorityHigh,
		Category:    models.CategoryLab,
		DueDate:     today.AddDays(-1),
		SubTasks: []models.ChecklistItem{
			{ID: "a", Title: "Collect data", IsCompleted: true},
			{ID: "b", Title: "Write discussion"},
		},
		Collaborators: []string{"Sam", "Alex"},
	}

	out := RenderCard(styles.NewStyles(), task, today, 60, false)
	for _, want := range []string{
		"○ Lab Report",
		"Write up titration results",
		"[HIGH]",
		"[LAB]",
		"CHECKLIST 1/2",
		"• Write discussion",
		"Due 2025-10-17 · Overdue",
		"(S) (A)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("card missing %q:\n%s", want, out)
		}
	}
	if w := lipgloss.Width(out); w != 60 {
		t.Fatalf("card width = %d, want 60", w)
	}

	task.IsCompleted = true
	out = RenderCard(styles.NewStyles(), task, today, 60, false)
	if strings.Contains(out, "Overdue") {
		t.Fatalf("completed task must not be overdue:\n%s", out)
	}
	if !strings.Contains(out, "● Lab Report") {
		t.Fatalf("completed marker missing:\n%s", out)
	}
}

func TestRenderCard_CapsChecklist(t *testing.T) {
	task := models.Task{Title: "Thesis", DueDate: models.MustParseDate("2025-12-01")}
	for _, title := range []string{"one", "two", "three", "four", "five", "six"} {
		task.SubTasks = append(task.SubTasks, models.ChecklistItem{ID: title, Title: title})
	}
	out := RenderCard(styles.NewStyles(), task, models.MustParseDate("2025-10-18"), 50, true)
	if !strings.Contains(out, "+2 more") {
		t.Fatalf("expected overflow line:\n%s", out)
	}
	if strings.Contains(out, "• five") {
		t.Fatalf("fifth item should be hidden:\n%s", out)
	}
}

func TestTaskGridView_EmptyAndNavigation(t *testing.T) {
	g := NewTaskGridView(styles.NewStyles())
	g.SetSize(80, 20)
	today := models.MustParseDate("2025-10-18")

	if !strings.Contains(g.View(today), "No tasks found in this view") {
		t.Fatalf("empty state missing")
	}
	if _, ok := g.Selected(); ok {
		t.Fatalf("empty grid has no selection")
	}

	var tasks []models.Task
	for _, id := range []string{"a", "b", "c"} {
		tasks = append(tasks, models.Task{ID: id, Title: "Task " + id, DueDate: today})
	}
	g.SetTasks(tasks)
	if g.Columns() != 2 {
		t.Fatalf("columns = %d, want 2", g.Columns())
	}

	g.MoveRight()
	if sel, _ := g.Selected(); sel.ID != "b" {
		t.Fatalf("after right selected %q", sel.ID)
	}
	g.MoveRight()
	if sel, _ := g.Selected(); sel.ID != "b" {
		t.Fatalf("right at row end moved to %q", sel.ID)
	}
	g.MoveLeft()
	g.MoveDown()
	if sel, _ := g.Selected(); sel.ID != "c" {
		t.Fatalf("after down selected %q", sel.ID)
	}

	g.SetTasks(tasks[:1])
	if sel, _ := g.Selected(); sel.ID != "a" {
		t.Fatalf("cursor not clamped, selected %q", sel.ID)
	}

	g.SetTasks(tasks)
	g.Select("c")
	if sel, _ := g.Selected(); sel.ID != "c" {
		t.Fatalf("Select picked %q", sel.ID)
	}

	g.SetSize(40, 20)
	if g.Columns() != 1 {
		t.Fatalf("narrow grid should use one column")
	}
}

func TestSidebarEntryApply(t *testing.T) {
	exam := filter.OnlyCategory(models.CategoryExam)
	entries := SidebarEntries()
	if len(entries) != len(filter.AllWindows())+len(models.AllCategories()) {
		t.Fatalf("unexpected entry count %d", len(entries))
	}

	byLabel := map[string]SidebarEntry{}
	for _, e := range entries {
		byLabel[e.Label] = e
	}

	tests := []struct {
		name  string
		entry string
		in    Selection
		want  Selection
	}{
		{
			name:  "all tasks resets category",
			entry: "All Tasks",
			in:    Selection{Window: filter.WindowCompleted, Category: exam},
			want:  Selection{Window: filter.WindowAll, Category: filter.AnyCategory()},
		},
		{
			name:  "window keeps category",
			entry: "Upcoming",
			in:    Selection{Window: filter.WindowAll, Category: exam},
			want:  Selection{Window: filter.WindowUpcoming, Category: exam},
		},
		{
			name:  "category keeps window",
			entry: models.CategoryPaper.String(),
			in:    Selection{Window: filter.WindowToday, Category: exam},
			want:  Selection{Window: filter.WindowToday, Category: filter.OnlyCategory(models.CategoryPaper)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := byLabel[tt.entry]
			if !ok {
				t.Fatalf("no sidebar entry %q", tt.entry)
			}
			if got := e.Apply(tt.in); got != tt.want {
				t.Fatalf("Apply = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSidebarView_MarksActiveEntries(t *testing.T) {
	v := NewSidebarView(styles.NewStyles())
	sel := Selection{Window: filter.WindowToday, Category: filter.OnlyCategory(models.CategoryExam)}
	out := v.View(sel, 7, 30)

	for _, want := range []string{"AcademiaFlow", "NAVIGATION", "CATEGORIES", "▸ Today", "Total Tasks", "7"} {
		if !strings.Contains(out, want) {
			t.Fatalf("sidebar missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "▸ All Tasks") {
		t.Fatalf("All Tasks should not be marked active:\n%s", out)
	}

	v.MoveUp()
	if v.Current().Label != "All Tasks" {
		t.Fatalf("cursor moved above first entry")
	}
	for range 20 {
		v.MoveDown()
	}
	if v.Current().Category != models.CategoryOther {
		t.Fatalf("cursor should stop on last category, got %q", v.Current().Label)
	}
}

func TestRenderMarkdown(t *testing.T) {
	if RenderMarkdown("  ", 40) != "" {
		t.Fatalf("blank markdown should render empty")
	}
	out := RenderMarkdown("Focus on **CS301** first.", 40)
	if !strings.Contains(out, "CS301") {
		t.Fatalf("rendered markdown lost content: %q", out)
	}
}
