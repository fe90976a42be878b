package ui

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/tgienger/academiaflow/internal/advisor"
	"github.com/tgienger/academiaflow/internal/db"
	"github.com/tgienger/academiaflow/internal/filter"
	"github.com/tgienger/academiaflow/internal/models"
	"github.com/tgienger/academiaflow/internal/store"
	"github.com/tgienger/academiaflow/internal/ui/views"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

var fixedNow = time.Date(2025, 10, 18, 12, 0, 0, 0, time.Local)

type fakeAdvisor struct {
	mu              sync.Mutex
	advice          string
	adviceCalls     int
	breakdown       *advisor.Breakdown
	block           bool
	breakdownCtxErr error
}

func (f *fakeAdvisor) Advice(context.Context, []models.Task) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adviceCalls++
	return f.advice
}

func (f *fakeAdvisor) BreakdownTask(ctx context.Context, _ advisor.BreakdownRequest) *advisor.Breakdown {
	if f.block {
		<-ctx.Done()
		f.mu.Lock()
		f.breakdownCtxErr = ctx.Err()
		f.mu.Unlock()
		return nil
	}
	return f.breakdown
}

func (f *fakeAdvisor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adviceCalls
}

func newTestApp(t *testing.T, adv *fakeAdvisor, prefs PrefsStore) *App {
	t.Helper()
	st := store.New(nil)
	st.Seed(store.SampleTasks(fixedNow))
	a := NewApp(Options{
		Store:          st,
		Advisor:        adv,
		Prefs:          prefs,
		AdviceDebounce: time.Millisecond,
		Now:            func() time.Time { return fixedNow },
	})
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return a
}

// drain runs cmd and returns the messages it produces, expanding batches.
// Commands that do not finish quickly (cursor blink timers) are skipped.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, drain(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

// pump feeds msg to the app and keeps delivering whatever the resulting
// commands produce, skipping spinner frames
func pump(a *App, msg tea.Msg) {
	queue := []tea.Msg{msg}
	for i := 0; len(queue) > 0 && i < 50; i++ {
		next := queue[0]
		queue = queue[1:]
		if _, ok := next.(spinner.TickMsg); ok {
			continue
		}
		_, cmd := a.Update(next)
		queue = append(queue, drain(cmd)...)
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(a *App, msgs ...tea.KeyMsg) {
	for _, m := range msgs {
		pump(a, m)
	}
}

func TestView_ShowsSamplesAndSidebar(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{advice: "Start with the project."}, nil)
	out := a.View()
	for _, want := range []string{"AcademiaFlow", "Total Tasks", "Submit CS301 Database Project", "Psychology 101 Midterm", "AI STUDY ADVISOR", initialAdvice} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}

func TestInit_DebouncedAdviceRefresh(t *testing.T) {
	adv := &fakeAdvisor{advice: "Focus on CS301 first."}
	a := newTestApp(t, adv, nil)

	cmd := a.Init()
	if cmd == nil {
		t.Fatalf("expected a debounced refresh on startup")
	}
	for _, m := range drain(cmd) {
		pump(a, m)
	}
	if adv.calls() != 1 {
		t.Fatalf("expected one advice call, got %d", adv.calls())
	}
	if a.advice != "Focus on CS301 first." || a.refreshing {
		t.Fatalf("advice not applied: %q refreshing=%v", a.advice, a.refreshing)
	}
}

func TestDebounce_OnlyLatestTickFires(t *testing.T) {
	adv := &fakeAdvisor{advice: "x"}
	a := newTestApp(t, adv, nil)

	a.scheduleAdvice()
	stale := a.adviceSeq
	a.scheduleAdvice()

	if _, cmd := a.Update(adviceTickMsg{seq: stale}); cmd != nil {
		t.Fatalf("superseded timer must not refresh")
	}
	if _, cmd := a.Update(adviceTickMsg{seq: a.adviceSeq}); cmd == nil {
		t.Fatalf("latest timer should refresh")
	}
}

func TestAdvice_StaleGenerationDropped(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)

	a.refreshAdvice(false)
	a.refreshAdvice(false)

	a.Update(adviceMsg{token: 1, text: "old"})
	if a.advice == "old" || !a.refreshing {
		t.Fatalf("stale advice applied")
	}
	a.Update(adviceMsg{token: 2, text: "new"})
	if a.advice != "new" || a.refreshing {
		t.Fatalf("current advice not applied: %q", a.advice)
	}
}

func TestAdvice_OnDemandIgnoredWhileRefreshing(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)
	a.refreshing = true
	if _, cmd := a.Update(keyRunes("r")); cmd != nil {
		t.Fatalf("refresh must be ignored while one is running")
	}
}

func TestAdvice_SkippedForEmptyCollection(t *testing.T) {
	adv := &fakeAdvisor{advice: "x"}
	a := NewApp(Options{Store: store.New(nil), Advisor: adv, AdviceDebounce: time.Millisecond})
	if cmd := a.Init(); cmd != nil {
		t.Fatalf("no refresh expected for an empty collection")
	}
	if _, cmd := a.Update(keyRunes("r")); cmd != nil {
		t.Fatalf("on-demand refresh must skip an empty collection")
	}
}

func TestCreateTaskThroughForm(t *testing.T) {
	adv := &fakeAdvisor{advice: "new advice"}
	a := newTestApp(t, adv, nil)

	press(a, keyRunes("n"))
	if a.formView == nil {
		t.Fatalf("form should be open")
	}
	press(a, keyRunes("q"))
	if a.formView == nil {
		t.Fatalf("typing q in the form must not quit or close it")
	}
	press(a, tea.KeyMsg{Type: tea.KeyBackspace}, keyRunes("Essay on Kant"), tea.KeyMsg{Type: tea.KeyCtrlS})

	if a.formView != nil {
		t.Fatalf("form should close after save")
	}
	tasks := a.store.List()
	if len(tasks) != 3 || tasks[0].Title != "Essay on Kant" {
		t.Fatalf("new task not prepended: %+v", tasks[0])
	}
	if tasks[0].DueDate != models.DateOf(fixedNow) || tasks[0].IsCompleted {
		t.Fatalf("unexpected defaults: %+v", tasks[0])
	}
	if adv.calls() == 0 || a.advice != "new advice" {
		t.Fatalf("size change should trigger an advice refresh")
	}
}

func TestFormValidationKeepsFormOpen(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)
	press(a, keyRunes("n"), tea.KeyMsg{Type: tea.KeyCtrlS})
	if a.formView == nil {
		t.Fatalf("form must stay open without a title")
	}
	if !strings.Contains(a.View(), "Title is required") {
		t.Fatalf("expected inline error:\n%s", a.View())
	}
	press(a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.formView != nil || a.store.Len() != 2 {
		t.Fatalf("esc should cancel without saving")
	}
}

func TestEditKeepsPositionAndIdentity(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)
	before := a.store.List()

	press(a, keyRunes("e"), keyRunes(" (final)"), tea.KeyMsg{Type: tea.KeyCtrlS})

	after := a.store.List()
	if len(after) != 2 || after[0].ID != before[0].ID {
		t.Fatalf("edit must keep order and id")
	}
	if after[0].Title != before[0].Title+" (final)" {
		t.Fatalf("unexpected title %q", after[0].Title)
	}
	if !after[0].CreatedAt.Equal(before[0].CreatedAt) {
		t.Fatalf("createdAt changed")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)
	target, _ := a.grid.Selected()

	press(a, keyRunes("d"))
	if !a.confirmingDelete || !strings.Contains(a.View(), "Delete Task?") {
		t.Fatalf("expected confirm modal")
	}
	press(a, keyRunes("n"))
	if a.store.Len() != 2 {
		t.Fatalf("declined delete removed a task")
	}

	press(a, keyRunes("d"), keyRunes("y"))
	if a.store.Len() != 1 {
		t.Fatalf("confirmed delete did not remove the task")
	}
	if _, ok := a.store.Get(target.ID); ok {
		t.Fatalf("wrong task deleted")
	}
}

func TestToggleCompletion(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)
	target, _ := a.grid.Selected()

	press(a, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	got, _ := a.store.Get(target.ID)
	if !got.IsCompleted {
		t.Fatalf("space should complete the selected task")
	}
	if len(a.Visible()) != 2 {
		t.Fatalf("All Tasks keeps completed tasks visible")
	}
}

func TestSidebarSelectionIsPersisted(t *testing.T) {
	d, err := db.Open(db.Memory)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	a := newTestApp(t, &fakeAdvisor{}, d)
	// All Tasks, Today, Upcoming
	press(a, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if a.selection.Window != filter.WindowUpcoming {
		t.Fatalf("expected upcoming, got %s", a.selection.Window)
	}

	again := newTestApp(t, &fakeAdvisor{}, d)
	if again.selection.Window != filter.WindowUpcoming {
		t.Fatalf("selection not restored: %s", again.selection.Window)
	}
}

func TestCompletedWindowEmptyState(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)
	a.selectEntry(views.SidebarEntry{IsWindow: true, Window: filter.WindowCompleted})
	if !strings.Contains(a.View(), "No tasks found in this view") {
		t.Fatalf("expected empty state:\n%s", a.View())
	}
}

func TestSearchFiltersLive(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)
	press(a, keyRunes("/"), keyRunes("psych"))
	vis := a.Visible()
	if len(vis) != 1 || vis[0].Title != "Psychology 101 Midterm" {
		t.Fatalf("unexpected search result: %+v", vis)
	}
	press(a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.focus != focusGrid || a.search.Value() != "psych" {
		t.Fatalf("esc should leave the search but keep the query")
	}
}

func TestHelpPopup(t *testing.T) {
	a := newTestApp(t, &fakeAdvisor{}, nil)
	press(a, keyRunes("?"))
	if !strings.Contains(a.View(), "Keyboard Shortcuts") {
		t.Fatalf("help popup not shown")
	}
	press(a, keyRunes("x"))
	if a.showHelp {
		t.Fatalf("any key should close help")
	}
}

func TestBreakdownFromForm(t *testing.T) {
	adv := &fakeAdvisor{breakdown: &advisor.Breakdown{
		SubTasks:       []string{"Outline", "Draft"},
		EstimatedHours: 4,
		ProTip:         "Start early.",
	}}
	a := newTestApp(t, adv, nil)
	press(a, keyRunes("e"))
	for a.formView.Focus() != views.FieldBreakdown {
		press(a, tea.KeyMsg{Type: tea.KeyTab})
	}
	press(a, tea.KeyMsg{Type: tea.KeyEnter})

	draft := a.formView.Controller().Draft
	if n := len(draft.SubTasks); n != 4 {
		t.Fatalf("expected 2 existing + 2 generated items, got %d", n)
	}
	if draft.SubTasks[3].Title != "Draft" {
		t.Fatalf("generated items not appended: %+v", draft.SubTasks)
	}
}

func TestClosingFormCancelsBreakdown(t *testing.T) {
	adv := &fakeAdvisor{block: true}
	a := newTestApp(t, adv, nil)
	press(a, keyRunes("e"))
	for a.formView.Focus() != views.FieldBreakdown {
		press(a, tea.KeyMsg{Type: tea.KeyTab})
	}

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !a.formView.Controller().Loading() {
		t.Fatalf("breakdown should be in flight")
	}
	done := make(chan []tea.Msg, 1)
	go func() { done <- drainAll(cmd) }()

	press(a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.formView != nil {
		t.Fatalf("esc should close the form")
	}

	select {
	case msgs := <-done:
		for _, m := range msgs {
			pump(a, m)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("breakdown request was not cancelled")
	}
	adv.mu.Lock()
	defer adv.mu.Unlock()
	if adv.breakdownCtxErr == nil {
		t.Fatalf("expected the request context to be cancelled")
	}
	if a.store.Len() != 2 {
		t.Fatalf("late breakdown must not touch the collection")
	}
}

// drainAll is drain without the timeout, for commands known to finish
func drainAll(cmd tea.Cmd) []tea.Msg {
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			if c != nil {
				out = append(out, drainAll(c)...)
			}
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestBreakdownReplyFromClosedFormIgnoredByNextForm(t *testing.T) {
	adv := &fakeAdvisor{block: true}
	a := newTestApp(t, adv, nil)

	press(a, keyRunes("n"), keyRunes("Essay"))
	for a.formView.Focus() != views.FieldBreakdown {
		press(a, tea.KeyMsg{Type: tea.KeyTab})
	}
	_, first := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if first == nil {
		t.Fatalf("first breakdown should start")
	}
	press(a, tea.KeyMsg{Type: tea.KeyEsc})

	press(a, keyRunes("n"), keyRunes("Lab"))
	for a.formView.Focus() != views.FieldBreakdown {
		press(a, tea.KeyMsg{Type: tea.KeyTab})
	}
	if _, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatalf("second breakdown should start")
	}
	ctrl := a.formView.Controller()

	var late views.BreakdownDoneMsg
	found := false
	for _, m := range drainAll(first) {
		if msg, ok := m.(views.BreakdownDoneMsg); ok {
			late, found = msg, true
		}
	}
	if !found {
		t.Fatalf("closed form's request did not finish")
	}
	// a reply that won the race against cancellation
	late.Result = &advisor.Breakdown{SubTasks: []string{"step from Essay"}, EstimatedHours: 2, ProTip: "old"}
	a.Update(late)

	if !ctrl.Loading() {
		t.Fatalf("reply from the closed form ended the open form's request")
	}
	if len(ctrl.Draft.SubTasks) != 0 || ctrl.Draft.Description != "" {
		t.Fatalf("reply from the closed form was applied: %+v", ctrl.Draft)
	}
	if _, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatalf("a second breakdown must not start while one is pending")
	}

	press(a, tea.KeyMsg{Type: tea.KeyEsc})
}
