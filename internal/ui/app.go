package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tgienger/academiaflow/internal/advisor"
	"github.com/tgienger/academiaflow/internal/db"
	"github.com/tgienger/academiaflow/internal/filter"
	"github.com/tgienger/academiaflow/internal/form"
	"github.com/tgienger/academiaflow/internal/models"
	"github.com/tgienger/academiaflow/internal/store"
	"github.com/tgienger/academiaflow/internal/ui/keys"
	"github.com/tgienger/academiaflow/internal/ui/styles"
	"github.com/tgienger/academiaflow/internal/ui/views"
)

const initialAdvice = "Loading academic insights..."

// Advisor is what the UI needs from the AI service
type Advisor interface {
	advisor.Breakdowner
	Advice(ctx context.Context, tasks []models.Task) string
}

// PrefsStore persists the sidebar selection between runs
type PrefsStore interface {
	LoadViewPrefs() (db.ViewPrefs, error)
	SaveViewPrefs(db.ViewPrefs) error
}

// Options wires the App to its collaborators
type Options struct {
	Store          *store.Store
	Advisor        Advisor
	Prefs          PrefsStore // optional
	Log            *zap.SugaredLogger
	AdviceDebounce time.Duration
	Now            func() time.Time
}

// focusArea is which part of the main screen takes keys
type focusArea int

const (
	focusGrid focusArea = iota
	focusSidebar
	focusSearch
)

// adviceTickMsg fires when a debounced refresh is due
type adviceTickMsg struct{ seq uint64 }

// adviceMsg carries the reply of one advice request
type adviceMsg struct {
	token uint64
	text  string
}

type statusMsg struct{ text string }

type App struct {
	store   *store.Store
	advisor Advisor
	prefs   PrefsStore
	log     *zap.SugaredLogger
	now     func() time.Time

	styles *styles.Styles
	keys   keys.KeyMap
	help   help.Model

	sidebar  *views.SidebarView
	grid     *views.TaskGridView
	formView *views.FormView
	search   textinput.Model
	spinner  spinner.Model

	selection views.Selection
	focus     focusArea
	width     int
	height    int

	advice         string
	refreshing     bool
	adviceGen      advisor.Generation
	breakdownGen   advisor.Generation // shared by every form this app opens
	adviceSeq      uint64
	adviceDebounce time.Duration
	lastCount      int

	confirmingDelete bool
	deleteTargetID   string
	deleteTargetName string
	showHelp         bool
	status           string

	// cancelled on quit so pending AI calls stop
	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the root model
func NewApp(opts Options) *App {
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Store == nil {
		opts.Store = store.New(opts.Log)
	}

	s := styles.NewStyles()

	search := textinput.New()
	search.Placeholder = "Search tasks..."
	search.CharLimit = 100
	search.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Secondary)

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		store:          opts.Store,
		advisor:        opts.Advisor,
		prefs:          opts.Prefs,
		log:            opts.Log,
		now:            opts.Now,
		styles:         s,
		keys:           keys.DefaultKeyMap(),
		help:           help.New(),
		sidebar:        views.NewSidebarView(s),
		grid:           views.NewTaskGridView(s),
		search:         search,
		spinner:        sp,
		selection:      views.Selection{Window: filter.WindowAll, Category: filter.AnyCategory()},
		advice:         initialAdvice,
		adviceDebounce: opts.AdviceDebounce,
		lastCount:      opts.Store.Len(),
		ctx:            ctx,
		cancel:         cancel,
	}

	if a.prefs != nil {
		p, err := a.prefs.LoadViewPrefs()
		if err != nil {
			a.log.Warnw("load view prefs", "error", err)
		} else {
			a.selection = views.Selection{Window: p.Window, Category: p.Category}
		}
	}
	a.refreshGrid()
	return a
}

func (a *App) Init() tea.Cmd {
	// same as a collection change on startup
	return a.scheduleAdvice()
}

func (a *App) today() models.Date {
	return models.DateOf(a.now())
}

func (a *App) criteria() filter.Criteria {
	return filter.Criteria{
		Query:    a.search.Value(),
		Category: a.selection.Category,
		Window:   a.selection.Window,
	}
}

// Visible returns the tasks currently shown in the grid
func (a *App) Visible() []models.Task {
	return filter.Apply(a.store.List(), a.criteria(), a.today())
}

func (a *App) refreshGrid() {
	a.grid.SetTasks(a.Visible())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.search.Width = clamp(a.mainWidth()-24, 10, 40)
		if a.formView != nil {
			a.formView.SetSize(msg.Width, msg.Height)
		}
		return a, nil

	case adviceTickMsg:
		if msg.seq != a.adviceSeq {
			return a, nil
		}
		return a, a.refreshAdvice(false)

	case adviceMsg:
		if !a.adviceGen.IsCurrent(msg.token) {
			return a, nil
		}
		a.refreshing = false
		a.advice = msg.text
		return a, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		if a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		if a.formView != nil {
			cmds = append(cmds, a.formView.Update(msg))
		}
		return a, tea.Batch(cmds...)

	case statusMsg:
		a.status = msg.text
		return a, nil

	case views.BreakdownDoneMsg:
		if a.formView != nil {
			return a, a.formView.Update(msg)
		}
		return a, nil

	case views.FormSubmittedMsg:
		a.formView = nil
		return a, a.saveTask(msg.Task, msg.Mode)

	case views.FormCancelledMsg:
		a.formView = nil
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if a.formView != nil {
				a.formView.Close()
			}
			a.cancel()
			return a, tea.Quit
		}

		if a.formView != nil {
			return a, a.formView.Update(msg)
		}

		// Any key closes the help popup
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		if a.confirmingDelete {
			return a.updateConfirmDelete(msg)
		}

		return a.updateNormal(msg)
	}

	return a, nil
}

func (a *App) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Don't process hotkeys while typing a search
	if a.focus == focusSearch {
		switch {
		case key.Matches(msg, a.keys.Back), key.Matches(msg, a.keys.Enter), key.Matches(msg, a.keys.Tab):
			a.search.Blur()
			a.setFocus(focusGrid)
			return a, nil
		default:
			var cmd tea.Cmd
			a.search, cmd = a.search.Update(msg)
			a.refreshGrid()
			return a, cmd
		}
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		a.cancel()
		return a, tea.Quit

	case key.Matches(msg, a.keys.Tab), key.Matches(msg, a.keys.ShiftTab):
		if a.focus == focusSidebar {
			a.setFocus(focusGrid)
		} else {
			a.setFocus(focusSidebar)
		}
		return a, nil

	case key.Matches(msg, a.keys.Search):
		a.setFocus(focusSearch)
		return a, a.search.Focus()

	case key.Matches(msg, a.keys.Up):
		if a.focus == focusSidebar {
			a.sidebar.MoveUp()
		} else {
			a.grid.MoveUp()
		}
		return a, nil

	case key.Matches(msg, a.keys.Down):
		if a.focus == focusSidebar {
			a.sidebar.MoveDown()
		} else {
			a.grid.MoveDown()
		}
		return a, nil

	case key.Matches(msg, a.keys.Left):
		if a.focus == focusGrid {
			a.grid.MoveLeft()
		}
		return a, nil

	case key.Matches(msg, a.keys.Right):
		if a.focus == focusGrid {
			a.grid.MoveRight()
		}
		return a, nil

	case key.Matches(msg, a.keys.Enter):
		if a.focus == focusSidebar {
			a.selectEntry(a.sidebar.Current())
			return a, nil
		}
		return a, a.openEdit()

	case key.Matches(msg, a.keys.New):
		return a, a.openForm(form.NewCreate(a.today()))

	case key.Matches(msg, a.keys.Edit):
		return a, a.openEdit()

	case key.Matches(msg, a.keys.Toggle):
		if t, ok := a.grid.Selected(); ok && a.focus == focusGrid {
			if _, err := a.store.Toggle(t.ID); err != nil {
				a.status = err.Error()
			}
			a.refreshGrid()
		}
		return a, nil

	case key.Matches(msg, a.keys.Delete):
		if t, ok := a.grid.Selected(); ok && a.focus == focusGrid {
			a.confirmingDelete = true
			a.deleteTargetID = t.ID
			a.deleteTargetName = t.Title
		}
		return a, nil

	case key.Matches(msg, a.keys.Refresh):
		return a, a.refreshAdvice(true)

	case key.Matches(msg, a.keys.Copy):
		return a, a.copyAdvice()

	case key.Matches(msg, a.keys.Help):
		a.showHelp = true
		return a, nil
	}

	return a, nil
}

func (a *App) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		a.confirmingDelete = false
		if err := a.store.Delete(a.deleteTargetID); err != nil {
			a.status = err.Error()
			return a, nil
		}
		a.status = fmt.Sprintf("Deleted %q", a.deleteTargetName)
		a.refreshGrid()
		return a, a.collectionChanged()
	case "n", "N", "esc":
		a.confirmingDelete = false
		return a, nil
	}
	return a, nil
}

func (a *App) setFocus(f focusArea) {
	a.focus = f
	a.sidebar.SetFocused(f == focusSidebar)
	a.grid.SetFocused(f == focusGrid)
}

func (a *App) selectEntry(e views.SidebarEntry) {
	a.selection = e.Apply(a.selection)
	a.refreshGrid()
	if a.prefs == nil {
		return
	}
	err := a.prefs.SaveViewPrefs(db.ViewPrefs{Window: a.selection.Window, Category: a.selection.Category})
	if err != nil {
		a.log.Warnw("save view prefs", "error", err)
	}
}

func (a *App) openEdit() tea.Cmd {
	t, ok := a.grid.Selected()
	if !ok || a.focus != focusGrid {
		return nil
	}
	return a.openForm(form.NewEdit(t))
}

func (a *App) openForm(ctrl *form.Controller) tea.Cmd {
	ctrl.ShareGeneration(&a.breakdownGen)
	a.formView = views.NewFormView(ctrl, a.advisor, a.styles, a.keys, a.now)
	a.formView.SetSize(a.width, a.height)
	a.status = ""
	return a.formView.Init()
}

func (a *App) saveTask(t models.Task, mode form.Mode) tea.Cmd {
	if mode == form.ModeEdit {
		if err := a.store.Update(t); err != nil {
			a.status = err.Error()
			return nil
		}
		a.refreshGrid()
		return nil
	}
	added := a.store.Add(t)
	a.refreshGrid()
	a.grid.Select(added.ID)
	return a.collectionChanged()
}

// collectionChanged restarts the advice debounce when the task count moved
func (a *App) collectionChanged() tea.Cmd {
	if a.store.Len() == a.lastCount {
		return nil
	}
	a.lastCount = a.store.Len()
	return a.scheduleAdvice()
}

// scheduleAdvice starts a new debounce window; an earlier pending tick becomes stale
func (a *App) scheduleAdvice() tea.Cmd {
	a.adviceSeq++
	if a.store.Len() == 0 || a.advisor == nil {
		return nil
	}
	seq := a.adviceSeq
	return tea.Tick(a.adviceDebounce, func(time.Time) tea.Msg {
		return adviceTickMsg{seq: seq}
	})
}

func (a *App) refreshAdvice(onDemand bool) tea.Cmd {
	if a.store.Len() == 0 || a.advisor == nil {
		return nil
	}
	if onDemand && a.refreshing {
		return nil
	}
	a.refreshing = true
	tok := a.adviceGen.Next()
	tasks := a.store.List()
	ctx, adv := a.ctx, a.advisor
	return tea.Batch(
		a.spinner.Tick,
		func() tea.Msg {
			return adviceMsg{token: tok, text: adv.Advice(ctx, tasks)}
		},
	)
}

func (a *App) copyAdvice() tea.Cmd {
	text := a.advice
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return statusMsg{text: "Failed to copy: " + err.Error()}
		}
		return statusMsg{text: "Copied advice to clipboard"}
	}
}

func (a *App) mainWidth() int {
	return max(styles.ContentWidth(a.width)-styles.SidebarWidth-3, 20)
}

func (a *App) View() string {
	if a.formView != nil {
		return a.formView.View()
	}
	if a.showHelp {
		return a.renderHelpPopup()
	}
	if a.confirmingDelete {
		return a.renderDeleteConfirm()
	}

	mainWidth := a.mainWidth()
	header := a.renderHeader(mainWidth)
	banner := a.renderBanner(mainWidth)
	footer := a.renderFooter(mainWidth)

	gridHeight := a.height - lipgloss.Height(header) - lipgloss.Height(banner) - lipgloss.Height(footer)
	a.grid.SetSize(mainWidth, max(gridHeight, 3))

	main := lipgloss.JoinVertical(lipgloss.Left,
		header,
		banner,
		a.grid.View(a.today()),
	)
	main = lipgloss.NewStyle().Width(mainWidth).Height(max(a.height-lipgloss.Height(footer), 0)).Render(main)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		a.sidebar.View(a.selection, a.store.Len(), a.height-lipgloss.Height(footer)),
		" ",
		main,
	)
	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, body, footer), a.width, a.height)
}

func (a *App) renderHeader(width int) string {
	s := a.styles
	searchStyle := s.Input
	if a.focus == focusSearch {
		searchStyle = s.InputFocused
	}
	searchBox := searchStyle.Width(clamp(width-20, 12, 44)).Render(a.search.View())
	addBtn := s.ButtonPrimary.Render("n  Add Task")
	gap := width - lipgloss.Width(searchBox) - lipgloss.Width(addBtn)
	if gap < 1 {
		return lipgloss.JoinVertical(lipgloss.Left, searchBox, addBtn)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, searchBox, strings.Repeat(" ", gap), addBtn)
}

func (a *App) renderBanner(width int) string {
	s := a.styles
	inner := max(width-s.Banner.GetHorizontalFrameSize(), 10)

	action := s.TitleMuted.Render("r Refresh Insights")
	body := views.RenderMarkdown(a.advice, inner)
	if a.refreshing {
		action = s.TitleMuted.Render("Analyzing...")
		body = a.spinner.View() + " " + s.TitleMuted.Render("Analyzing your schedule...")
	}
	title := s.BannerTitle.Render("✦ AI STUDY ADVISOR")
	gap := max(inner-lipgloss.Width(title)-lipgloss.Width(action), 1)

	return s.Banner.Width(width - s.Banner.GetHorizontalBorderSize()).Render(
		title + strings.Repeat(" ", gap) + action + "\n" + body,
	)
}

func (a *App) renderFooter(width int) string {
	a.help.Width = width
	line := a.help.View(a.keys)
	if a.status != "" {
		line = a.styles.StatusBar.Render(a.status) + "  " + line
	}
	return a.styles.Help.Render(line)
}

func (a *App) renderHelpPopup() string {
	s := a.styles
	contentWidth := styles.ContentWidth(a.width)

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Keyboard Shortcuts"),
		"",
		a.help.FullHelpView(a.keys.FullHelp()),
		"",
		s.TitleMuted.Render("Press any key to close"),
	)

	centered := lipgloss.Place(contentWidth, a.height,
		lipgloss.Center, lipgloss.Center,
		s.Modal.Render(content),
	)
	return styles.CenterView(centered, a.width, a.height)
}

func (a *App) renderDeleteConfirm() string {
	s := a.styles
	contentWidth := styles.ContentWidth(a.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Error.Render("Delete Task?"),
		"",
		s.TitleMuted.Render(strconv.Quote(a.deleteTargetName)+" will be removed permanently."),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, a.height,
		lipgloss.Center, lipgloss.Center,
		s.Modal.Render(content),
	)
	return styles.CenterView(centered, a.width, a.height)
}

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
