// Package tui is the interactive board: columns of tasks, a task editor and a
// search line, all driven through the session's request streams.
package tui

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"dshbd-cli/internal/bus"
	"dshbd-cli/internal/model"
	"dshbd-cli/internal/projection"
	"dshbd-cli/internal/session"
)

type Model struct {
	sess   *session.Session
	poster *Poster
	keys   keyMap
	help   help.Model
	editor *editor

	search    textinput.Model
	searching bool

	showBacklog bool
	col, row    int
	// selID keeps the selection on the same task across moves and re-sorts.
	selID int64

	width, height int
	notice        *session.Notice
	subs          bus.Group
}

// New builds the model. poster must be the Poster the session posts through.
func New(sess *session.Session, poster *Poster) *Model {
	m := &Model{
		sess:   sess,
		poster: poster,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
	m.editor = newEditor(sess, m.keys)
	m.search = textinput.New()
	m.search.Prompt = "/"
	m.search.Placeholder = "search titles"

	hub := sess.Hub()
	m.subs.Add(
		sess.Notices.Subscribe(func(n session.Notice) { m.notice = &n }),
		hub.ActiveTask.Subscribe(func(t *model.Task) {
			if t == nil {
				return
			}
			m.selID = t.ID
			if t.Status == model.StatusBacklog && !m.showBacklog {
				m.showBacklog = true
			}
			if i := slices.Index(m.statuses(), t.Status); i >= 0 {
				m.col = i
			}
		}),
	)
	return m
}

// Close detaches the model and its editor from the session.
func (m *Model) Close() {
	m.subs.Close()
	m.editor.close()
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) statuses() []model.Status {
	if m.showBacklog {
		return model.Statuses
	}
	return model.ColumnStatuses
}

// columns is the projection restricted to the visible statuses.
func (m *Model) columns() []projection.Column {
	if m.sess.Board() == nil {
		return nil
	}
	visible := m.statuses()
	var out []projection.Column
	for _, c := range m.sess.Columns() {
		if slices.Contains(visible, c.Status) {
			out = append(out, c)
		}
	}
	return out
}

// selected resolves the selection against cols, preferring selID.
func (m *Model) selected(cols []projection.Column) *model.Task {
	if len(cols) == 0 {
		return nil
	}
	m.col = max(0, min(m.col, len(cols)-1))
	ts := cols[m.col].Tasks
	if len(ts) == 0 {
		m.row = 0
		return nil
	}
	for i := range ts {
		if ts[i].ID == m.selID {
			m.row = i
			return &ts[i]
		}
	}
	m.row = max(0, min(m.row, len(ts)-1))
	m.selID = ts[m.row].ID
	return &ts[m.row]
}

func (m *Model) typing() bool {
	return m.searching || m.sess.EditorOpen()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case wakeMsg:
		m.poster.Drain()
		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.editor.resize(editorWidth(msg.Width), msg.Height-3)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (!m.typing() && key.Matches(msg, m.keys.Quit)) {
			if m.sess.EditorOpen() {
				m.sess.CloseEditor()
			}
			return m, tea.Quit
		}
		m.notice = nil
		switch {
		case m.sess.EditorOpen():
			if key.Matches(msg, m.keys.Close) {
				m.sess.CloseEditor()
				return m, nil
			}
			return m, m.editor.update(msg)
		case m.searching:
			return m, m.updateSearch(msg)
		}
		return m, m.updateBoard(msg)
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.sess.SetSearch("")
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.sess.SetSearch(m.search.Value())
	return cmd
}

func (m *Model) updateBoard(msg tea.KeyMsg) tea.Cmd {
	cols := m.columns()
	t := m.selected(cols)
	hub := m.sess.Hub()

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Backlog):
		m.showBacklog = !m.showBacklog
		if m.showBacklog {
			m.col++
		} else {
			m.col--
		}
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.sess.ViewState().SearchTerm)
		m.search.CursorEnd()
		return m.search.Focus()
	case key.Matches(msg, m.keys.Sort):
		m.cycleSort()
	case key.Matches(msg, m.keys.Tag):
		m.cycleTag()
	case key.Matches(msg, m.keys.Close):
		m.sess.View.Set(model.BoardView{})
		m.sess.SetTag("")
		m.search.SetValue("")
	case len(cols) == 0:
	case key.Matches(msg, m.keys.Left):
		m.col = max(0, m.col-1)
		m.selID = 0
	case key.Matches(msg, m.keys.Right):
		m.col = min(len(cols)-1, m.col+1)
		m.selID = 0
	case key.Matches(msg, m.keys.New):
		hub.RequestCreate(model.Task{Status: cols[m.col].Status}, nil)
	case t == nil:
	case key.Matches(msg, m.keys.Up):
		m.moveRow(cols, -1)
	case key.Matches(msg, m.keys.Down):
		m.moveRow(cols, 1)
	case key.Matches(msg, m.keys.Open):
		m.sess.Open(t.ID)
	case key.Matches(msg, m.keys.Delete):
		hub.RequestDelete(t.ID)
	case key.Matches(msg, m.keys.MoveUp):
		m.sess.Nudge(t.ID, -1)
	case key.Matches(msg, m.keys.MoveDown):
		m.sess.Nudge(t.ID, 1)
	case key.Matches(msg, m.keys.Top):
		m.sess.MoveToEdge(t.ID, false)
	case key.Matches(msg, m.keys.Bottom):
		m.sess.MoveToEdge(t.ID, true)
	case key.Matches(msg, m.keys.StatusPrev):
		m.shift(cols, t, -1)
	case key.Matches(msg, m.keys.StatusNext):
		m.shift(cols, t, 1)
	}
	return nil
}

func (m *Model) moveRow(cols []projection.Column, delta int) {
	ts := cols[m.col].Tasks
	m.row = max(0, min(len(ts)-1, m.row+delta))
	m.selID = ts[m.row].ID
}

// shift moves t to the head of the neighbouring column and follows it.
func (m *Model) shift(cols []projection.Column, t *model.Task, delta int) {
	to := m.col + delta
	if to < 0 || to >= len(cols) {
		return
	}
	m.sess.Hub().RequestStatus(t.ID, cols[to].Status, nil)
	m.col = to
	m.selID = t.ID
}

// cycleSort steps through each sortable field ascending then descending, then no sort.
func (m *Model) cycleSort() {
	v := m.sess.ViewState()
	fields := model.SortableFields
	switch {
	case v.Sort == nil:
		m.sess.ToggleSort(fields[0])
	case v.Sort.Direction == model.Asc:
		m.sess.ToggleSort(v.Sort.Field)
	default:
		if i := slices.Index(fields, v.Sort.Field); i >= 0 && i+1 < len(fields) {
			m.sess.ToggleSort(fields[i+1])
			return
		}
		m.sess.View.Update(func(v model.BoardView) model.BoardView {
			v.Sort = nil
			return v
		})
	}
}

// cycleTag steps the tag filter through every known tag, then clears it.
func (m *Model) cycleTag() {
	all := m.sess.Tags().All()
	i := slices.Index(all, m.sess.Hub().TagFilter.Get())
	next := ""
	if i+1 < len(all) {
		next = all[i+1]
	}
	m.sess.SetTag(next)
}

func (m *Model) View() string {
	width, height := m.width, m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 30
	}

	title := "dshbd"
	if b := m.sess.Board(); b != nil {
		title = b.Title
	}
	header := lipgloss.NewStyle().Bold(true).Render(title)
	if s := viewSummary(m.sess.ViewState()); s != "" {
		header += styleMuted().Render("  " + s)
	}

	footer := m.statusLine()
	if m.searching {
		footer = m.search.View()
	}
	helpView := m.help.View(m.keys)
	bodyH := height - 2 - lipgloss.Height(helpView)

	boardW := width
	var panel string
	if m.sess.EditorOpen() {
		edW := editorWidth(width)
		boardW = width - edW
		panel = normalizePane(m.editor.view(), edW, bodyH)
	}
	body := panel
	if boardW > 0 {
		cols := m.columns()
		m.selected(cols)
		body = renderColumns(cols, boardSelection{col: m.col, row: m.row}, boardW, bodyH)
		if panel != "" {
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, panel)
		}
	}
	return strings.Join([]string{
		truncate(header, width),
		body,
		truncate(footer, width),
		helpView,
	}, "\n")
}

// editorWidth is the width of the editor panel; narrow terminals give it everything.
func editorWidth(width int) int {
	if width < 100 {
		return width
	}
	return width * 2 / 5
}

func (m *Model) statusLine() string {
	if m.notice == nil {
		return ""
	}
	st := lipgloss.NewStyle().Foreground(colorWarn)
	if m.notice.Level <= logrus.ErrorLevel {
		st = lipgloss.NewStyle().Foreground(colorError)
	}
	return st.Render(m.notice.Message)
}

// Run shows the board until the user quits. sess must post through poster;
// callbacks arriving after the program exits stay queued for Handoff.
func Run(ctx context.Context, sess *session.Session, poster *Poster) error {
	applyColorProfilePreference()
	m := New(sess, poster)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	poster.Attach(func() { go p.Send(wakeMsg{}) })

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sess.Watch(watchCtx)

	_, err := p.Run()
	poster.Attach(nil)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
