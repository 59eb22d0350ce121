package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dshbd-cli/internal/bus"
	"dshbd-cli/internal/model"
	"dshbd-cli/internal/session"
	"dshbd-cli/internal/tags"
)

type editorFocus int

const (
	focusTitle editorFocus = iota
	focusDescription
)

// editor is the task pane. It follows the hub's ActiveTask and turns every
// change of its inputs into an update request.
type editor struct {
	sess  *session.Session
	keys  keyMap
	title textinput.Model
	desc  textarea.Model
	focus editorFocus

	// taskID is the task the inputs were loaded from.
	taskID      int64
	suggestions []string
	md          preview

	width, height int
	subs          bus.Group
}

func newEditor(sess *session.Session, keys keyMap) *editor {
	e := &editor{sess: sess, keys: keys}

	e.title = textinput.New()
	e.title.Placeholder = "Title"
	e.title.Prompt = ""
	e.title.CharLimit = 0

	e.desc = textarea.New()
	e.desc.Placeholder = "Description (markdown, #tags)…"
	e.desc.CharLimit = 0
	e.desc.ShowLineNumbers = false
	e.desc.SetWidth(72)
	e.desc.SetHeight(10)

	hub := sess.Hub()
	e.subs.Add(
		hub.ActiveTask.Subscribe(func(t *model.Task) {
			if t == nil {
				e.taskID = 0
				return
			}
			if t.ID != e.taskID {
				e.load(t)
			}
		}),
		hub.EditorOpen.Subscribe(func(open bool) {
			if !open {
				e.title.Blur()
				e.desc.Blur()
				e.suggestions = nil
			}
		}),
	)
	return e
}

func (e *editor) close() { e.subs.Close() }

func (e *editor) load(t *model.Task) {
	e.taskID = t.ID
	e.title.SetValue(t.Title)
	e.desc.SetValue(t.Description)
	e.suggestions = nil
	// New tasks start in the title.
	if t.Title == "" {
		e.setFocus(focusTitle)
	} else {
		e.setFocus(focusDescription)
	}
}

func (e *editor) setFocus(f editorFocus) tea.Cmd {
	e.focus = f
	if f == focusTitle {
		e.desc.Blur()
		return e.title.Focus()
	}
	e.title.Blur()
	return e.desc.Focus()
}

func (e *editor) resize(width, height int) {
	e.width, e.height = width, height
	w := width - 4
	if w < 20 {
		w = 20
	}
	e.title.Width = w
	e.desc.SetWidth(w)
	h := height - 10
	if h < 3 {
		h = 3
	}
	e.desc.SetHeight(h)
}

func (e *editor) readOnly() bool {
	t := e.sess.ActiveTask()
	return t == nil || t.Status == model.StatusDone
}

func (e *editor) update(msg tea.KeyMsg) tea.Cmd {
	t := e.sess.ActiveTask()
	if t == nil {
		return nil
	}
	switch {
	case key.Matches(msg, e.keys.NextField):
		if e.focus == focusTitle {
			return e.setFocus(focusDescription)
		}
		return e.setFocus(focusTitle)
	case key.Matches(msg, e.keys.CompleteTag):
		if e.readOnly() {
			return nil
		}
		e.completeTag()
		e.publish(t)
		return nil
	}
	if e.readOnly() {
		return nil
	}

	var cmd tea.Cmd
	if e.focus == focusTitle {
		e.title, cmd = e.title.Update(msg)
	} else {
		e.desc, cmd = e.desc.Update(msg)
	}
	e.publish(t)
	return cmd
}

// publish requests an update when the inputs differ from the task.
func (e *editor) publish(t *model.Task) {
	e.refreshSuggestions()
	title, desc := e.title.Value(), e.desc.Value()
	if title == t.Title && desc == t.Description {
		return
	}
	edit := *t.Clone()
	edit.Title = title
	edit.Description = desc
	e.sess.Hub().RequestUpdate(edit)
}

// cursor returns the input text and the cursor as a byte offset into it.
func (e *editor) cursor() (string, int) {
	if e.focus == focusTitle {
		text := e.title.Value()
		return text, runeOffset(text, e.title.Position())
	}
	text := e.desc.Value()
	lines := strings.Split(text, "\n")
	row := e.desc.Line()
	if row >= len(lines) {
		row = len(lines) - 1
	}
	off := 0
	for i := 0; i < row; i++ {
		off += len(lines[i]) + 1
	}
	li := e.desc.LineInfo()
	return text, off + runeOffset(lines[row], li.StartColumn+li.ColumnOffset)
}

func runeOffset(s string, runes int) int {
	off := 0
	for i := 0; i < runes && off < len(s); i++ {
		_, n := utf8.DecodeRuneInString(s[off:])
		off += n
	}
	return off
}

func (e *editor) refreshSuggestions() {
	text, off := e.cursor()
	_, partial, ok := tags.At(text, off)
	if !ok {
		e.suggestions = nil
		return
	}
	e.suggestions = e.sess.Tags().Suggest(partial)
}

// completeTag replaces the partial #tag before the cursor with the first suggestion.
func (e *editor) completeTag() {
	text, off := e.cursor()
	start, partial, ok := tags.At(text, off)
	if !ok {
		return
	}
	sug := e.sess.Tags().Suggest(partial)
	if len(sug) == 0 {
		return
	}
	if e.focus == focusTitle {
		out, next := tags.InsertAt(text, start, off, sug[0])
		e.title.SetValue(out)
		e.title.SetCursor(utf8.RuneCountInString(out[:next]))
		return
	}
	for i, n := 0, utf8.RuneCountInString(partial); i < n; i++ {
		e.desc, _ = e.desc.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	e.desc.InsertString(tags.Normalize(sug[0]) + " ")
}

func (e *editor) view() string {
	t := e.sess.ActiveTask()
	if t == nil {
		return styleMuted().Render("no task selected")
	}
	width := e.width
	if width <= 0 {
		width = 80
	}
	label := lipgloss.NewStyle().Bold(true)

	var b strings.Builder
	b.WriteString(truncate(taskMeta(t), width))
	b.WriteString("\n\n")
	b.WriteString(label.Render("Title"))
	b.WriteString("\n")
	if e.readOnly() {
		b.WriteString(truncate(t.Title, width))
	} else {
		b.WriteString(e.title.View())
	}
	b.WriteString("\n\n")
	b.WriteString(label.Render("Description"))
	b.WriteString("\n")
	switch {
	case e.focus == focusDescription && !e.readOnly():
		b.WriteString(e.desc.View())
	case strings.TrimSpace(t.Description) == "":
		b.WriteString(styleMuted().Render("(empty)"))
	default:
		b.WriteString(e.md.render(t.Description, width))
	}
	b.WriteString("\n")
	if len(e.suggestions) > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(colorTag).Render(strings.Join(e.suggestions, " ")))
		b.WriteString(styleMuted().Render("  " + e.keys.CompleteTag.Help().Key + " to complete"))
		b.WriteString("\n")
	}
	if e.readOnly() {
		b.WriteString(styleMuted().Render("done tasks are read-only"))
		b.WriteString("\n")
	}
	return b.String()
}

func taskMeta(t *model.Task) string {
	parts := []string{fmt.Sprintf("task-%d", t.ID), statusLabel(t.Status)}
	if t.Priority != 0 {
		parts = append(parts, fmt.Sprintf("P%d", t.Priority))
	}
	if t.DueDate != nil && *t.DueDate != "" {
		parts = append(parts, "due "+*t.DueDate)
	}
	if t.Assignee != nil && *t.Assignee != "" {
		parts = append(parts, "@"+*t.Assignee)
	}
	if ts := tags.Extract(t.Description); len(ts) > 0 {
		parts = append(parts, strings.Join(ts, " "))
	}
	return strings.Join(parts, glyphs.sep)
}
