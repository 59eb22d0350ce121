package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, Left, Right key.Binding

	New, Open, Close, Delete key.Binding

	MoveUp, MoveDown, StatusPrev, StatusNext key.Binding
	Top, Bottom                              key.Binding

	Search, Sort, Tag, Backlog key.Binding

	NextField, CompleteTag key.Binding

	Help, Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),

		New:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Delete: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete backlog task")),

		MoveUp:     key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("shift+↑", "move up")),
		MoveDown:   key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("shift+↓", "move down")),
		StatusPrev: key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("shift+←", "previous column")),
		StatusNext: key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("shift+→", "next column")),
		Top:        key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "to top")),
		Bottom:     key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "to bottom")),

		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle sort")),
		Tag:     key.NewBinding(key.WithKeys("#"), key.WithHelp("#", "cycle tag filter")),
		Backlog: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "toggle backlog")),

		NextField:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "title/description")),
		CompleteTag: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "complete #tag")),

		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.Open, k.MoveUp, k.StatusNext, k.Search, k.Backlog, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.New, k.Open, k.Close, k.Delete},
		{k.MoveUp, k.MoveDown, k.StatusPrev, k.StatusNext, k.Top, k.Bottom},
		{k.Search, k.Sort, k.Tag, k.Backlog},
		{k.NextField, k.CompleteTag, k.Help, k.Quit},
	}
}
