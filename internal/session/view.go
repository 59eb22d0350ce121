package session

import (
	"github.com/sirupsen/logrus"

	"dshbd-cli/internal/model"
	"dshbd-cli/internal/ordering"
)

// Move drops a task into status at index, as a drag-and-drop would.
func (s *Session) Move(id int64, status model.Status, index int) {
	s.hub.RequestStatus(id, status, &index)
}

// Nudge moves a task delta places within its own column.
func (s *Session) Nudge(id int64, delta int) {
	t, ok := s.Board().Find(id)
	if !ok {
		return
	}
	i := ordering.FromBoard(s.Board(), t.Status).Index(id) + delta
	if i < 0 {
		i = 0
	}
	s.hub.RequestStatus(id, t.Status, &i)
}

// MoveToEdge moves a task to the top or bottom of its column.
func (s *Session) MoveToEdge(id int64, toEnd bool) {
	t, ok := s.Board().Find(id)
	if !ok {
		return
	}
	i := 0
	if toEnd {
		i = len(s.Board().Partition(t.Status)) - 1
	}
	s.hub.RequestStatus(id, t.Status, &i)
}

// Open binds the editor to a task of the active board.
func (s *Session) Open(id int64) bool {
	t, ok := s.Board().Find(id)
	if !ok {
		return false
	}
	s.hub.ActiveTask.Set(t)
	s.hub.EditorOpen.Set(true)
	return true
}

// CloseEditor unbinds the editor. A new backlog task that was never edited and
// is still empty is deleted.
func (s *Session) CloseEditor() {
	t := s.hub.ActiveTask.Get()
	if t != nil && t.Status == model.StatusBacklog && t.Untouched() && t.Title == "" && t.Description == "" {
		s.hub.RequestDelete(t.ID)
	}
	s.hub.EditorOpen.Set(false)
	s.hub.ActiveTask.Set(nil)
}

func (s *Session) SetSearch(term string) {
	s.View.Update(func(v model.BoardView) model.BoardView { return v.WithSearch(term) })
}

func (s *Session) AddFilter(f model.Filter) {
	s.View.Update(func(v model.BoardView) model.BoardView { return v.AddFilter(f) })
}

func (s *Session) RemoveFilter(i int) {
	s.View.Update(func(v model.BoardView) model.BoardView { return v.RemoveFilter(i) })
}

func (s *Session) ToggleSort(f model.Field) {
	s.View.Update(func(v model.BoardView) model.BoardView { return v.ToggleSort(f) })
}

// SetTag sets the shared tag filter; the view follows it.
func (s *Session) SetTag(tag string) {
	s.hub.TagFilter.Set(tag)
}

// Doctor checks every partition of the active board. With fix, broken
// partitions are renumbered and the changed positions written.
func (s *Session) Doctor(fix bool) []*ordering.PartitionError {
	b := s.Board()
	if b == nil {
		return nil
	}
	var problems []*ordering.PartitionError
	for _, l := range ordering.Partitions(b) {
		if perr := l.Check(); perr != nil {
			s.log.WithFields(logrus.Fields{"partition": perr.Key.String(), "positions": perr.Positions}).Warn("partition is not dense")
			problems = append(problems, perr)
		}
	}
	if fix && len(problems) > 0 {
		changed := ordering.Normalize(b)
		s.adapter.SavePositions(values(changed))
		s.touched(b)
	}
	return problems
}
