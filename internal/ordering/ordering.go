package ordering

import (
	"fmt"
	"sort"

	"dshbd-cli/internal/model"
)

// List is one partition of a board in display order.
// Operations mutate Tasks and the tasks themselves; they never fail.
type List struct {
	Key   model.PartitionKey
	Tasks []*model.Task
}

// NewList builds a list for key from tasks, ordered by current position.
// Tasks that belong to another partition are ignored.
func NewList(key model.PartitionKey, tasks []*model.Task) *List {
	out := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t == nil || t.Key() != key {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return &List{Key: key, Tasks: out}
}

// FromBoard returns the list for one status of b.
func FromBoard(b *model.Board, status model.Status) *List {
	if b == nil {
		return &List{Key: model.PartitionKey{Status: status}}
	}
	return NewList(model.PartitionKey{BoardID: b.ID, Status: status}, b.Tasks)
}

func (l *List) Len() int { return len(l.Tasks) }

// Index returns the index of the task with id, or -1.
func (l *List) Index(id int64) int {
	for i, t := range l.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func clamp(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// Reorder moves the element at from to to within the list.
// Both indices are clamped to [0, len-1]. The returned tasks are those whose
// position changed.
func (l *List) Reorder(from, to int) []*model.Task {
	n := len(l.Tasks)
	if n == 0 {
		return nil
	}
	from = clamp(from, n)
	to = clamp(to, n)
	if from != to {
		moved := l.Tasks[from]
		rest := make([]*model.Task, 0, n-1)
		rest = append(rest, l.Tasks[:from]...)
		rest = append(rest, l.Tasks[from+1:]...)
		final := make([]*model.Task, 0, n)
		final = append(final, rest[:to]...)
		final = append(final, moved)
		final = append(final, rest[to:]...)
		l.Tasks = final
	}
	return l.Renumber()
}

// MoveToEdge moves the element at from to the head (toEnd=false) or tail of the list.
func (l *List) MoveToEdge(from int, toEnd bool) []*model.Task {
	to := 0
	if toEnd {
		to = len(l.Tasks) - 1
	}
	return l.Reorder(from, to)
}

// Transfer removes the element at from and inserts it into dst at to.
// to is clamped to [0, len(dst)]. The moved task takes dst's partition key.
// Changed tasks from both lists are returned; the moved task is always first.
func (l *List) Transfer(dst *List, from, to int) []*model.Task {
	if dst == nil || dst == l {
		return l.Reorder(from, to)
	}
	if len(l.Tasks) == 0 {
		return nil
	}
	from = clamp(from, len(l.Tasks))
	moved := l.Tasks[from]
	l.Tasks = append(l.Tasks[:from:from], l.Tasks[from+1:]...)

	moved.Status = dst.Key.Status
	if dst.Key.BoardID != 0 {
		moved.BoardID = dst.Key.BoardID
	}
	// Invalidate so the moved task is reported even if its index matches the old one.
	moved.Position = -1
	changed := dst.insert(moved, to)
	rest := l.Renumber()

	out := make([]*model.Task, 0, len(changed)+len(rest))
	out = append(out, moved)
	for _, t := range changed {
		if t != moved {
			out = append(out, t)
		}
	}
	return append(out, rest...)
}

// Insert places a task that is not yet in any list at index to (clamped to [0, len]).
// The task takes the list's partition key.
func (l *List) Insert(t *model.Task, to int) []*model.Task {
	if t == nil {
		return nil
	}
	t.Status = l.Key.Status
	if l.Key.BoardID != 0 {
		t.BoardID = l.Key.BoardID
	}
	t.Position = -1
	return l.insert(t, to)
}

func (l *List) insert(t *model.Task, to int) []*model.Task {
	if to < 0 {
		to = 0
	}
	if to > len(l.Tasks) {
		to = len(l.Tasks)
	}
	final := make([]*model.Task, 0, len(l.Tasks)+1)
	final = append(final, l.Tasks[:to]...)
	final = append(final, t)
	final = append(final, l.Tasks[to:]...)
	l.Tasks = final
	return l.Renumber()
}

// Remove takes the task with id out of the list and closes the gap.
func (l *List) Remove(id int64) (*model.Task, []*model.Task) {
	i := l.Index(id)
	if i < 0 {
		return nil, nil
	}
	t := l.Tasks[i]
	l.Tasks = append(l.Tasks[:i:i], l.Tasks[i+1:]...)
	return t, l.Renumber()
}

// Renumber assigns positions 0..n-1 in list order and returns the tasks that changed.
func (l *List) Renumber() []*model.Task {
	var changed []*model.Task
	for i, t := range l.Tasks {
		if t.Position != i {
			t.Position = i
			changed = append(changed, t)
		}
	}
	return changed
}

// PartitionError reports tasks whose positions are not the dense sequence 0..n-1,
// or tasks found in a list of another partition.
type PartitionError struct {
	Key       model.PartitionKey
	Positions []int
	Foreign   []int64
}

func (e *PartitionError) Error() string {
	if len(e.Foreign) > 0 {
		return fmt.Sprintf("partition %s holds tasks of another partition: %v", e.Key, e.Foreign)
	}
	return fmt.Sprintf("partition %s positions not dense: %v", e.Key, e.Positions)
}

// Check verifies the list is a consistent partition: every task carries the list's
// key and positions are exactly 0..n-1 in list order.
func (l *List) Check() *PartitionError {
	var foreign []int64
	dense := true
	positions := make([]int, 0, len(l.Tasks))
	for i, t := range l.Tasks {
		positions = append(positions, t.Position)
		if t.Key() != l.Key {
			foreign = append(foreign, t.ID)
		}
		if t.Position != i {
			dense = false
		}
	}
	if len(foreign) == 0 && dense {
		return nil
	}
	return &PartitionError{Key: l.Key, Positions: positions, Foreign: foreign}
}

// Partitions returns one list per known status of b, in model.Statuses order.
func Partitions(b *model.Board) []*List {
	out := make([]*List, 0, len(model.Statuses))
	for _, st := range model.Statuses {
		out = append(out, FromBoard(b, st))
	}
	return out
}

// Normalize renumbers every partition of b and returns the tasks that changed.
func Normalize(b *model.Board) []*model.Task {
	var changed []*model.Task
	for _, l := range Partitions(b) {
		changed = append(changed, l.Renumber()...)
	}
	return changed
}
