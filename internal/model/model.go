package model

import (
	"fmt"
	"sort"
	"strings"
)

type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusToDo       Status = "to-do"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every known status in board order (backlog first).
var Statuses = []Status{StatusBacklog, StatusToDo, StatusInProgress, StatusDone}

// ColumnStatuses are the statuses rendered as board columns; backlog lives in its own list.
var ColumnStatuses = []Status{StatusToDo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case "todo":
		st = StatusToDo
	case "doing", "inprogress":
		st = StatusInProgress
	}
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %q", s)
	}
	return st, nil
}

// PartitionKey identifies one ordered list of tasks: a status column of a board.
type PartitionKey struct {
	BoardID int64
	Status  Status
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%d/%s", k.BoardID, k.Status)
}

type Task struct {
	// ID is 0 until the collaborator assigns one on create.
	ID          int64   `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      Status  `json:"status"`
	Priority    int     `json:"priority"`
	DueDate     *string `json:"dueDate"`
	Assignee    *string `json:"assignee,omitempty"`
	Position    int     `json:"position"`
	BoardID     int64   `json:"boardId"`

	// Server-assigned ISO-8601 timestamps; never invented locally for persisted tasks.
	CreatedDate      string `json:"createdDate,omitempty"`
	LastModifiedDate string `json:"lastModifiedDate,omitempty"`
}

func (t Task) Persisted() bool { return t.ID != 0 }

func (t Task) Key() PartitionKey {
	return PartitionKey{BoardID: t.BoardID, Status: t.Status}
}

// EntityKey implements persist.Entity.
func (t Task) EntityKey() string { return fmt.Sprintf("task:%d", t.ID) }

// Untouched reports whether a persisted task was never modified after creation.
// Timestamps are compared up to the fractional second, matching how the server stamps them.
func (t Task) Untouched() bool {
	if !t.Persisted() || t.CreatedDate == "" {
		return false
	}
	return trimFraction(t.CreatedDate) == trimFraction(t.LastModifiedDate)
}

func trimFraction(ts string) string {
	if i := strings.LastIndex(ts, "."); i >= 0 {
		return ts[:i]
	}
	return ts
}

// Clone returns a deep copy (optional fields included).
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		v := *t.DueDate
		c.DueDate = &v
	}
	if t.Assignee != nil {
		v := *t.Assignee
		c.Assignee = &v
	}
	return &c
}

// ApplyFields copies the directly-editable fields of src onto t.
// Identity, partition (status/board) and position are left untouched.
func (t *Task) ApplyFields(src Task) {
	c := src.Clone()
	t.Title = c.Title
	t.Description = c.Description
	t.Priority = c.Priority
	t.DueDate = c.DueDate
	t.Assignee = c.Assignee
	if src.LastModifiedDate != "" {
		t.LastModifiedDate = src.LastModifiedDate
	}
}

type Board struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// Tasks is only authoritative for the active board.
	Tasks            []*Task `json:"tasks,omitempty"`
	CreatedDate      string  `json:"createdDate,omitempty"`
	LastModifiedDate string  `json:"lastModifiedDate,omitempty"`
	Archived         bool    `json:"archived"`
	ToDoLimit        int     `json:"toDoLimit"`
	ProgressLimit    int     `json:"progressLimit"`
	AutoPull         bool    `json:"autoPull"`
}

const (
	DefaultBoardTitle    = "Life Board"
	DefaultToDoLimit     = 5
	DefaultProgressLimit = 2
)

// Find returns the task with the given id (pointer into Tasks).
func (b *Board) Find(id int64) (*Task, bool) {
	if b == nil || id == 0 {
		return nil, false
	}
	for _, t := range b.Tasks {
		if t != nil && t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Partition returns the tasks of one status in position order.
func (b *Board) Partition(status Status) []*Task {
	if b == nil {
		return nil
	}
	out := make([]*Task, 0, len(b.Tasks))
	for _, t := range b.Tasks {
		if t != nil && t.Status == status {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Summary returns a shallow copy without the task payload.
func (b Board) Summary() Board {
	b.Tasks = nil
	return b
}

// Limit returns the advisory capacity for a status column (0 = unlimited).
func (b *Board) Limit(status Status) int {
	if b == nil {
		return 0
	}
	switch status {
	case StatusToDo:
		return b.ToDoLimit
	case StatusInProgress:
		return b.ProgressLimit
	}
	return 0
}

type Note struct {
	ID               int64  `json:"id,omitempty"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	CreatedDate      string `json:"createdDate,omitempty"`
	LastModifiedDate string `json:"lastModifiedDate,omitempty"`
}

func (n Note) EntityKey() string { return fmt.Sprintf("note:%d", n.ID) }

func StrPtr(s string) *string { return &s }
