package bus

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dshbd-cli/internal/model"
)

// CreateRequest asks for a new task. Index is the position in the target
// partition; nil places it at the head.
type CreateRequest struct {
	RequestID string
	Task      model.Task
	Index     *int
}

// UpdateRequest carries an in-place field edit of a persisted task.
type UpdateRequest struct {
	RequestID string
	Task      model.Task
}

type DeleteRequest struct {
	RequestID string
	TaskID    int64
}

// StatusRequest moves a task to another partition. Index nil means the head.
type StatusRequest struct {
	RequestID string
	TaskID    int64
	Status    model.Status
	Index     *int
}

// Hub is the set of cells and streams shared by the board, backlog and editor views.
type Hub struct {
	Bus *Bus

	ActiveBoard *Cell[*model.Board]
	// ActiveTask points into ActiveBoard's task slice; it is never a copy.
	ActiveTask *Cell[*model.Task]
	EditorOpen *Cell[bool]
	TagFilter  *Cell[string]

	CreateRequests *Stream[CreateRequest]
	UpdateRequests *Stream[UpdateRequest]
	DeleteRequests *Stream[DeleteRequest]
	StatusRequests *Stream[StatusRequest]
}

func NewHub(log *logrus.Entry) *Hub {
	b := New(log)
	return &Hub{
		Bus:            b,
		ActiveBoard:    NewCell[*model.Board](b, "activeBoard", nil),
		ActiveTask:     NewCell[*model.Task](b, "activeTask", nil),
		EditorOpen:     NewCell(b, "editorOpen", false),
		TagFilter:      NewCell(b, "tagFilter", ""),
		CreateRequests: NewStream[CreateRequest](b, "taskCreateRequests"),
		UpdateRequests: NewStream[UpdateRequest](b, "taskUpdateRequests"),
		DeleteRequests: NewStream[DeleteRequest](b, "taskDeleteRequests"),
		StatusRequests: NewStream[StatusRequest](b, "taskStatusChangeRequests"),
	}
}

func newRequestID() string { return uuid.NewString() }

// RequestCreate publishes a create request and returns its id.
func (h *Hub) RequestCreate(t model.Task, index *int) string {
	id := newRequestID()
	h.CreateRequests.Publish(CreateRequest{RequestID: id, Task: t, Index: index})
	return id
}

func (h *Hub) RequestUpdate(t model.Task) string {
	id := newRequestID()
	h.UpdateRequests.Publish(UpdateRequest{RequestID: id, Task: t})
	return id
}

func (h *Hub) RequestDelete(taskID int64) string {
	id := newRequestID()
	h.DeleteRequests.Publish(DeleteRequest{RequestID: id, TaskID: taskID})
	return id
}

func (h *Hub) RequestStatus(taskID int64, st model.Status, index *int) string {
	id := newRequestID()
	h.StatusRequests.Publish(StatusRequest{RequestID: id, TaskID: taskID, Status: st, Index: index})
	return id
}
