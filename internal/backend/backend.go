// Package backend declares the CRUD collaborators the core talks to.
// Implementations live in internal/store (local sqlite) and internal/remote (REST).
package backend

import (
	"context"
	"errors"
	"fmt"

	"dshbd-cli/internal/model"
)

type TaskService interface {
	BoardTasks(ctx context.Context, boardID int64) ([]model.Task, error)
	BoardTasksByStatus(ctx context.Context, boardID int64, status model.Status) ([]model.Task, error)
	Task(ctx context.Context, id int64) (model.Task, error)
	// CreateTask returns the task with its assigned id and timestamps.
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
	// UpdateTask replaces the whole task keyed by id.
	UpdateTask(ctx context.Context, t model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// BatchTaskUpdater is implemented by collaborators that can persist many tasks in one write.
type BatchTaskUpdater interface {
	UpdateTasks(ctx context.Context, ts []model.Task) ([]model.Task, error)
}

type BoardService interface {
	Boards(ctx context.Context) ([]model.Board, error)
	Board(ctx context.Context, id int64) (model.Board, error)
	CreateBoard(ctx context.Context, b model.Board) (model.Board, error)
	UpdateBoard(ctx context.Context, b model.Board) (model.Board, error)
	DeleteBoard(ctx context.Context, id int64) error
}

type NoteService interface {
	Notes(ctx context.Context) ([]model.Note, error)
	CreateNote(ctx context.Context, n model.Note) (model.Note, error)
	UpdateNote(ctx context.Context, n model.Note) (model.Note, error)
	DeleteNote(ctx context.Context, id int64) error
}

type Backend interface {
	TaskService
	BoardService
	NoteService
}

var (
	ErrTaskCompleted = errors.New("task has already been completed")
	ErrTaskStarted   = errors.New("task has already been started")
	ErrBoardNotFound = errors.New("board not found")
)

type NotFoundError struct {
	Kind string
	ID   int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}

func ErrNotFound(kind string, id int64) error {
	return NotFoundError{Kind: kind, ID: id}
}

func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf) || errors.Is(err, ErrBoardNotFound)
}
