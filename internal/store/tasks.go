package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/model"
)

const taskCols = `id, board_id, title, description, status, priority, due_date, assignee, position, created_date, last_modified_date`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanTask(r rowScanner) (model.Task, error) {
	var t model.Task
	var status string
	var due, assignee sql.NullString
	err := r.Scan(&t.ID, &t.BoardID, &t.Title, &t.Description, &status, &t.Priority, &due, &assignee, &t.Position, &t.CreatedDate, &t.LastModifiedDate)
	t.Status = model.Status(status)
	t.DueDate = stringPtr(due)
	t.Assignee = stringPtr(assignee)
	return t, err
}

func queryTasks(ctx context.Context, q querier, where string, args ...any) ([]model.Task, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks `+where+` ORDER BY status, position, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func getTask(ctx context.Context, q querier, id int64) (model.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, backend.ErrNotFound("task", id)
	}
	return t, err
}

func boardExists(ctx context.Context, q querier, id int64) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM boards WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *DB) BoardTasks(ctx context.Context, boardID int64) ([]model.Task, error) {
	return queryTasks(ctx, s.db, `WHERE board_id = ?`, boardID)
}

func (s *DB) BoardTasksByStatus(ctx context.Context, boardID int64, status model.Status) ([]model.Task, error) {
	return queryTasks(ctx, s.db, `WHERE board_id = ? AND status = ?`, boardID, string(status))
}

func (s *DB) Task(ctx context.Context, id int64) (model.Task, error) {
	return getTask(ctx, s.db, id)
}

// CreateTask assigns id and timestamps. An empty status means backlog; a negative
// position appends to the partition.
func (s *DB) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	if t.Status == "" {
		t.Status = model.StatusBacklog
	}
	if !t.Status.Valid() {
		return model.Task{}, fmt.Errorf("invalid status: %q", t.Status)
	}
	ok, err := boardExists(ctx, s.db, t.BoardID)
	if err != nil {
		return model.Task{}, err
	}
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %d", backend.ErrBoardNotFound, t.BoardID)
	}
	if t.Position < 0 {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks WHERE board_id = ? AND status = ?`, t.BoardID, string(t.Status)).Scan(&t.Position); err != nil {
			return model.Task{}, err
		}
	}
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(board_id, title, description, status, priority, due_date, assignee, position, created_date, last_modified_date)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BoardID, t.Title, t.Description, string(t.Status), t.Priority, nullString(t.DueDate), nullString(t.Assignee), t.Position, now, now)
	if err != nil {
		return model.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, err
	}
	t.ID = id
	t.CreatedDate = now
	t.LastModifiedDate = now
	return t, nil
}

func contentChanged(a, b model.Task) bool {
	return a.Title != b.Title ||
		a.Description != b.Description ||
		a.Priority != b.Priority ||
		!eqPtr(a.DueDate, b.DueDate) ||
		!eqPtr(a.Assignee, b.Assignee)
}

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *DB) updateTask(ctx context.Context, q querier, t model.Task, now string) (model.Task, error) {
	cur, err := getTask(ctx, q, t.ID)
	if err != nil {
		return model.Task{}, err
	}
	if cur.Status == model.StatusDone && contentChanged(cur, t) {
		return model.Task{}, backend.ErrTaskCompleted
	}
	if t.Status == "" {
		t.Status = cur.Status
	}
	if !t.Status.Valid() {
		return model.Task{}, fmt.Errorf("invalid status: %q", t.Status)
	}
	if t.BoardID == 0 {
		t.BoardID = cur.BoardID
	}
	if t.BoardID != cur.BoardID {
		ok, err := boardExists(ctx, q, t.BoardID)
		if err != nil {
			return model.Task{}, err
		}
		if !ok {
			return model.Task{}, fmt.Errorf("%w: %d", backend.ErrBoardNotFound, t.BoardID)
		}
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE tasks SET board_id = ?, title = ?, description = ?, status = ?, priority = ?, due_date = ?, assignee = ?, position = ?, last_modified_date = ?
		 WHERE id = ?`,
		t.BoardID, t.Title, t.Description, string(t.Status), t.Priority, nullString(t.DueDate), nullString(t.Assignee), t.Position, now, t.ID); err != nil {
		return model.Task{}, err
	}
	t.CreatedDate = cur.CreatedDate
	t.LastModifiedDate = now
	return t, nil
}

// UpdateTask replaces the task keyed by id. Content edits of a done task fail
// with backend.ErrTaskCompleted; status and position moves are always accepted.
func (s *DB) UpdateTask(ctx context.Context, t model.Task) (model.Task, error) {
	return s.updateTask(ctx, s.db, t, s.stamp())
}

// UpdateTasks applies a batch in one transaction; any failure rolls back the whole batch.
func (s *DB) UpdateTasks(ctx context.Context, ts []model.Task) ([]model.Task, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.stamp()
	out := make([]model.Task, 0, len(ts))
	for _, t := range ts {
		u, err := s.updateTask(ctx, tx, t, now)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", t.ID, err)
		}
		out = append(out, u)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTask removes a backlog task; started tasks fail with backend.ErrTaskStarted.
func (s *DB) DeleteTask(ctx context.Context, id int64) error {
	cur, err := getTask(ctx, s.db, id)
	if err != nil {
		return err
	}
	if cur.Status != model.StatusBacklog {
		return backend.ErrTaskStarted
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}
