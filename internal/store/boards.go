package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/model"
)

const boardCols = `id, title, description, archived, to_do_limit, progress_limit, auto_pull, created_date, last_modified_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(r rowScanner) (model.Board, error) {
	var b model.Board
	var archived, autoPull int
	err := r.Scan(&b.ID, &b.Title, &b.Description, &archived, &b.ToDoLimit, &b.ProgressLimit, &autoPull, &b.CreatedDate, &b.LastModifiedDate)
	b.Archived = archived != 0
	b.AutoPull = autoPull != 0
	return b, err
}

// Boards lists all boards without tasks. A default board is created when none exist.
func (s *DB) Boards(ctx context.Context) ([]model.Board, error) {
	out, err := s.listBoards(ctx)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}
	b, err := s.CreateBoard(ctx, model.Board{
		Title:         model.DefaultBoardTitle,
		ToDoLimit:     model.DefaultToDoLimit,
		ProgressLimit: model.DefaultProgressLimit,
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("boardId", b.ID).Info("created default board")
	return []model.Board{b}, nil
}

func (s *DB) listBoards(ctx context.Context) ([]model.Board, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+boardCols+` FROM boards ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Board returns the board with its full task list.
func (s *DB) Board(ctx context.Context, id int64) (model.Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, `SELECT `+boardCols+` FROM boards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Board{}, backend.ErrNotFound("board", id)
	}
	if err != nil {
		return model.Board{}, err
	}
	ts, err := s.BoardTasks(ctx, id)
	if err != nil {
		return model.Board{}, err
	}
	b.Tasks = make([]*model.Task, 0, len(ts))
	for i := range ts {
		b.Tasks = append(b.Tasks, &ts[i])
	}
	return b, nil
}

func (s *DB) CreateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return model.Board{}, errors.New("board title is empty")
	}
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO boards(title, description, archived, to_do_limit, progress_limit, auto_pull, created_date, last_modified_date)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Description, boolToInt(b.Archived), b.ToDoLimit, b.ProgressLimit, boolToInt(b.AutoPull), now, now)
	if err != nil {
		return model.Board{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Board{}, err
	}
	b.ID = id
	b.CreatedDate = now
	b.LastModifiedDate = now
	b.Tasks = nil
	return b, nil
}

// UpdateBoard replaces the board's attributes; tasks are not touched.
func (s *DB) UpdateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`UPDATE boards SET title = ?, description = ?, archived = ?, to_do_limit = ?, progress_limit = ?, auto_pull = ?, last_modified_date = ?
		 WHERE id = ?`,
		b.Title, b.Description, boolToInt(b.Archived), b.ToDoLimit, b.ProgressLimit, boolToInt(b.AutoPull), now, b.ID)
	if err != nil {
		return model.Board{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Board{}, backend.ErrNotFound("board", b.ID)
	}
	out, err := scanBoard(s.db.QueryRowContext(ctx, `SELECT `+boardCols+` FROM boards WHERE id = ?`, b.ID))
	if err != nil {
		return model.Board{}, err
	}
	return out, nil
}

func (s *DB) DeleteBoard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backend.ErrNotFound("board", id)
	}
	return nil
}
