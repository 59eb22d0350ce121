package store

import (
	"context"
	"database/sql"
	"errors"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/model"
)

func (s *DB) Notes(ctx context.Context) ([]model.Note, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, content, created_date, last_modified_date FROM notes ORDER BY last_modified_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Note{}
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedDate, &n.LastModifiedDate); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *DB) note(ctx context.Context, id int64) (model.Note, error) {
	var n model.Note
	err := s.db.QueryRowContext(ctx, `SELECT id, title, content, created_date, last_modified_date FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.Title, &n.Content, &n.CreatedDate, &n.LastModifiedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Note{}, backend.ErrNotFound("note", id)
	}
	return n, err
}

func (s *DB) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx, `INSERT INTO notes(title, content, created_date, last_modified_date) VALUES(?, ?, ?, ?)`,
		n.Title, n.Content, now, now)
	if err != nil {
		return model.Note{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Note{}, err
	}
	n.ID = id
	n.CreatedDate = now
	n.LastModifiedDate = now
	return n, nil
}

func (s *DB) UpdateNote(ctx context.Context, n model.Note) (model.Note, error) {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx, `UPDATE notes SET title = ?, content = ?, last_modified_date = ? WHERE id = ?`,
		n.Title, n.Content, now, n.ID)
	if err != nil {
		return model.Note{}, err
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return model.Note{}, backend.ErrNotFound("note", n.ID)
	}
	return s.note(ctx, n.ID)
}

func (s *DB) DeleteNote(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return backend.ErrNotFound("note", id)
	}
	return nil
}
