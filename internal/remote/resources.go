package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"dshbd-cli/internal/model"
)

func (c *Client) Boards(ctx context.Context) ([]model.Board, error) {
	var out []model.Board
	if err := c.do(ctx, http.MethodGet, "api/boards", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Board(ctx context.Context, id int64) (model.Board, error) {
	var out model.Board
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("api/boards/%d", id), nil, nil, &out); err != nil {
		return model.Board{}, domainError(err, "board", id)
	}
	if out.Tasks == nil {
		ts, err := c.BoardTasks(ctx, id)
		if err != nil {
			return model.Board{}, err
		}
		for i := range ts {
			out.Tasks = append(out.Tasks, &ts[i])
		}
	}
	return out, nil
}

func (c *Client) CreateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	b.ID = 0
	var out model.Board
	err := c.do(ctx, http.MethodPost, "api/boards", nil, b.Summary(), &out)
	return out, err
}

func (c *Client) UpdateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	var out model.Board
	if err := c.do(ctx, http.MethodPut, "api/boards", nil, b.Summary(), &out); err != nil {
		return model.Board{}, domainError(err, "board", b.ID)
	}
	return out, nil
}

func (c *Client) DeleteBoard(ctx context.Context, id int64) error {
	return domainError(c.do(ctx, http.MethodDelete, fmt.Sprintf("api/boards/%d", id), nil, nil, nil), "board", id)
}

func (c *Client) BoardTasks(ctx context.Context, boardID int64) ([]model.Task, error) {
	out := []model.Task{}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("api/boards/%d/tasks", boardID), nil, nil, &out); err != nil {
		return nil, domainError(err, "board", boardID)
	}
	return out, nil
}

func (c *Client) BoardTasksByStatus(ctx context.Context, boardID int64, status model.Status) ([]model.Task, error) {
	out := []model.Task{}
	q := url.Values{"status": []string{string(status)}}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("api/boards/%d/tasks/status", boardID), q, nil, &out); err != nil {
		return nil, domainError(err, "board", boardID)
	}
	return out, nil
}

func (c *Client) Task(ctx context.Context, id int64) (model.Task, error) {
	var out model.Task
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("api/tasks/%d", id), nil, nil, &out); err != nil {
		return model.Task{}, domainError(err, "task", id)
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	t.ID = 0
	var out model.Task
	if err := c.do(ctx, http.MethodPost, "api/tasks", nil, t, &out); err != nil {
		return model.Task{}, domainError(err, "board", t.BoardID)
	}
	return out, nil
}

func (c *Client) UpdateTask(ctx context.Context, t model.Task) (model.Task, error) {
	var out model.Task
	if err := c.do(ctx, http.MethodPut, "api/tasks", nil, t, &out); err != nil {
		return model.Task{}, domainError(err, "task", t.ID)
	}
	return out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return domainError(c.do(ctx, http.MethodDelete, fmt.Sprintf("api/tasks/%d", id), nil, nil, nil), "task", id)
}

func (c *Client) Notes(ctx context.Context) ([]model.Note, error) {
	out := []model.Note{}
	if err := c.do(ctx, http.MethodGet, "api/notes", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	n.ID = 0
	var out model.Note
	err := c.do(ctx, http.MethodPost, "api/notes", nil, n, &out)
	return out, err
}

func (c *Client) UpdateNote(ctx context.Context, n model.Note) (model.Note, error) {
	var out model.Note
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("api/notes/%d", n.ID), nil, n, &out); err != nil {
		return model.Note{}, domainError(err, "note", n.ID)
	}
	return out, nil
}

func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	return domainError(c.do(ctx, http.MethodDelete, fmt.Sprintf("api/notes/%d", id), nil, nil, nil), "note", id)
}
