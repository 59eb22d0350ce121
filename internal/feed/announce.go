package feed

import (
	"context"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/model"
)

// Announcing decorates a backend so every successful write is announced on the feed.
type Announcing struct {
	backend.Backend
	feed *Feed
}

var (
	_ backend.Backend          = (*Announcing)(nil)
	_ backend.BatchTaskUpdater = (*Announcing)(nil)
)

func Wrap(b backend.Backend, f *Feed) *Announcing {
	return &Announcing{Backend: b, feed: f}
}

func (a *Announcing) task(op string, t model.Task) {
	a.feed.Announce(Change{Kind: "task", Op: op, BoardID: t.BoardID, EntityID: t.ID})
}

func (a *Announcing) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	out, err := a.Backend.CreateTask(ctx, t)
	if err == nil {
		a.task("create", out)
	}
	return out, err
}

func (a *Announcing) UpdateTask(ctx context.Context, t model.Task) (model.Task, error) {
	out, err := a.Backend.UpdateTask(ctx, t)
	if err == nil {
		a.task("update", out)
	}
	return out, err
}

// UpdateTasks uses the wrapped backend's batch write when it has one.
func (a *Announcing) UpdateTasks(ctx context.Context, ts []model.Task) ([]model.Task, error) {
	var out []model.Task
	if bu, ok := a.Backend.(backend.BatchTaskUpdater); ok {
		var err error
		out, err = bu.UpdateTasks(ctx, ts)
		if err != nil {
			return nil, err
		}
	} else {
		for _, t := range ts {
			u, err := a.Backend.UpdateTask(ctx, t)
			if err != nil {
				return nil, err
			}
			out = append(out, u)
		}
	}
	if len(out) > 0 {
		a.feed.Announce(Change{Kind: "task", Op: "update", BoardID: out[0].BoardID})
	}
	return out, nil
}

func (a *Announcing) DeleteTask(ctx context.Context, id int64) error {
	err := a.Backend.DeleteTask(ctx, id)
	if err == nil {
		a.feed.Announce(Change{Kind: "task", Op: "delete", EntityID: id})
	}
	return err
}

func (a *Announcing) CreateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	out, err := a.Backend.CreateBoard(ctx, b)
	if err == nil {
		a.feed.Announce(Change{Kind: "board", Op: "create", BoardID: out.ID, EntityID: out.ID})
	}
	return out, err
}

func (a *Announcing) UpdateBoard(ctx context.Context, b model.Board) (model.Board, error) {
	out, err := a.Backend.UpdateBoard(ctx, b)
	if err == nil {
		a.feed.Announce(Change{Kind: "board", Op: "update", BoardID: out.ID, EntityID: out.ID})
	}
	return out, err
}

func (a *Announcing) DeleteBoard(ctx context.Context, id int64) error {
	err := a.Backend.DeleteBoard(ctx, id)
	if err == nil {
		a.feed.Announce(Change{Kind: "board", Op: "delete", BoardID: id, EntityID: id})
	}
	return err
}

func (a *Announcing) CreateNote(ctx context.Context, n model.Note) (model.Note, error) {
	out, err := a.Backend.CreateNote(ctx, n)
	if err == nil {
		a.feed.Announce(Change{Kind: "note", Op: "create", EntityID: out.ID})
	}
	return out, err
}

func (a *Announcing) UpdateNote(ctx context.Context, n model.Note) (model.Note, error) {
	out, err := a.Backend.UpdateNote(ctx, n)
	if err == nil {
		a.feed.Announce(Change{Kind: "note", Op: "update", EntityID: out.ID})
	}
	return out, err
}

func (a *Announcing) DeleteNote(ctx context.Context, id int64) error {
	err := a.Backend.DeleteNote(ctx, id)
	if err == nil {
		a.feed.Announce(Change{Kind: "note", Op: "delete", EntityID: id})
	}
	return err
}
