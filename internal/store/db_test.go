package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.now = func() time.Time { return time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBoards_CreatesDefaultBoardOnce(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()

	bs, err := db.Boards(ctx)
	if err != nil {
		t.Fatalf("Boards: %v", err)
	}
	if len(bs) != 1 || bs[0].Title != model.DefaultBoardTitle || bs[0].ToDoLimit != 5 || bs[0].ProgressLimit != 2 {
		t.Fatalf("expected default Life Board; got %+v", bs)
	}
	again, err := db.Boards(ctx)
	if err != nil {
		t.Fatalf("Boards: %v", err)
	}
	if len(again) != 1 || again[0].ID != bs[0].ID {
		t.Fatalf("expected the same single board; got %+v", again)
	}
}

func TestCreateTask_AssignsIDAndTimestamps(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()
	bs, _ := db.Boards(ctx)

	got, err := db.CreateTask(ctx, model.Task{Title: "a", BoardID: bs[0].ID, Position: -1, Priority: 1})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if got.ID == 0 || got.Status != model.StatusBacklog {
		t.Fatalf("expected id and default backlog status; got %+v", got)
	}
	if got.CreatedDate != "2025-12-20T10:00:00.000Z" || got.LastModifiedDate != got.CreatedDate {
		t.Fatalf("unexpected timestamps: %q %q", got.CreatedDate, got.LastModifiedDate)
	}
	second, err := db.CreateTask(ctx, model.Task{Title: "b", BoardID: bs[0].ID, Position: -1})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if second.Position != 1 {
		t.Fatalf("expected negative position to append at 1; got %d", second.Position)
	}
}

func TestCreateTask_RequiresBoard(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	_, err := db.CreateTask(context.Background(), model.Task{Title: "orphan", BoardID: 999})
	if !errors.Is(err, backend.ErrBoardNotFound) {
		t.Fatalf("expected ErrBoardNotFound; got %v", err)
	}
}

func TestUpdateTask_DoneRules(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()
	bs, _ := db.Boards(ctx)
	tk, _ := db.CreateTask(ctx, model.Task{Title: "a", BoardID: bs[0].ID, Status: model.StatusDone})

	tk.Title = "edited"
	if _, err := db.UpdateTask(ctx, tk); !errors.Is(err, backend.ErrTaskCompleted) {
		t.Fatalf("expected ErrTaskCompleted for content edit; got %v", err)
	}
	tk.Title = "a"
	tk.Position = 3
	moved, err := db.UpdateTask(ctx, tk)
	if err != nil {
		t.Fatalf("expected position move of done task to succeed; got %v", err)
	}
	if moved.Position != 3 {
		t.Fatalf("expected position 3; got %d", moved.Position)
	}
	tk.Status = model.StatusToDo
	if _, err := db.UpdateTask(ctx, tk); err != nil {
		t.Fatalf("expected status move out of done to succeed; got %v", err)
	}
}

func TestDeleteTask_OnlyBacklog(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()
	bs, _ := db.Boards(ctx)
	started, _ := db.CreateTask(ctx, model.Task{Title: "s", BoardID: bs[0].ID, Status: model.StatusInProgress})
	fresh, _ := db.CreateTask(ctx, model.Task{Title: "f", BoardID: bs[0].ID})

	if err := db.DeleteTask(ctx, started.ID); !errors.Is(err, backend.ErrTaskStarted) {
		t.Fatalf("expected ErrTaskStarted; got %v", err)
	}
	if err := db.DeleteTask(ctx, fresh.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := db.Task(ctx, fresh.ID); !backend.IsNotFound(err) {
		t.Fatalf("expected not found after delete; got %v", err)
	}
}

func TestUpdateTasks_IsAtomic(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()
	bs, _ := db.Boards(ctx)
	a, _ := db.CreateTask(ctx, model.Task{Title: "a", BoardID: bs[0].ID, Status: model.StatusToDo, Position: 0})
	b, _ := db.CreateTask(ctx, model.Task{Title: "b", BoardID: bs[0].ID, Status: model.StatusToDo, Position: 1})

	a.Position, b.Position = 1, 0
	if _, err := db.UpdateTasks(ctx, []model.Task{a, b, {ID: 4242}}); err == nil {
		t.Fatalf("expected batch with unknown task to fail")
	}
	got, _ := db.BoardTasksByStatus(ctx, bs[0].ID, model.StatusToDo)
	if got[0].ID != a.ID {
		t.Fatalf("expected rollback to keep the previous order; got %+v", got)
	}

	if _, err := db.UpdateTasks(ctx, []model.Task{a, b}); err != nil {
		t.Fatalf("UpdateTasks: %v", err)
	}
	got, _ = db.BoardTasksByStatus(ctx, bs[0].ID, model.StatusToDo)
	if got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("expected swapped order; got %+v", got)
	}
}

func TestBoard_LoadsTasksAndNullableFields(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()
	bs, _ := db.Boards(ctx)
	due := "2025-12-24"
	_, _ = db.CreateTask(ctx, model.Task{Title: "a", BoardID: bs[0].ID, DueDate: &due})
	_, _ = db.CreateTask(ctx, model.Task{Title: "b", BoardID: bs[0].ID, Position: 1})

	b, err := db.Board(ctx, bs[0].ID)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(b.Tasks) != 2 {
		t.Fatalf("expected 2 tasks; got %d", len(b.Tasks))
	}
	if b.Tasks[0].DueDate == nil || *b.Tasks[0].DueDate != due || b.Tasks[1].DueDate != nil {
		t.Fatalf("unexpected due dates: %+v %+v", b.Tasks[0], b.Tasks[1])
	}
	if _, err := db.Board(ctx, 999); !backend.IsNotFound(err) {
		t.Fatalf("expected not found; got %v", err)
	}
}

func TestNotes_CRUD(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	ctx := context.Background()
	n, err := db.CreateNote(ctx, model.Note{Title: "idea", Content: "x"})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	n.Content = "y"
	u, err := db.UpdateNote(ctx, n)
	if err != nil || u.Content != "y" {
		t.Fatalf("UpdateNote: %+v %v", u, err)
	}
	ns, _ := db.Notes(ctx)
	if len(ns) != 1 {
		t.Fatalf("expected 1 note; got %d", len(ns))
	}
	if err := db.DeleteNote(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if err := db.DeleteNote(ctx, n.ID); !backend.IsNotFound(err) {
		t.Fatalf("expected not found on second delete; got %v", err)
	}
}
