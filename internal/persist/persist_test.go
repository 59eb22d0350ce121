package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dshbd-cli/internal/logging"
	"dshbd-cli/internal/model"
)

type fakeTasks struct {
	mu      sync.Mutex
	updates []model.Task
	deletes []int64
	creates []model.Task
	failIDs map[int64]bool
	delay   time.Duration
	nextID  int64
}

func (f *fakeTasks) BoardTasks(context.Context, int64) ([]model.Task, error) { return nil, nil }
func (f *fakeTasks) BoardTasksByStatus(context.Context, int64, model.Status) ([]model.Task, error) {
	return nil, nil
}
func (f *fakeTasks) Task(context.Context, int64) (model.Task, error) { return model.Task{}, nil }

func (f *fakeTasks) CreateTask(_ context.Context, t model.Task) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = 100 + f.nextID
	t.CreatedDate = "2025-12-20T10:00:00.000Z"
	t.LastModifiedDate = t.CreatedDate
	f.creates = append(f.creates, t)
	return t, nil
}

func (f *fakeTasks) UpdateTask(_ context.Context, t model.Task) (model.Task, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[t.ID] {
		return model.Task{}, errors.New("boom")
	}
	f.updates = append(f.updates, t)
	return t, nil
}

func (f *fakeTasks) DeleteTask(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeTasks) snapshot() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Task(nil), f.updates...)
}

type batchTasks struct {
	fakeTasks
	batches [][]model.Task
	fail    bool
}

func (b *batchTasks) UpdateTasks(_ context.Context, ts []model.Task) ([]model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, errors.New("batch rejected")
	}
	b.batches = append(b.batches, append([]model.Task(nil), ts...))
	return ts, nil
}

func newAdapter(t *testing.T, tasks *fakeTasks, n Notifier) *Adapter {
	t.Helper()
	a := New(Options{Tasks: tasks, Window: 30 * time.Millisecond, Notifier: n, Log: logging.Discard()})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.Flush(ctx)
	})
	return a
}

func waitIdle(t *testing.T, a *Adapter) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for a.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("adapter did not go idle")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSchedule_CoalescesToLastValue(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{}
	a := newAdapter(t, ft, nil)
	for _, title := range []string{"A", "B", "C"} {
		a.Schedule(model.Task{ID: 1, Title: title})
	}
	time.Sleep(60 * time.Millisecond)
	waitIdle(t, a)
	got := ft.snapshot()
	if len(got) != 1 || got[0].Title != "C" {
		t.Fatalf("expected exactly one write of C; got %+v", got)
	}
}

func TestSchedule_DistinctKeysIndependent(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{}
	a := newAdapter(t, ft, nil)
	a.Schedule(model.Task{ID: 1, Title: "one"})
	a.Schedule(model.Task{ID: 2, Title: "two"})
	a.Schedule(model.Note{ID: 1, Title: "note"}) // no note service: reported, not written as a task
	time.Sleep(60 * time.Millisecond)
	waitIdle(t, a)
	if got := ft.snapshot(); len(got) != 2 {
		t.Fatalf("expected two task writes; got %+v", got)
	}
}

func TestSchedule_WindowRestartsOnEachEdit(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{}
	a := newAdapter(t, ft, nil)
	for i := 0; i < 5; i++ {
		a.Schedule(model.Task{ID: 1, Title: string(rune('a' + i))})
		time.Sleep(10 * time.Millisecond)
	}
	if got := ft.snapshot(); len(got) != 0 {
		t.Fatalf("expected no write while edits keep arriving; got %+v", got)
	}
	time.Sleep(60 * time.Millisecond)
	waitIdle(t, a)
	if got := ft.snapshot(); len(got) != 1 || got[0].Title != "e" {
		t.Fatalf("expected single write of e; got %+v", got)
	}
}

func TestSchedule_EditDuringInFlightWriteIsSentAfter(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{delay: 40 * time.Millisecond}
	a := newAdapter(t, ft, nil)
	a.Schedule(model.Task{ID: 1, Title: "first"})
	time.Sleep(45 * time.Millisecond) // first write now in flight
	a.Schedule(model.Task{ID: 1, Title: "second"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got := ft.snapshot()
	if len(got) != 2 || got[0].Title != "first" || got[1].Title != "second" {
		t.Fatalf("expected first then second; got %+v", got)
	}
}

func TestSave_SupersedesPendingDebounce(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{}
	a := newAdapter(t, ft, nil)
	a.Schedule(model.Task{ID: 1, Title: "typing"})
	a.Save(model.Task{ID: 1, Title: "typing", Status: model.StatusDone})
	time.Sleep(60 * time.Millisecond)
	waitIdle(t, a)
	got := ft.snapshot()
	if len(got) != 1 || got[0].Status != model.StatusDone {
		t.Fatalf("expected only the immediate write; got %+v", got)
	}
}

func TestSchedule_WaitsForQueuedImmediateWrite(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{delay: 100 * time.Millisecond}
	a := New(Options{Tasks: ft, Window: 20 * time.Millisecond, Log: logging.Discard()})
	a.Save(model.Task{ID: 2, Title: "other"})
	a.Save(model.Task{ID: 1, Title: "old", Position: 3})
	a.Schedule(model.Task{ID: 1, Title: "new", Position: 3})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	var titles []string
	for _, u := range ft.snapshot() {
		if u.ID == 1 {
			titles = append(titles, u.Title)
		}
	}
	if len(titles) != 2 || titles[1] != "new" {
		t.Fatalf("expected old then new for task 1; got %v", titles)
	}
	if a.Pending() != 0 {
		t.Fatalf("expected idle after flush; got %d", a.Pending())
	}
}

func TestSchedule_HeldWriteStartsWithoutFlush(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{delay: 60 * time.Millisecond}
	a := newAdapter(t, ft, nil)
	a.SavePositions([]model.Task{{ID: 1, Title: "old", Position: 0}, {ID: 2, Position: 1}})
	a.Schedule(model.Task{ID: 1, Title: "new"})
	time.Sleep(30 * time.Millisecond) // window elapses while the positions are still being written
	waitIdle(t, a)
	got := ft.snapshot()
	if len(got) != 3 || got[2].ID != 1 || got[2].Title != "new" {
		t.Fatalf("expected the edit to land after the position writes; got %+v", got)
	}
}

func TestDeleteTask_CancelsPendingEdits(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{}
	a := newAdapter(t, ft, nil)
	a.Schedule(model.Task{ID: 7, Title: "doomed"})
	var derr error = errors.New("unset")
	a.DeleteTask(7, func(err error) { derr = err })
	time.Sleep(60 * time.Millisecond)
	waitIdle(t, a)
	if got := ft.snapshot(); len(got) != 0 {
		t.Fatalf("expected pending edit to be dropped; got %+v", got)
	}
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.deletes) != 1 || ft.deletes[0] != 7 || derr != nil {
		t.Fatalf("expected delete of 7; got %v err=%v", ft.deletes, derr)
	}
}

func TestFailure_ReportedWithoutRetry(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{failIDs: map[int64]bool{3: true}}
	var mu sync.Mutex
	var failures []Failure
	a := newAdapter(t, ft, NotifierFunc(func(f Failure) {
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()
	}))
	a.Schedule(model.Task{ID: 3, Title: "x"})
	time.Sleep(60 * time.Millisecond)
	waitIdle(t, a)
	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 || failures[0].Key != "task:3" || failures[0].Op != "update" {
		t.Fatalf("expected one update failure for task:3; got %+v", failures)
	}
}

func TestSavePositions_UsesBatchWhenAvailable(t *testing.T) {
	t.Parallel()
	bt := &batchTasks{}
	a := New(Options{Tasks: bt, Window: 30 * time.Millisecond, Log: logging.Discard()})
	a.Schedule(model.Task{ID: 1, Title: "typing"})
	a.SavePositions([]model.Task{{ID: 1, Position: 1}, {ID: 2, Position: 0}, {Title: "unsaved"}})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if len(bt.batches) != 1 || len(bt.batches[0]) != 2 {
		t.Fatalf("expected one batch of two; got %+v", bt.batches)
	}
	if len(bt.updates) != 0 {
		t.Fatalf("expected pending debounced edit to be superseded; got %+v", bt.updates)
	}
}

func TestSavePositions_BatchFailureNamesTasks(t *testing.T) {
	t.Parallel()
	bt := &batchTasks{fail: true}
	var mu sync.Mutex
	var failures []Failure
	a := New(Options{Tasks: bt, Window: 30 * time.Millisecond, Log: logging.Discard(),
		Notifier: NotifierFunc(func(f Failure) {
			mu.Lock()
			failures = append(failures, f)
			mu.Unlock()
		})})
	a.SavePositions([]model.Task{{ID: 4, Position: 0}, {ID: 9, Position: 1}})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 {
		t.Fatalf("expected one failure; got %+v", failures)
	}
	f := failures[0]
	if f.Op != "reorder" || f.Key != "tasks:4,9" {
		t.Fatalf("unexpected failure %+v", f)
	}
	if task, ok := f.Entity.(model.Task); !ok || task.ID != 4 {
		t.Fatalf("expected the first task as entity; got %#v", f.Entity)
	}
}

func TestSavePositions_FallsBackToPerTask(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{}
	a := newAdapter(t, ft, nil)
	a.SavePositions([]model.Task{{ID: 1, Position: 1}, {ID: 2, Position: 0}})
	waitIdle(t, a)
	if got := ft.snapshot(); len(got) != 2 {
		t.Fatalf("expected two writes; got %+v", got)
	}
}

func TestFlush_WritesPendingImmediately(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{}
	a := New(Options{Tasks: ft, Window: time.Hour, Log: logging.Discard()})
	a.Schedule(model.Task{ID: 5, Title: "late"})
	if a.Pending() != 1 {
		t.Fatalf("expected one pending write; got %d", a.Pending())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := ft.snapshot(); len(got) != 1 || got[0].Title != "late" {
		t.Fatalf("expected flushed write; got %+v", got)
	}
	if a.Pending() != 0 {
		t.Fatalf("expected idle after flush; got %d", a.Pending())
	}
}

func TestCreateTask_CallbackGetsAssignedID(t *testing.T) {
	t.Parallel()
	ft := &fakeTasks{}
	a := newAdapter(t, ft, nil)
	done := make(chan model.Task, 1)
	a.CreateTask(model.Task{Title: "new", Status: model.StatusBacklog}, func(t model.Task, err error) {
		if err == nil {
			done <- t
		}
	})
	select {
	case got := <-done:
		if got.ID == 0 || got.CreatedDate == "" {
			t.Fatalf("expected server-assigned fields; got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("create callback not called")
	}
}
