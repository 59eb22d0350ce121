// Package persist sends local edits to the backend.
//
// Field edits are debounced per entity key: only the last value scheduled
// within the quiet window is written. Structural writes (create, delete,
// position and status changes) go out immediately and supersede any pending
// debounced value for the same key. A debounced write for a key that still has
// an immediate write queued waits until that write is done. Failed writes are reported through the
// Notifier; local state is never rolled back.
package persist

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/logging"
	"dshbd-cli/internal/loop"
	"dshbd-cli/internal/model"
)

const DefaultWindow = 300 * time.Millisecond

// Entity is anything the adapter can write; model.Task and model.Note implement it.
type Entity interface {
	EntityKey() string
}

// Failure describes a write the backend rejected.
type Failure struct {
	Op     string
	Key    string
	Entity Entity
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Key, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

type Notifier interface {
	Notify(f Failure)
}

type NotifierFunc func(f Failure)

func (fn NotifierFunc) Notify(f Failure) { fn(f) }

type Options struct {
	Tasks backend.TaskService
	Notes backend.NoteService
	// Window is the quiet period per key; DefaultWindow when zero.
	Window time.Duration
	// Poster receives completion callbacks; loop.Inline when nil.
	Poster   loop.Poster
	Notifier Notifier
	// OnSaved is posted after every successful debounced write with the backend's copy.
	OnSaved func(Entity)
	// WriteTimeout bounds each backend call; 30s when zero.
	WriteTimeout time.Duration
	Log          *logrus.Entry
}

type slot struct {
	val     Entity
	timer   *time.Timer
	dirty   bool
	running bool
	// urgent asks the in-flight writer to send val again without waiting for the window.
	urgent bool
	// held is set when the window elapsed while an immediate write for the key was queued.
	held bool
}

type job struct {
	keys []string
	fn   func()
}

type Adapter struct {
	tasks   backend.TaskService
	notes   backend.NoteService
	window  time.Duration
	timeout time.Duration
	poster  loop.Poster
	notify  Notifier
	onSaved func(Entity)
	log     *logrus.Entry

	mu    sync.Mutex
	slots map[string]*slot
	jobs  []job
	// queued counts immediate writes per key, queued or in flight.
	queued map[string]int
	// writing is set while a goroutine drains jobs.
	writing bool
	busy    int
	// idle is closed whenever busy drops to zero.
	idle chan struct{}
}

func New(opts Options) *Adapter {
	a := &Adapter{
		tasks:   opts.Tasks,
		notes:   opts.Notes,
		window:  opts.Window,
		timeout: opts.WriteTimeout,
		poster:  opts.Poster,
		notify:  opts.Notifier,
		onSaved: opts.OnSaved,
		log:     opts.Log,
		slots:   map[string]*slot{},
		queued:  map[string]int{},
	}
	if a.window <= 0 {
		a.window = DefaultWindow
	}
	if a.timeout <= 0 {
		a.timeout = 30 * time.Second
	}
	if a.poster == nil {
		a.poster = loop.Inline
	}
	if a.log == nil {
		a.log = logging.For("persist")
	}
	if a.notify == nil {
		a.notify = NotifierFunc(func(f Failure) {
			a.log.WithError(f.Err).WithField("key", f.Key).Errorf("%s failed", f.Op)
		})
	}
	return a
}

func (a *Adapter) Window() time.Duration { return a.window }

// Schedule records e as the latest value for its key and (re)starts the key's quiet window.
func (a *Adapter) Schedule(e Entity) {
	if e == nil {
		return
	}
	key := e.EntityKey()
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.slots[key]
	if s == nil {
		s = &slot{}
		a.slots[key] = s
	}
	s.val = e
	s.dirty = true
	if s.timer == nil {
		s.timer = time.AfterFunc(a.window, func() { a.fire(key, s) })
		return
	}
	s.timer.Reset(a.window)
}

func (a *Adapter) fire(key string, s *slot) {
	a.mu.Lock()
	v, ok := a.claim(key, s)
	a.mu.Unlock()
	if ok {
		go a.runSlot(key, s, v)
	}
}

// claim marks s as being written and returns the value to send. It must be
// called with mu held.
func (a *Adapter) claim(key string, s *slot) (Entity, bool) {
	if a.slots[key] != s {
		return nil, false
	}
	if s.running {
		// A write for this key is in flight; it re-arms when done if still dirty.
		return nil, false
	}
	if !s.dirty {
		delete(a.slots, key)
		return nil, false
	}
	if a.queued[key] > 0 {
		s.held = true
		return nil, false
	}
	v := s.val
	s.dirty = false
	s.urgent = false
	s.held = false
	s.running = true
	a.begin()
	return v, true
}

// begin and end must be called with mu held.
func (a *Adapter) begin() {
	if a.busy == 0 {
		a.idle = make(chan struct{})
	}
	a.busy++
}

func (a *Adapter) end() {
	a.busy--
	if a.busy == 0 {
		close(a.idle)
	}
}

func (a *Adapter) runSlot(key string, s *slot, v Entity) {
	for {
		saved, err := a.update(v)
		a.report("update", key, v, saved, err)

		a.mu.Lock()
		if s.dirty && s.urgent {
			v = s.val
			s.dirty = false
			s.urgent = false
			a.mu.Unlock()
			continue
		}
		s.running = false
		a.end()
		switch {
		case a.slots[key] != s:
		case s.dirty:
			s.timer.Reset(a.window)
		default:
			delete(a.slots, key)
		}
		a.mu.Unlock()
		return
	}
}

func (a *Adapter) report(op, key string, v Entity, saved Entity, err error) {
	if err != nil {
		f := Failure{Op: op, Key: key, Entity: v, Err: err}
		a.poster.Post(func() { a.notify.Notify(f) })
		return
	}
	if a.onSaved != nil && saved != nil {
		a.poster.Post(func() { a.onSaved(saved) })
	}
}

func (a *Adapter) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

func (a *Adapter) update(e Entity) (Entity, error) {
	ctx, cancel := a.ctx()
	defer cancel()
	switch v := e.(type) {
	case model.Task:
		if a.tasks == nil {
			return nil, fmt.Errorf("no task service configured")
		}
		t, err := a.tasks.UpdateTask(ctx, v)
		if err != nil {
			return nil, err
		}
		return t, nil
	case model.Note:
		if a.notes == nil {
			return nil, fmt.Errorf("no note service configured")
		}
		n, err := a.notes.UpdateNote(ctx, v)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, fmt.Errorf("unsupported entity %T", e)
}

// supersede drops the pending debounced value for key. If a write for key is in
// flight and replacement is non-nil, the in-flight writer sends replacement next.
// It reports whether the caller should write itself.
func (a *Adapter) supersede(key string, replacement Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.slots[key]
	if s == nil {
		return true
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.running {
		if replacement == nil {
			s.dirty = false
			s.urgent = false
			delete(a.slots, key)
			return true
		}
		s.val = replacement
		s.dirty = true
		s.urgent = true
		return false
	}
	delete(a.slots, key)
	return true
}

// Cancel drops any pending debounced value for key without writing it.
func (a *Adapter) Cancel(key string) {
	a.supersede(key, nil)
}

// goWrite queues an immediate write touching keys. Immediate writes run one
// at a time in the order they were queued.
func (a *Adapter) goWrite(keys []string, fn func()) {
	a.mu.Lock()
	a.begin()
	for _, k := range keys {
		a.queued[k]++
	}
	a.jobs = append(a.jobs, job{keys: keys, fn: fn})
	if a.writing {
		a.mu.Unlock()
		return
	}
	a.writing = true
	a.mu.Unlock()
	go a.drain()
}

func (a *Adapter) drain() {
	for {
		a.mu.Lock()
		if len(a.jobs) == 0 {
			a.writing = false
			a.mu.Unlock()
			return
		}
		j := a.jobs[0]
		a.jobs[0] = job{}
		a.jobs = a.jobs[1:]
		a.mu.Unlock()

		j.fn()

		a.mu.Lock()
		type start struct {
			key string
			s   *slot
			v   Entity
		}
		var starts []start
		for _, k := range j.keys {
			if a.queued[k]--; a.queued[k] > 0 {
				continue
			}
			delete(a.queued, k)
			if s := a.slots[k]; s != nil && s.held {
				if v, ok := a.claim(k, s); ok {
					starts = append(starts, start{k, s, v})
				}
			}
		}
		a.end()
		a.mu.Unlock()
		for _, st := range starts {
			go a.runSlot(st.key, st.s, st.v)
		}
	}
}

// CreateTask writes t immediately. done runs on the poster with the backend's copy.
func (a *Adapter) CreateTask(t model.Task, done func(model.Task, error)) {
	a.goWrite(nil, func() {
		ctx, cancel := a.ctx()
		defer cancel()
		created, err := a.tasks.CreateTask(ctx, t)
		if err != nil {
			f := Failure{Op: "create", Key: "task:new", Entity: t, Err: err}
			a.poster.Post(func() {
				a.notify.Notify(f)
				if done != nil {
					done(model.Task{}, err)
				}
			})
			return
		}
		a.poster.Post(func() {
			if done != nil {
				done(created, nil)
			}
		})
	})
}

// DeleteTask cancels pending edits of the task and deletes it immediately.
func (a *Adapter) DeleteTask(id int64, done func(error)) {
	key := model.Task{ID: id}.EntityKey()
	a.Cancel(key)
	a.goWrite([]string{key}, func() {
		ctx, cancel := a.ctx()
		defer cancel()
		err := a.tasks.DeleteTask(ctx, id)
		a.poster.Post(func() {
			if err != nil {
				a.notify.Notify(Failure{Op: "delete", Key: key, Entity: model.Task{ID: id}, Err: err})
			}
			if done != nil {
				done(err)
			}
		})
	})
}

// Save writes e immediately, superseding any pending debounced value for its key.
func (a *Adapter) Save(e Entity) {
	if e == nil || !a.supersede(e.EntityKey(), e) {
		return
	}
	a.goWrite([]string{e.EntityKey()}, func() {
		saved, err := a.update(e)
		a.report("update", e.EntityKey(), e, saved, err)
	})
}

// SavePositions writes structural changes to many tasks at once, through a
// single batch call when the task service supports it.
func (a *Adapter) SavePositions(ts []model.Task) {
	if len(ts) == 0 {
		return
	}
	batch := make([]model.Task, 0, len(ts))
	var keys []string
	for _, t := range ts {
		if !t.Persisted() {
			continue
		}
		if a.supersede(t.EntityKey(), t) {
			batch = append(batch, t)
			keys = append(keys, t.EntityKey())
		}
	}
	if len(batch) == 0 {
		return
	}
	if bu, ok := a.tasks.(backend.BatchTaskUpdater); ok {
		a.goWrite(keys, func() {
			ctx, cancel := a.ctx()
			defer cancel()
			if _, err := bu.UpdateTasks(ctx, batch); err != nil {
				f := Failure{Op: "reorder", Key: batchKey(batch), Entity: batch[0], Err: err}
				a.poster.Post(func() { a.notify.Notify(f) })
			}
		})
		return
	}
	a.goWrite(keys, func() {
		for _, t := range batch {
			saved, err := a.update(t)
			a.report("update", t.EntityKey(), t, saved, err)
		}
	})
}

// batchKey names the tasks of a batch, e.g. "tasks:4,7,9".
func batchKey(ts []model.Task) string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = strconv.FormatInt(t.ID, 10)
	}
	return "tasks:" + strings.Join(ids, ",")
}

// CreateNote and DeleteNote mirror the task variants.
func (a *Adapter) CreateNote(n model.Note, done func(model.Note, error)) {
	a.goWrite(nil, func() {
		ctx, cancel := a.ctx()
		defer cancel()
		created, err := a.notes.CreateNote(ctx, n)
		a.poster.Post(func() {
			if err != nil {
				a.notify.Notify(Failure{Op: "create", Key: "note:new", Entity: n, Err: err})
			}
			if done != nil {
				done(created, err)
			}
		})
	})
}

func (a *Adapter) DeleteNote(id int64, done func(error)) {
	key := model.Note{ID: id}.EntityKey()
	a.Cancel(key)
	a.goWrite([]string{key}, func() {
		ctx, cancel := a.ctx()
		defer cancel()
		err := a.notes.DeleteNote(ctx, id)
		a.poster.Post(func() {
			if err != nil {
				a.notify.Notify(Failure{Op: "delete", Key: key, Entity: model.Note{ID: id}, Err: err})
			}
			if done != nil {
				done(err)
			}
		})
	})
}

// Pending reports keys waiting for their window plus writes in flight.
func (a *Adapter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.busy
	for _, s := range a.slots {
		if s.dirty && !s.running {
			n++
		}
	}
	return n
}

// Flush fires every pending debounced write now and waits for all writes to finish.
// Completion callbacks are posted, not run; callers on the event loop must not block on Flush.
func (a *Adapter) Flush(ctx context.Context) error {
	a.mu.Lock()
	type pend struct {
		key string
		s   *slot
	}
	var due []pend
	for k, s := range a.slots {
		if s.timer != nil {
			s.timer.Stop()
		}
		due = append(due, pend{k, s})
	}
	a.mu.Unlock()
	for _, p := range due {
		a.fire(p.key, p.s)
	}

	a.mu.Lock()
	idle, busy := a.idle, a.busy
	a.mu.Unlock()
	if busy > 0 {
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// A write that finished dirty re-armed its timer; flush again until idle.
	if a.Pending() > 0 {
		return a.Flush(ctx)
	}
	return nil
}
