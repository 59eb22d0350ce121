// Package session owns the active board: it answers the hub's request streams,
// keeps partitions dense, and hands every write to the persistence adapter.
//
// All methods except Fetch, Watch and Settle must run on the event loop that
// receives the adapter's callbacks.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/bus"
	"dshbd-cli/internal/feed"
	"dshbd-cli/internal/logging"
	"dshbd-cli/internal/loop"
	"dshbd-cli/internal/model"
	"dshbd-cli/internal/ordering"
	"dshbd-cli/internal/persist"
	"dshbd-cli/internal/projection"
	"dshbd-cli/internal/tags"
)

// Notice is a user-facing message: a refused request or a failed write.
type Notice struct {
	Level   logrus.Level
	Message string
	Err     error
}

type Options struct {
	Hub     *bus.Hub
	Backend backend.Backend
	// Poster runs adapter callbacks on the event loop.
	Poster loop.Poster
	// Window is the debounce window for field edits; persist.DefaultWindow when zero.
	Window time.Duration
	Tags   *tags.Registry
	// LastBoardID is preferred by Load when it still exists.
	LastBoardID int64
	// Remember is called with the id of every selected board.
	Remember func(id int64) error
	Feed     *feed.Feed
	Log      *logrus.Entry
}

type Session struct {
	hub      *bus.Hub
	be       backend.Backend
	adapter  *persist.Adapter
	poster   loop.Poster
	tags     *tags.Registry
	lastID   int64
	remember func(int64) error
	feed     *feed.Feed
	log      *logrus.Entry

	View    *bus.Cell[model.BoardView]
	Notices *bus.Stream[Notice]

	subs     bus.Group
	activeID atomic.Int64
}

func New(opts Options) (*Session, error) {
	if opts.Hub == nil {
		return nil, errors.New("session: missing hub")
	}
	if opts.Backend == nil {
		return nil, errors.New("session: missing backend")
	}
	s := &Session{
		hub:      opts.Hub,
		be:       opts.Backend,
		poster:   opts.Poster,
		tags:     opts.Tags,
		lastID:   opts.LastBoardID,
		remember: opts.Remember,
		feed:     opts.Feed,
		log:      opts.Log,
	}
	if s.poster == nil {
		s.poster = loop.Inline
	}
	if s.tags == nil {
		s.tags = tags.NewRegistry()
	}
	if s.log == nil {
		s.log = logging.For("session")
	}
	s.View = bus.NewCell(opts.Hub.Bus, "boardView", model.BoardView{})
	s.Notices = bus.NewStream[Notice](opts.Hub.Bus, "notices")
	s.adapter = persist.New(persist.Options{
		Tasks:    opts.Backend,
		Notes:    opts.Backend,
		Window:   opts.Window,
		Poster:   s.poster,
		Notifier: persist.NotifierFunc(s.writeFailed),
		OnSaved:  s.saved,
		Log:      s.log.WithField("component", "persist"),
	})

	h := opts.Hub
	s.subs.Add(
		h.CreateRequests.Subscribe(s.handleCreate),
		h.UpdateRequests.Subscribe(s.handleUpdate),
		h.StatusRequests.Subscribe(s.handleStatus),
		h.DeleteRequests.Subscribe(s.handleDelete),
		h.TagFilter.Subscribe(func(tag string) {
			s.View.Update(func(v model.BoardView) model.BoardView { return v.WithTag(tag) })
		}),
	)
	return s, nil
}

func (s *Session) Hub() *bus.Hub              { return s.hub }
func (s *Session) Adapter() *persist.Adapter  { return s.adapter }
func (s *Session) Tags() *tags.Registry       { return s.tags }
func (s *Session) Backend() backend.Backend   { return s.be }
func (s *Session) Board() *model.Board        { return s.hub.ActiveBoard.Get() }
func (s *Session) ActiveTask() *model.Task    { return s.hub.ActiveTask.Get() }
func (s *Session) EditorOpen() bool           { return s.hub.EditorOpen.Get() }
func (s *Session) ViewState() model.BoardView { return s.View.Get() }

// Close detaches the session from the hub. Pending writes are not flushed; see Settle.
func (s *Session) Close() {
	s.subs.Close()
}

func (s *Session) warn(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.log.WithError(err).Warn(msg)
	s.Notices.Publish(Notice{Level: logrus.WarnLevel, Message: msg, Err: err})
}

func (s *Session) writeFailed(f persist.Failure) {
	s.log.WithError(f.Err).WithFields(logrus.Fields{"op": f.Op, "key": f.Key}).Error("write failed")
	s.Notices.Publish(Notice{Level: logrus.ErrorLevel, Message: f.Error(), Err: f})
}

// saved records server timestamps of a debounced write without touching newer local edits.
func (s *Session) saved(e persist.Entity) {
	t, ok := e.(model.Task)
	if !ok {
		return
	}
	cur, found := s.Board().Find(t.ID)
	if !found {
		return
	}
	if t.LastModifiedDate != "" {
		cur.LastModifiedDate = t.LastModifiedDate
	}
	if cur.CreatedDate == "" {
		cur.CreatedDate = t.CreatedDate
	}
}

// Fetch loads a board with its tasks. It does not touch session state.
func (s *Session) Fetch(ctx context.Context, id int64) (*model.Board, error) {
	b, err := s.be.Board(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Tasks == nil {
		ts, err := s.be.BoardTasks(ctx, id)
		if err != nil {
			return nil, err
		}
		for i := range ts {
			b.Tasks = append(b.Tasks, &ts[i])
		}
	}
	return &b, nil
}

// Load picks the remembered board, else the first board that is not archived,
// creating the default board when there is none.
func (s *Session) Load(ctx context.Context) error {
	boards, err := s.be.Boards(ctx)
	if err != nil {
		return err
	}
	if len(boards) == 0 {
		b, err := s.be.CreateBoard(ctx, model.Board{
			Title:         model.DefaultBoardTitle,
			ToDoLimit:     model.DefaultToDoLimit,
			ProgressLimit: model.DefaultProgressLimit,
		})
		if err != nil {
			return err
		}
		boards = append(boards, b)
	}
	id := boards[0].ID
	for _, b := range boards {
		if !b.Archived {
			id = b.ID
			break
		}
	}
	if s.lastID != 0 {
		for _, b := range boards {
			if b.ID == s.lastID {
				id = b.ID
				break
			}
		}
	}
	return s.SelectBoard(ctx, id)
}

// SelectBoard fetches the board and replaces the active board with it.
func (s *Session) SelectBoard(ctx context.Context, id int64) error {
	b, err := s.Fetch(ctx, id)
	if err != nil {
		return err
	}
	s.Apply(b, false)
	s.lastID = id
	if s.remember != nil {
		if err := s.remember(id); err != nil {
			s.log.WithError(err).Warn("unable to remember board")
		}
	}
	return nil
}

// Apply makes b the active board. With keepActive the editor stays bound to the
// same task id when b still has it.
func (s *Session) Apply(b *model.Board, keepActive bool) {
	var keep *model.Task
	if cur := s.hub.ActiveTask.Get(); keepActive && cur != nil {
		keep, _ = b.Find(cur.ID)
	}
	for _, t := range b.Tasks {
		s.tags.Add(tags.Extract(t.Description)...)
	}
	s.activeID.Store(b.ID)
	s.hub.ActiveBoard.Set(b)
	if keep != nil {
		s.hub.ActiveTask.Set(keep)
		return
	}
	if s.hub.ActiveTask.Get() != nil {
		s.hub.ActiveTask.Set(nil)
	}
	if s.hub.EditorOpen.Get() {
		s.hub.EditorOpen.Set(false)
	}
}

// touched republishes the active board after an in-place change.
func (s *Session) touched(b *model.Board) {
	if s.hub.ActiveBoard.Get() == b {
		s.hub.ActiveBoard.Set(b)
	}
}

func values(ts []*model.Task) []model.Task {
	out := make([]model.Task, 0, len(ts))
	for _, t := range ts {
		out = append(out, *t.Clone())
	}
	return out
}

func indexOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func (s *Session) handleCreate(req bus.CreateRequest) {
	b := s.Board()
	if b == nil {
		s.warn(nil, "no active board")
		return
	}
	t := req.Task
	t.ID = 0
	t.BoardID = b.ID
	if t.Status == "" {
		t.Status = model.StatusBacklog
	}
	if !t.Status.Valid() {
		s.warn(nil, "invalid status: %q", t.Status)
		return
	}
	idx := indexOr(req.Index, 0)
	if n := len(b.Partition(t.Status)); idx > n {
		idx = n
	}
	if idx < 0 {
		idx = 0
	}
	t.Position = idx
	s.log.WithFields(logrus.Fields{"request": req.RequestID, "status": t.Status}).Debug("create task")

	s.adapter.CreateTask(t, func(created model.Task, err error) {
		if err != nil {
			return
		}
		if s.Board() != b {
			return
		}
		sent := created.Position
		ptr := created.Clone()
		changed := ordering.FromBoard(b, created.Status).Insert(ptr, idx)
		b.Tasks = append(b.Tasks, ptr)
		others := make([]*model.Task, 0, len(changed))
		for _, c := range changed {
			if c != ptr || c.Position != sent {
				others = append(others, c)
			}
		}
		s.adapter.SavePositions(values(others))
		s.tags.Add(tags.Extract(ptr.Description)...)
		s.touched(b)
		s.hub.ActiveTask.Set(ptr)
		s.hub.EditorOpen.Set(true)
	})
}

func (s *Session) handleUpdate(req bus.UpdateRequest) {
	b := s.Board()
	t, ok := b.Find(req.Task.ID)
	if !ok {
		s.warn(backend.ErrNotFound("task", req.Task.ID), "task %d is not on the active board", req.Task.ID)
		return
	}
	if t.Status == model.StatusDone {
		s.warn(backend.ErrTaskCompleted, "task %d is done and can no longer be edited", t.ID)
		return
	}
	t.ApplyFields(req.Task)
	if s.tags.Add(tags.Extract(t.Description)...) {
		s.log.WithField("task", t.ID).Debug("new tags registered")
	}
	s.adapter.Schedule(*t.Clone())
	s.touched(b)
}

func (s *Session) handleStatus(req bus.StatusRequest) {
	b := s.Board()
	t, ok := b.Find(req.TaskID)
	if !ok {
		s.warn(backend.ErrNotFound("task", req.TaskID), "task %d is not on the active board", req.TaskID)
		return
	}
	if !req.Status.Valid() {
		s.warn(nil, "invalid status: %q", req.Status)
		return
	}
	src := ordering.FromBoard(b, t.Status)
	from := src.Index(t.ID)
	to := indexOr(req.Index, 0)
	var changed []*model.Task
	if req.Status == t.Status {
		changed = src.Reorder(from, to)
	} else {
		changed = src.Transfer(ordering.FromBoard(b, req.Status), from, to)
	}
	if len(changed) == 0 {
		return
	}
	s.adapter.SavePositions(values(changed))
	s.touched(b)
}

func (s *Session) handleDelete(req bus.DeleteRequest) {
	b := s.Board()
	t, ok := b.Find(req.TaskID)
	if !ok {
		s.warn(backend.ErrNotFound("task", req.TaskID), "task %d is not on the active board", req.TaskID)
		return
	}
	if t.Status != model.StatusBacklog {
		s.warn(backend.ErrTaskStarted, "only backlog tasks can be deleted")
		return
	}
	id := t.ID
	s.adapter.DeleteTask(id, func(err error) {
		if err != nil || s.Board() != b {
			return
		}
		removed, changed := ordering.FromBoard(b, t.Status).Remove(id)
		if removed == nil {
			return
		}
		for i, x := range b.Tasks {
			if x == removed {
				b.Tasks = append(b.Tasks[:i:i], b.Tasks[i+1:]...)
				break
			}
		}
		s.adapter.SavePositions(values(changed))
		s.touched(b)
		if cur := s.hub.ActiveTask.Get(); cur != nil && cur.ID == id {
			s.hub.EditorOpen.Set(false)
			s.hub.ActiveTask.Set(nil)
		}
	})
}

// Projection is the current board under the current view.
func (s *Session) Projection() map[model.Status][]model.Task {
	return projection.Project(s.Board(), s.View.Get())
}

func (s *Session) Columns() []projection.Column {
	return projection.Columns(s.Board(), s.View.Get())
}

// Watch refreshes the active board whenever another session writes to it.
// It blocks until ctx is done; without a feed it returns immediately.
func (s *Session) Watch(ctx context.Context) {
	if s.feed == nil {
		return
	}
	s.feed.Subscribe(ctx, func(c feed.Change) {
		id := s.activeID.Load()
		if id == 0 || (c.BoardID != 0 && c.BoardID != id) {
			return
		}
		b, err := s.Fetch(ctx, id)
		if err != nil {
			s.log.WithError(err).Warn("refresh failed")
			return
		}
		s.poster.Post(func() {
			cur := s.Board()
			if cur == nil || cur.ID != b.ID {
				return
			}
			// Local edits win until they are written.
			if s.adapter.Pending() > 0 {
				s.log.WithField("board", b.ID).Debug("refresh skipped while writes are pending")
				return
			}
			s.Apply(b, true)
		})
	})
}

// Settle flushes every write and runs the resulting callbacks on l until nothing
// is pending. It must not be called from l's goroutine.
func (s *Session) Settle(ctx context.Context, l *loop.Loop) error {
	for {
		if err := s.adapter.Flush(ctx); err != nil {
			return err
		}
		if err := l.Do(ctx, func() error { return nil }); err != nil {
			return err
		}
		if s.adapter.Pending() == 0 {
			return nil
		}
	}
}
