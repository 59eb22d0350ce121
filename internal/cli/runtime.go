package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/bus"
	"dshbd-cli/internal/feed"
	"dshbd-cli/internal/logging"
	"dshbd-cli/internal/loop"
	"dshbd-cli/internal/remote"
	"dshbd-cli/internal/session"
	"dshbd-cli/internal/store"
)

// runtime is one command's view of the world: config, backend, and a session
// driven by its own event loop.
type runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *store.Config
	be     backend.Backend
	remote *remote.Client
	feed   *feed.Feed
	loop   *loop.Loop
	hub    *bus.Hub
	sess   *session.Session
	log    *logrus.Entry

	closers []io.Closer
	// notices is only touched on the loop.
	notices []session.Notice
}

// noticeError surfaces a session notice as a command error.
type noticeError struct {
	n session.Notice
}

func (e noticeError) Error() string { return e.n.Message }

func (e noticeError) Unwrap() error { return e.n.Err }

func (app *App) config() (*store.Config, error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(app.Backend) != "" {
		cfg.Backend = app.Backend
	}
	if strings.TrimSpace(app.APIURL) != "" {
		cfg.APIURL = app.APIURL
	}
	if app.Debounce > 0 {
		cfg.DebounceMs = int(app.Debounce.Milliseconds())
	}
	return cfg, nil
}

// open builds the runtime. Session callbacks go through poster, or through the
// runtime's own loop when poster is nil.
func (app *App) open(cmd *cobra.Command, poster loop.Poster) (*runtime, error) {
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	rt := &runtime{ctx: ctx, cancel: cancel, cfg: cfg, log: logging.For("cli")}

	switch cfg.BackendKind() {
	case store.BackendLocal:
		dir, err := store.ConfigDir()
		if err != nil {
			rt.close()
			return nil, err
		}
		db, err := store.Open(ctx, dir)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.be = db
		rt.closers = append(rt.closers, db)
	case store.BackendRemote:
		c, err := remote.New(remote.Options{BaseURL: cfg.APIURL, Token: cfg.APIToken})
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.be = c
		rt.remote = c
	default:
		rt.close()
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}

	if cfg.RedisURL != "" {
		f, err := feed.New(feed.Options{URL: cfg.RedisURL})
		if err != nil {
			rt.log.WithError(err).Warn("change feed disabled")
		} else {
			rt.feed = f
			rt.closers = append(rt.closers, f)
			rt.be = feed.Wrap(rt.be, f)
		}
	}

	rt.loop = loop.New()
	go func() { _ = rt.loop.Run(ctx) }()
	if poster == nil {
		poster = rt.loop
	}
	rt.hub = bus.NewHub(logging.For("bus"))
	rt.sess, err = session.New(session.Options{
		Hub:         rt.hub,
		Backend:     rt.be,
		Poster:      poster,
		Window:      cfg.Debounce(),
		LastBoardID: cfg.LastBoardID,
		Remember:    store.RememberBoard,
		Feed:        rt.feed,
		Log:         logging.For("session"),
	})
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.sess.Notices.Subscribe(func(n session.Notice) { rt.notices = append(rt.notices, n) })
	return rt, nil
}

// do runs fn on the session's loop.
func (rt *runtime) do(fn func() error) error {
	return rt.loop.Do(rt.ctx, fn)
}

// selectBoard loads the given board, or the remembered one when id is 0.
func (rt *runtime) selectBoard(id int64) error {
	return rt.do(func() error {
		if id > 0 {
			return rt.sess.SelectBoard(rt.ctx, id)
		}
		return rt.sess.Load(rt.ctx)
	})
}

// finish writes everything out and reports the first notice as an error.
func (rt *runtime) finish() error {
	if err := rt.sess.Settle(rt.ctx, rt.loop); err != nil {
		return err
	}
	var first *session.Notice
	if err := rt.do(func() error {
		if len(rt.notices) > 0 {
			n := rt.notices[0]
			first = &n
		}
		return nil
	}); err != nil {
		return err
	}
	if first != nil {
		return noticeError{n: *first}
	}
	return nil
}

func (rt *runtime) close() {
	if rt.sess != nil {
		rt.sess.Close()
	}
	if rt.loop != nil {
		rt.loop.Close()
		<-rt.loop.Done()
	}
	rt.cancel()
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		rt.log.WithError(err).Warn("close failed")
	}
}

// result renders a command's payload once all writes have settled. It runs on the loop.
type result func() (any, error)

// withSession opens a runtime, runs fn, settles every write, then writes the
// payload fn returned.
func (app *App) withSession(cmd *cobra.Command, fn func(rt *runtime) (result, error)) error {
	rt, err := app.open(cmd, nil)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer rt.close()
	res, err := fn(rt)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := rt.finish(); err != nil {
		return writeErr(cmd, err)
	}
	if res == nil {
		return nil
	}
	var out any
	if err := rt.do(func() error {
		var err error
		out, err = res()
		return err
	}); err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, out)
}

func envelope(data any, meta map[string]any) map[string]any {
	out := map[string]any{"data": data}
	if len(meta) > 0 {
		out["meta"] = meta
	}
	return out
}
