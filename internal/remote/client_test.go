package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/logging"
	"dshbd-cli/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, Token: "tok", BreakerTimeout: time.Hour, Log: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_BoardTasksByStatus(t *testing.T) {
	t.Parallel()
	var gotAuth, gotReqID, gotQuery string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/boards/3/tasks/status" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotQuery = r.URL.Query().Get("status")
		_ = json.NewEncoder(w).Encode([]model.Task{{ID: 1, Title: "a", Status: model.StatusToDo, BoardID: 3}})
	}))

	ts, err := c.BoardTasksByStatus(context.Background(), 3, model.StatusToDo)
	if err != nil {
		t.Fatalf("BoardTasksByStatus: %v", err)
	}
	if len(ts) != 1 || ts[0].Title != "a" {
		t.Fatalf("unexpected tasks: %+v", ts)
	}
	if gotAuth != "Bearer tok" || gotReqID == "" || gotQuery != "to-do" {
		t.Fatalf("unexpected request headers/query: auth=%q reqID=%q status=%q", gotAuth, gotReqID, gotQuery)
	}
}

func TestClient_CreateAndUpdateTask(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tasks" {
			http.NotFound(w, r)
			return
		}
		var in model.Task
		_ = json.NewDecoder(r.Body).Decode(&in)
		switch r.Method {
		case http.MethodPost:
			if in.ID != 0 {
				http.Error(w, "id must be empty", http.StatusBadRequest)
				return
			}
			in.ID = 10
			in.CreatedDate = "2025-12-20T10:00:00.000Z"
		case http.MethodPut:
			in.LastModifiedDate = "2025-12-20T11:00:00.000Z"
		}
		_ = json.NewEncoder(w).Encode(in)
	}))

	created, err := c.CreateTask(context.Background(), model.Task{ID: 99, Title: "x", BoardID: 1})
	if err != nil || created.ID != 10 {
		t.Fatalf("CreateTask: %+v %v", created, err)
	}
	created.Title = "y"
	updated, err := c.UpdateTask(context.Background(), created)
	if err != nil || updated.Title != "y" || updated.LastModifiedDate == "" {
		t.Fatalf("UpdateTask: %+v %v", updated, err)
	}
}

func TestClient_MapsDomainErrors(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/api/tasks/5"):
			http.Error(w, `{"detail":"Task has already been started"}`, http.StatusBadRequest)
		case r.Method == http.MethodPut:
			http.Error(w, `{"detail":"Task has already been completed"}`, http.StatusBadRequest)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()
	if err := c.DeleteTask(ctx, 5); !errors.Is(err, backend.ErrTaskStarted) {
		t.Fatalf("expected ErrTaskStarted; got %v", err)
	}
	if _, err := c.UpdateTask(ctx, model.Task{ID: 5}); !errors.Is(err, backend.ErrTaskCompleted) {
		t.Fatalf("expected ErrTaskCompleted; got %v", err)
	}
	if _, err := c.Task(ctx, 6); !backend.IsNotFound(err) {
		t.Fatalf("expected not found; got %v", err)
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()
	var hits int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := c.Boards(ctx); err == nil {
			t.Fatalf("expected server error")
		}
	}
	_, err := c.Boards(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker; got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 4 {
		t.Fatalf("expected open breaker to short-circuit; server saw %d calls", n)
	}
	if c.BreakerState() != "open" {
		t.Fatalf("expected state open; got %s", c.BreakerState())
	}
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	for i := 0; i < 6; i++ {
		_, _ = c.Task(context.Background(), 1)
	}
	if c.BreakerState() != "closed" {
		t.Fatalf("expected closed breaker after 404s; got %s", c.BreakerState())
	}
}
