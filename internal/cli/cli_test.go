package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"dshbd-cli/internal/model"
	"dshbd-cli/internal/store"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func mustEnv(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: dshbd %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, string(stderr), string(stdout))
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, string(stdout), args)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	return env
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", env["data"])
	}
	return m
}

func titlesOf(t *testing.T, v any) []string {
	t.Helper()
	list, ok := v.([]any)
	if !ok {
		t.Fatalf("expected list, got %T", v)
	}
	var out []string
	for _, it := range list {
		out = append(out, it.(map[string]any)["title"].(string))
	}
	return out
}

func idArg(v any) string {
	return fmt.Sprintf("task-%d", int64(v.(float64)))
}

func jsonNumber(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestTasksFlow_CreateMoveShowAndRefuse(t *testing.T) {
	t.Setenv("DSHBD_CONFIG_DIR", t.TempDir())

	boards := mustEnv(t, "boards", "list")
	if n := len(boards["data"].([]any)); n != 1 {
		t.Fatalf("expected the default board, got %d boards", n)
	}

	docs := dataMap(t, mustEnv(t, "tasks", "create", "Write docs", "--status", "to-do", "--description", "see #docs"))
	bug := dataMap(t, mustEnv(t, "tasks", "create", "Fix bug", "--status", "to-do"))
	if docs["status"] != "to-do" || bug["position"] != float64(0) {
		t.Fatalf("unexpected created tasks: %v %v", docs, bug)
	}

	list := mustEnv(t, "tasks", "list", "--status", "to-do")
	if got := titlesOf(t, list["data"]); strings.Join(got, "|") != "Fix bug|Write docs" {
		t.Fatalf("to-do order = %v", got)
	}

	moved := dataMap(t, mustEnv(t, "tasks", "move", idArg(docs["id"]), "--status", "in-progress"))
	if moved["status"] != "in-progress" || moved["position"] != float64(0) {
		t.Fatalf("moved = %v", moved)
	}
	list = mustEnv(t, "tasks", "list", "--status", "to-do")
	if got := titlesOf(t, list["data"]); strings.Join(got, "|") != "Fix bug" {
		t.Fatalf("to-do after move = %v", got)
	}

	show := dataMap(t, mustEnv(t, "board", "show", "--tag", "docs"))
	cols := show["columns"].([]any)
	if len(cols) != 3 {
		t.Fatalf("expected backlog to be hidden, got %d columns", len(cols))
	}
	for _, c := range cols {
		col := c.(map[string]any)
		want := 0
		if col["status"] == "in-progress" {
			want = 1
		}
		if int(col["count"].(float64)) != want {
			t.Fatalf("column %v count = %v, want %d", col["status"], col["count"], want)
		}
	}

	_, stderr, err := runCLI(t, []string{"tasks", "delete", idArg(bug["id"])})
	if err == nil {
		t.Fatalf("expected delete of a to-do task to fail")
	}
	if !strings.Contains(string(stderr), "only backlog tasks can be deleted") {
		t.Fatalf("stderr = %q", string(stderr))
	}

	tags := mustEnv(t, "tags", "list")
	if got := jsonNumber(tags["data"]); got != `["#docs"]` {
		t.Fatalf("tags = %s", got)
	}
}

func TestTasksEdit_DoneTaskIsRefused(t *testing.T) {
	t.Setenv("DSHBD_CONFIG_DIR", t.TempDir())

	task := dataMap(t, mustEnv(t, "tasks", "create", "Ship it", "--status", "done"))
	_, stderr, err := runCLI(t, []string{"tasks", "edit", idArg(task["id"]), "--title", "Ship it again"})
	if err == nil {
		t.Fatalf("expected editing a done task to fail")
	}
	if !strings.Contains(string(stderr), "can no longer be edited") {
		t.Fatalf("stderr = %q", string(stderr))
	}

	shown := dataMap(t, mustEnv(t, "task", "show", idArg(task["id"])))
	if shown["title"] != "Ship it" {
		t.Fatalf("title = %v", shown["title"])
	}
}

func TestBoardsEdit_UpdatesSettings(t *testing.T) {
	t.Setenv("DSHBD_CONFIG_DIR", t.TempDir())

	boards := mustEnv(t, "boards", "list")
	first := boards["data"].([]any)[0].(map[string]any)
	id := fmt.Sprintf("%d", int64(first["id"].(float64)))

	edited := dataMap(t, mustEnv(t, "boards", "edit", id, "--title", "Work", "--progress-limit", "2", "--auto-pull"))
	if edited["title"] != "Work" || edited["progressLimit"] != float64(2) || edited["autoPull"] != true {
		t.Fatalf("edited = %v", edited)
	}
	if edited["toDoLimit"] != first["toDoLimit"] {
		t.Fatalf("untouched to-do limit changed: %v -> %v", first["toDoLimit"], edited["toDoLimit"])
	}

	listed := mustEnv(t, "boards", "list")["data"].([]any)[0].(map[string]any)
	if listed["title"] != "Work" || listed["autoPull"] != true {
		t.Fatalf("listed = %v", listed)
	}

	if _, _, err := runCLI(t, []string{"boards", "edit", id, "--todo-limit=-1"}); err == nil {
		t.Fatalf("expected a negative limit to be rejected")
	}
	if _, _, err := runCLI(t, []string{"boards", "edit", "999", "--title", "Nope"}); err == nil {
		t.Fatalf("expected editing a missing board to fail")
	}
}

func TestDoctor_FindsAndFixesGaps(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DSHBD_CONFIG_DIR", dir)

	ctx := context.Background()
	db, err := store.Open(ctx, dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	boards, err := db.Boards(ctx)
	if err != nil || len(boards) == 0 {
		t.Fatalf("boards: %v %v", boards, err)
	}
	for i, pos := range []int{0, 3, 7} {
		if _, err := db.CreateTask(ctx, model.Task{Title: string(rune('A' + i)), Status: model.StatusToDo, Position: pos, BoardID: boards[0].ID}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"doctor", "--fail"})
	if err == nil {
		t.Fatalf("expected doctor --fail to report the gap, stdout:\n%s", stdout)
	}

	fixed := mustEnv(t, "doctor", "--fix")
	if meta := fixed["meta"].(map[string]any); meta["fixed"] != true || meta["issues"] != float64(1) {
		t.Fatalf("fix meta = %v", meta)
	}

	clean := mustEnv(t, "doctor", "--fail")
	if n := len(clean["data"].([]any)); n != 0 {
		t.Fatalf("expected no issues after fix, got %v", clean["data"])
	}
	list := mustEnv(t, "tasks", "list", "--status", "to-do")
	for i, it := range list["data"].([]any) {
		if pos := it.(map[string]any)["position"]; pos != float64(i) {
			t.Fatalf("task %d has position %v", i, pos)
		}
	}
}

func TestOutputFormats_YAMLAndEDN(t *testing.T) {
	t.Setenv("DSHBD_CONFIG_DIR", t.TempDir())

	mustEnv(t, "tasks", "create", "Format me")

	out, stderr, err := runCLI(t, []string{"--format", "yaml", "tasks", "list"})
	if err != nil {
		t.Fatalf("yaml: %v\n%s", err, stderr)
	}
	if !strings.Contains(string(out), "title: Format me") {
		t.Fatalf("yaml output = %s", out)
	}

	out, stderr, err = runCLI(t, []string{"--format", "edn", "tasks", "list"})
	if err != nil {
		t.Fatalf("edn: %v\n%s", err, stderr)
	}
	if !strings.Contains(string(out), `:title "Format me"`) {
		t.Fatalf("edn output = %s", out)
	}
}
