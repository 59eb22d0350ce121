package format

import (
	"bytes"
	"strings"
	"testing"

	"dshbd-cli/internal/model"
)

func TestWrite_EDNUsesKebabKeywords(t *testing.T) {
	var buf bytes.Buffer
	task := model.Task{ID: 3, Title: "x", Status: model.StatusToDo, DueDate: model.StrPtr("2025-01-02"), BoardID: 1}
	if err := Write(&buf, map[string]any{"data": task}, "edn", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`:data {`, `:due-date "2025-01-02"`, `:board-id 1`, `:status "to-do"`, `:id 3`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}

func TestWrite_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, model.Task{Title: "x", Position: 2}, "yaml", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "title: x") || !strings.Contains(out, "position: 2") || !strings.Contains(out, "dueDate: null") {
		t.Fatalf("unexpected yaml: %s", out)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "xml", false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWrite_JSONIsOneLine(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]int{"a": 1}, "", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != "{\"a\":1}\n" {
		t.Fatalf("unexpected json: %q", buf.String())
	}
}
