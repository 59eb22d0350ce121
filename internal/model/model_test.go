package model

import "testing"

func TestParseStatus_AcceptsAliases(t *testing.T) {
	cases := map[string]Status{
		"backlog":     StatusBacklog,
		"to-do":       StatusToDo,
		"todo":        StatusToDo,
		"In-Progress": StatusInProgress,
		"doing":       StatusInProgress,
		"done":        StatusDone,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseStatus(%q)=%q want %q", in, got, want)
		}
	}
	if _, err := ParseStatus("blocked"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestField_CompareUndefinedIsEqual(t *testing.T) {
	a := &Task{Title: "a", DueDate: StrPtr("2024-01-01")}
	b := &Task{Title: "b"}
	if got := FieldDueDate.Compare(a, b); got != 0 {
		t.Fatalf("expected undefined dueDate to compare equal, got %d", got)
	}
	if got := FieldTitle.Compare(a, b); got >= 0 {
		t.Fatalf("expected a<b by title, got %d", got)
	}
}

func TestFilter_NoCoercion(t *testing.T) {
	task := &Task{Priority: 2}
	if (Filter{Field: FieldPriority, Value: "2"}).Match(task) {
		t.Fatalf("string filter value must not match int priority")
	}
	v, err := FieldPriority.ParseValue("2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !(Filter{Field: FieldPriority, Value: v}).Match(task) {
		t.Fatalf("expected parsed int filter to match")
	}
}

func TestBoardView_ToggleSort(t *testing.T) {
	v := BoardView{}
	v = v.ToggleSort(FieldPriority)
	if v.Sort == nil || v.Sort.Field != FieldPriority || v.Sort.Direction != Asc {
		t.Fatalf("expected priority asc, got %+v", v.Sort)
	}
	v = v.ToggleSort(FieldPriority)
	if v.Sort.Direction != Desc {
		t.Fatalf("expected toggle to desc, got %+v", v.Sort)
	}
	v = v.ToggleSort(FieldTitle)
	if v.Sort.Field != FieldTitle || v.Sort.Direction != Asc {
		t.Fatalf("expected new field to start asc, got %+v", v.Sort)
	}
}

func TestBoardView_RemoveFilterDoesNotAlias(t *testing.T) {
	v := BoardView{}.AddFilter(Filter{Field: FieldTitle, Value: "a"}).AddFilter(Filter{Field: FieldTitle, Value: "b"})
	w := v.RemoveFilter(0)
	if len(v.Filters) != 2 || len(w.Filters) != 1 || w.Filters[0].Value != "b" {
		t.Fatalf("unexpected filters: v=%+v w=%+v", v.Filters, w.Filters)
	}
}

func TestTask_Untouched(t *testing.T) {
	tk := Task{ID: 1, CreatedDate: "2024-02-22T10:00:00.123Z", LastModifiedDate: "2024-02-22T10:00:00.456Z"}
	if !tk.Untouched() {
		t.Fatalf("expected same-second timestamps to count as untouched")
	}
	tk.LastModifiedDate = "2024-02-22T10:00:05.000Z"
	if tk.Untouched() {
		t.Fatalf("expected later modification to be touched")
	}
}

func TestBoard_PartitionOrdersByPosition(t *testing.T) {
	b := &Board{Tasks: []*Task{
		{ID: 1, Status: StatusToDo, Position: 2},
		{ID: 2, Status: StatusBacklog, Position: 0},
		{ID: 3, Status: StatusToDo, Position: 0},
		{ID: 4, Status: StatusToDo, Position: 1},
	}}
	got := b.Partition(StatusToDo)
	if len(got) != 3 || got[0].ID != 3 || got[1].ID != 4 || got[2].ID != 1 {
		t.Fatalf("unexpected partition order: %+v", got)
	}
}
