package projection

import (
	"reflect"
	"testing"

	"dshbd-cli/internal/model"
)

func board() *model.Board {
	return &model.Board{ID: 1, ToDoLimit: 1, Tasks: []*model.Task{
		{ID: 1, Title: "Buy milk", Status: model.StatusToDo, Priority: 1, LastModifiedDate: "2024-02-22T10:00:00.000Z", Assignee: model.StrPtr("ana")},
		{ID: 2, Title: "Call mom", Status: model.StatusToDo, Priority: 2, LastModifiedDate: "2024-02-22T11:00:00.000Z"},
		{ID: 3, Title: "Call plumber", Status: model.StatusDone, Priority: 2, Assignee: model.StrPtr("ana"), Description: "fix #home sink"},
		{ID: 4, Title: "Write report", Status: model.StatusBacklog, Priority: 1, Assignee: model.StrPtr("bo")},
	}}
}

func titles(ts []model.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return out
}

func TestProject_SearchAndSort(t *testing.T) {
	t.Parallel()
	p := Project(board(), model.BoardView{
		SearchTerm: "call",
		Sort:       &model.Sort{Field: model.FieldLastModifiedDate, Direction: model.Desc},
	})
	if got := titles(p[model.StatusToDo]); !reflect.DeepEqual(got, []string{"Call mom"}) {
		t.Fatalf("expected only Call mom in to-do; got %v", got)
	}
	if got := titles(p[model.StatusDone]); !reflect.DeepEqual(got, []string{"Call plumber"}) {
		t.Fatalf("expected Call plumber in done; got %v", got)
	}
}

func TestProject_EveryStatusPresent(t *testing.T) {
	t.Parallel()
	p := Project(&model.Board{ID: 1}, model.BoardView{})
	for _, st := range model.Statuses {
		ts, ok := p[st]
		if !ok || ts == nil || len(ts) != 0 {
			t.Fatalf("expected empty non-nil group for %s; got %v (present=%v)", st, ts, ok)
		}
	}
}

func TestProject_Purity(t *testing.T) {
	t.Parallel()
	b := board()
	v := model.BoardView{Sort: &model.Sort{Field: model.FieldPriority, Direction: model.Asc}}
	first := Project(b, v)
	second := Project(b, v)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected equal projections")
	}
	first[model.StatusToDo][0].Title = "mutated"
	first[model.StatusDone] = nil
	third := Project(b, v)
	if !reflect.DeepEqual(second, third) {
		t.Fatalf("mutating a projection must not affect later calls")
	}
	if b.Tasks[0].Title != "Buy milk" {
		t.Fatalf("mutating a projection must not affect the board")
	}
}

func TestProject_FilterConjunction(t *testing.T) {
	t.Parallel()
	b := board()
	f1 := model.Filter{Field: model.FieldPriority, Value: 2}
	f2 := model.Filter{Field: model.FieldAssignee, Value: "ana"}

	only1 := Select(b.Tasks, model.BoardView{Filters: []model.Filter{f1}})
	only2 := Select(b.Tasks, model.BoardView{Filters: []model.Filter{f2}})
	both := Select(b.Tasks, model.BoardView{Filters: []model.Filter{f1, f2}})

	in2 := map[int64]bool{}
	for _, t := range only2 {
		in2[t.ID] = true
	}
	var want []int64
	for _, t := range only1 {
		if in2[t.ID] {
			want = append(want, t.ID)
		}
	}
	var got []int64
	for _, t := range both {
		got = append(got, t.ID)
	}
	if !reflect.DeepEqual(got, want) || !reflect.DeepEqual(got, []int64{3}) {
		t.Fatalf("expected intersection %v; got %v", want, got)
	}
}

func TestProject_StableSortWithUndefined(t *testing.T) {
	t.Parallel()
	b := &model.Board{ID: 1, Tasks: []*model.Task{
		{ID: 1, Title: "a", Status: model.StatusToDo},
		{ID: 2, Title: "b", Status: model.StatusToDo, DueDate: model.StrPtr("2024-03-01")},
		{ID: 3, Title: "c", Status: model.StatusToDo},
	}}
	for _, dir := range []model.Direction{model.Asc, model.Desc} {
		p := Project(b, model.BoardView{Sort: &model.Sort{Field: model.FieldDueDate, Direction: dir}})
		if got := titles(p[model.StatusToDo]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
			t.Fatalf("expected input order for undefined comparisons (%s); got %v", dir, got)
		}
	}
}

func TestProject_DescInvertsComparator(t *testing.T) {
	t.Parallel()
	b := &model.Board{ID: 1, Tasks: []*model.Task{
		{ID: 1, Title: "x", Status: model.StatusToDo, Priority: 1},
		{ID: 2, Title: "y", Status: model.StatusToDo, Priority: 3},
		{ID: 3, Title: "z", Status: model.StatusToDo, Priority: 1},
	}}
	p := Project(b, model.BoardView{Sort: &model.Sort{Field: model.FieldPriority, Direction: model.Desc}})
	// Ties keep input order in both directions.
	if got := titles(p[model.StatusToDo]); !reflect.DeepEqual(got, []string{"y", "x", "z"}) {
		t.Fatalf("expected [y x z]; got %v", got)
	}
}

func TestProject_TagFilter(t *testing.T) {
	t.Parallel()
	p := Project(board(), model.BoardView{Tag: "#home"})
	if got := titles(p[model.StatusDone]); !reflect.DeepEqual(got, []string{"Call plumber"}) {
		t.Fatalf("expected tag match; got %v", got)
	}
	if len(p[model.StatusToDo]) != 0 {
		t.Fatalf("expected no to-do tasks for tag")
	}
}

func TestColumns_LimitsAreAdvisory(t *testing.T) {
	t.Parallel()
	cols := Columns(board(), model.BoardView{})
	if len(cols) != len(model.Statuses) {
		t.Fatalf("expected %d columns; got %d", len(model.Statuses), len(cols))
	}
	var todo Column
	for _, c := range cols {
		if c.Status == model.StatusToDo {
			todo = c
		}
	}
	if todo.Count != 2 || todo.Limit != 1 || !todo.OverLimit {
		t.Fatalf("expected over-limit to-do column; got %+v", todo)
	}
}
