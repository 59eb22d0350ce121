package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is the closed set of task properties usable in filters and sorts.
type Field string

const (
	FieldTitle            Field = "title"
	FieldDescription      Field = "description"
	FieldStatus           Field = "status"
	FieldPriority         Field = "priority"
	FieldDueDate          Field = "dueDate"
	FieldAssignee         Field = "assignee"
	FieldPosition         Field = "position"
	FieldBoardID          Field = "boardId"
	FieldCreatedDate      Field = "createdDate"
	FieldLastModifiedDate Field = "lastModifiedDate"
)

// SortableFields is the order in which UIs cycle through sort keys.
var SortableFields = []Field{
	FieldTitle,
	FieldAssignee,
	FieldDueDate,
	FieldPriority,
	FieldStatus,
	FieldCreatedDate,
	FieldLastModifiedDate,
}

type fieldDef struct {
	numeric bool
	get     func(t *Task) (any, bool)
}

var fieldDefs = map[Field]fieldDef{
	FieldTitle:       {get: func(t *Task) (any, bool) { return t.Title, true }},
	FieldDescription: {get: func(t *Task) (any, bool) { return t.Description, true }},
	FieldStatus:      {get: func(t *Task) (any, bool) { return string(t.Status), true }},
	FieldPriority:    {numeric: true, get: func(t *Task) (any, bool) { return t.Priority, true }},
	FieldDueDate: {get: func(t *Task) (any, bool) {
		if t.DueDate == nil {
			return nil, false
		}
		return *t.DueDate, true
	}},
	FieldAssignee: {get: func(t *Task) (any, bool) {
		if t.Assignee == nil {
			return nil, false
		}
		return *t.Assignee, true
	}},
	FieldPosition: {numeric: true, get: func(t *Task) (any, bool) { return t.Position, true }},
	FieldBoardID:  {numeric: true, get: func(t *Task) (any, bool) { return int(t.BoardID), true }},
	FieldCreatedDate: {get: func(t *Task) (any, bool) {
		return t.CreatedDate, t.CreatedDate != ""
	}},
	FieldLastModifiedDate: {get: func(t *Task) (any, bool) {
		return t.LastModifiedDate, t.LastModifiedDate != ""
	}},
}

func ParseField(s string) (Field, error) {
	f := Field(strings.TrimSpace(s))
	if _, ok := fieldDefs[f]; ok {
		return f, nil
	}
	// Accept case-insensitive spellings from the CLI.
	for k := range fieldDefs {
		if strings.EqualFold(string(k), string(f)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown task field: %q", s)
}

// Value returns the field value of t. ok=false means the value is undefined.
// Values are string or int; comparisons never coerce between them.
func (f Field) Value(t *Task) (any, bool) {
	def, ok := fieldDefs[f]
	if !ok || t == nil {
		return nil, false
	}
	return def.get(t)
}

// ParseValue converts CLI input into the field's value type.
func (f Field) ParseValue(s string) (any, error) {
	def, ok := fieldDefs[f]
	if !ok {
		return nil, fmt.Errorf("unknown task field: %q", string(f))
	}
	if def.numeric {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer: %w", f, err)
		}
		return n, nil
	}
	return s, nil
}

// Compare orders a and b by f. Undefined values compare equal to anything.
func (f Field) Compare(a, b *Task) int {
	av, aok := f.Value(a)
	bv, bok := f.Value(b)
	if !aok || !bok {
		return 0
	}
	switch x := av.(type) {
	case int:
		y, ok := bv.(int)
		if !ok {
			return 0
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y, ok := bv.(string)
		if !ok {
			return 0
		}
		return strings.Compare(x, y)
	}
	return 0
}

// Filter is an equality predicate on one field.
type Filter struct {
	Field Field `json:"property"`
	Value any   `json:"value"`
}

func (f Filter) Match(t *Task) bool {
	v, ok := f.Field.Value(t)
	if !ok {
		return f.Value == nil
	}
	return v == f.Value
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Field     Field     `json:"property"`
	Direction Direction `json:"direction"`
}

func ParseSort(s string) (*Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	name, dir, _ := strings.Cut(s, ":")
	f, err := ParseField(name)
	if err != nil {
		return nil, err
	}
	d := Asc
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		d = Desc
	default:
		return nil, fmt.Errorf("invalid sort direction: %q", dir)
	}
	return &Sort{Field: f, Direction: d}, nil
}

// BoardView is the ephemeral per-session view configuration of a board.
type BoardView struct {
	Filters    []Filter `json:"filters"`
	Sort       *Sort    `json:"sort,omitempty"`
	SearchTerm string   `json:"searchTerm,omitempty"`
	// Tag cross-filters by a #tag found in the task description.
	Tag string `json:"tag,omitempty"`
}

func (v BoardView) AddFilter(f Filter) BoardView {
	v.Filters = append(append([]Filter(nil), v.Filters...), f)
	return v
}

func (v BoardView) RemoveFilter(i int) BoardView {
	if i < 0 || i >= len(v.Filters) {
		return v
	}
	out := make([]Filter, 0, len(v.Filters)-1)
	out = append(out, v.Filters[:i]...)
	out = append(out, v.Filters[i+1:]...)
	v.Filters = out
	return v
}

// ToggleSort flips the direction when f is already the sort key; otherwise sorts by f ascending.
func (v BoardView) ToggleSort(f Field) BoardView {
	if v.Sort != nil && v.Sort.Field == f {
		d := Desc
		if v.Sort.Direction == Desc {
			d = Asc
		}
		v.Sort = &Sort{Field: f, Direction: d}
		return v
	}
	v.Sort = &Sort{Field: f, Direction: Asc}
	return v
}

func (v BoardView) WithSearch(term string) BoardView {
	v.SearchTerm = term
	return v
}

func (v BoardView) WithTag(tag string) BoardView {
	v.Tag = tag
	return v
}
