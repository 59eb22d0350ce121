package projection

import (
	"sort"
	"strings"

	"dshbd-cli/internal/model"
	"dshbd-cli/internal/tags"
)

// Project derives the filtered, sorted, status-grouped view of b.
//
// Steps run in a fixed order: search on title, conjunctive filters (the tag
// filter included), stable sort, group by status. Every known status is present
// in the result. Tasks are value copies, so callers may mutate the result freely.
func Project(b *model.Board, v model.BoardView) map[model.Status][]model.Task {
	out := make(map[model.Status][]model.Task, len(model.Statuses))
	for _, st := range model.Statuses {
		out[st] = []model.Task{}
	}
	if b == nil {
		return out
	}
	for _, t := range Select(b.Tasks, v) {
		c := t.Clone()
		out[c.Status] = append(out[c.Status], *c)
	}
	return out
}

// Select returns the tasks of ts that pass the view, in view order.
// The returned slice is fresh; its elements alias ts.
func Select(ts []*model.Task, v model.BoardView) []*model.Task {
	term := strings.ToLower(v.SearchTerm)
	tag := tags.Normalize(v.Tag)

	sel := make([]*model.Task, 0, len(ts))
	for _, t := range ts {
		if t == nil {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(t.Title), term) {
			continue
		}
		if !matchAll(t, v.Filters) {
			continue
		}
		if tag != "" && !tags.Has(t.Description, tag) {
			continue
		}
		sel = append(sel, t)
	}

	if v.Sort != nil {
		f := v.Sort.Field
		desc := v.Sort.Direction == model.Desc
		sort.SliceStable(sel, func(i, j int) bool {
			c := f.Compare(sel[i], sel[j])
			if desc {
				c = -c
			}
			return c < 0
		})
	}
	return sel
}

func matchAll(t *model.Task, filters []model.Filter) bool {
	for _, f := range filters {
		if !f.Match(t) {
			return false
		}
	}
	return true
}

// Column is one status group ready for display.
type Column struct {
	Status    model.Status `json:"status"`
	Tasks     []model.Task `json:"tasks"`
	Count     int          `json:"count"`
	Limit     int          `json:"limit,omitempty"`
	OverLimit bool         `json:"overLimit,omitempty"`
}

// Columns returns the projection of b in model.Statuses order with advisory limits attached.
func Columns(b *model.Board, v model.BoardView) []Column {
	p := Project(b, v)
	out := make([]Column, 0, len(model.Statuses))
	for _, st := range model.Statuses {
		ts := p[st]
		c := Column{Status: st, Tasks: ts, Count: len(ts), Limit: b.Limit(st)}
		c.OverLimit = c.Limit > 0 && c.Count > c.Limit
		out = append(out, c)
	}
	return out
}
