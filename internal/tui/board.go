package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dshbd-cli/internal/model"
	"dshbd-cli/internal/projection"
)

func statusLabel(st model.Status) string {
	return strings.ToUpper(strings.ReplaceAll(string(st), "-", " "))
}

// boardSelection is the focused column and the selected row in it (-1 for none).
type boardSelection struct {
	col, row int
}

func columnHeader(c projection.Column) string {
	count := fmt.Sprintf("(%d)", c.Count)
	if c.Limit > 0 {
		count = fmt.Sprintf("(%d/%d)", c.Count, c.Limit)
	}
	if c.OverLimit {
		count = styleOverLimit().Render(count)
	}
	return statusLabel(c.Status) + " " + count
}

func cardMeta(t model.Task) string {
	parts := []string{fmt.Sprintf("#%d", t.ID)}
	if t.Priority != 0 {
		parts = append(parts, fmt.Sprintf("P%d", t.Priority))
	}
	if t.DueDate != nil && *t.DueDate != "" {
		parts = append(parts, *t.DueDate)
	}
	if t.Assignee != nil && *t.Assignee != "" {
		parts = append(parts, "@"+*t.Assignee)
	}
	return strings.Join(parts, " ")
}

// renderColumns draws the columns side by side in a width x height block.
// Each card takes two lines: the title and a muted meta line.
func renderColumns(cols []projection.Column, sel boardSelection, width, height int) string {
	if len(cols) == 0 {
		return normalizePane(styleMuted().Render("no board"), width, height)
	}
	widths := split(width, len(cols))
	panes := make([]string, 0, len(cols))
	for i, c := range cols {
		focused := i == sel.col
		row := -1
		if focused {
			row = sel.row
		}
		panes = append(panes, renderColumn(c, row, focused, widths[i], height))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panes...)
}

func renderColumn(c projection.Column, row int, focused bool, width, height int) string {
	inner := width - 2
	if inner < 1 {
		inner = 1
	}
	innerH := height - 2
	if innerH < 1 {
		innerH = 1
	}

	lines := []string{truncate(columnHeader(c), inner), ""}
	visible := (innerH - len(lines)) / 2
	if visible < 1 {
		visible = 1
	}
	first := 0
	if row >= visible {
		first = row - visible + 1
	}
	if len(c.Tasks) == 0 {
		lines = append(lines, styleMuted().Render("empty"))
	}
	for i := first; i < len(c.Tasks) && i < first+visible; i++ {
		t := c.Tasks[i]
		title := t.Title
		if strings.TrimSpace(title) == "" {
			title = "(untitled)"
		}
		title = truncate(title, inner)
		if i == row {
			title = styleHeader(true).Padding(0).Width(inner).Render(title)
		}
		lines = append(lines, title, styleMuted().Render(truncate(cardMeta(t), inner)))
	}
	if more := len(c.Tasks) - first - visible; more > 0 {
		lines[1] = styleMuted().Render(truncate(fmt.Sprintf("+%d more", more), inner))
	}

	border := colorCardBorder
	if focused {
		border = colorFocusBorder
	}
	body := normalizePane(strings.Join(lines, "\n"), inner, innerH)
	return lipgloss.NewStyle().
		Border(glyphs.border).
		BorderForeground(border).
		Render(body)
}

// viewSummary describes the active search, filters, sort and tag.
func viewSummary(v model.BoardView) string {
	var parts []string
	if v.SearchTerm != "" {
		parts = append(parts, fmt.Sprintf("search %q", v.SearchTerm))
	}
	for _, f := range v.Filters {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Field, f.Value))
	}
	if v.Sort != nil {
		parts = append(parts, fmt.Sprintf("sort %s %s", v.Sort.Field, v.Sort.Direction))
	}
	if v.Tag != "" {
		parts = append(parts, v.Tag)
	}
	return strings.Join(parts, glyphs.sep)
}
