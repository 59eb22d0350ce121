package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type glyphSet struct {
	ellipsis string
	sep      string
	border   lipgloss.Border
}

var (
	unicodeGlyphs = glyphSet{ellipsis: "…", sep: " · ", border: lipgloss.RoundedBorder()}
	asciiGlyphs   = glyphSet{ellipsis: "~", sep: " | ", border: lipgloss.Border{
		Top: "-", Bottom: "-", Left: "|", Right: "|",
		TopLeft: "+", TopRight: "+", BottomLeft: "+", BottomRight: "+",
	}}

	glyphs = unicodeGlyphs
)

// UseGlyphs selects "ascii" or "unicode" (the default) drawing characters.
func UseGlyphs(name string) {
	if strings.EqualFold(strings.TrimSpace(name), "ascii") {
		glyphs = asciiGlyphs
		return
	}
	glyphs = unicodeGlyphs
}

// normalizePane pads or cuts s to exactly width x height cells.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		ln = truncate(ln, width)
		if w := xansi.StringWidth(ln); w < width {
			ln += strings.Repeat(" ", width-w)
		}
		lines[i] = ln
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to width cells, ending with the ellipsis glyph when cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return xansi.Cut(s, 0, 1)
	}
	return xansi.Truncate(s, width-1, "") + glyphs.ellipsis
}

// split divides total into n widths that differ by at most one.
func split(total, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	base, extra := total/n, total%n
	for i := range out {
		out[i] = base
		if i < extra {
			out[i]++
		}
	}
	return out
}
