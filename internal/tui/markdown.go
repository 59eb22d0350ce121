package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// preview renders a task description in the editor pane while the
// description input is not focused. The renderer is rebuilt only when the
// pane width or the glyph set changes.
type preview struct {
	width int
	plain bool
	r     *glamour.TermRenderer
}

func (p *preview) render(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	plain := glyphs.ellipsis == asciiGlyphs.ellipsis
	if p.r == nil || p.width != width || p.plain != plain {
		cfg := previewStyle(plain)
		zero := uint(0)
		cfg.Document.Margin = &zero
		r, err := glamour.NewTermRenderer(
			glamour.WithStyles(cfg),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		p.r, p.width, p.plain = r, width, plain
	}
	out, err := p.r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// previewStyle follows the glyph set: ascii terminals get the unstyled config.
func previewStyle(plain bool) ansi.StyleConfig {
	switch {
	case plain:
		return styles.NoTTYStyleConfig
	case lipgloss.HasDarkBackground():
		return styles.DarkStyleConfig
	default:
		return styles.LightStyleConfig
	}
}
