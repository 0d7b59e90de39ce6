package agent

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders chat content for a terminal.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer(width int) (*markdownRenderer, error) {
	if width <= 0 {
		width = 80
	}
	if width > 120 {
		width = 120
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &markdownRenderer{renderer: renderer}, nil
}

// renderIfMarkdown returns content rendered when it looks like markdown,
// otherwise unchanged. Render failures fall back to the raw content.
func (m *markdownRenderer) renderIfMarkdown(content string) string {
	if m == nil || !looksLikeMarkdown(content) {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

var markdownIndicators = []string{
	"# ", "## ", "### ",
	"```",
	"\n- ", "\n* ", "\n1. ",
	"|---|",
	"**",
}

func looksLikeMarkdown(content string) bool {
	content = strings.TrimSpace(content)
	if len(content) < 10 {
		return false
	}
	if !strings.Contains(content, "\n") && len(strings.Fields(content)) < 3 {
		return false
	}
	for _, indicator := range markdownIndicators {
		if strings.Contains(content, indicator) {
			return true
		}
	}
	if strings.Contains(content, "](") && strings.Contains(content, "[") {
		return true
	}
	return strings.Count(content, "`") >= 2
}
