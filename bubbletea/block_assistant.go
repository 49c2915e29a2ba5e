package bubbletea

import (
	"strings"

	"github.com/ssyqq/dream/goldmark"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders reply text as markdown. The text is replaced
// wholesale on every snapshot. The stable prefix ending at the last blank
// line outside a code fence is rendered separately from the trailing text
// so the renderer's cache serves it while the reply streams.
type AssistantTextBlock struct {
	md   *goldmark.Renderer
	text string

	// finalized is the stable prefix, without the separating blank line.
	finalized string
}

// NewAssistantTextBlock creates a block rendering through md.
func NewAssistantTextBlock(md *goldmark.Renderer) *AssistantTextBlock {
	return &AssistantTextBlock{md: md}
}

// Set replaces the text with a new snapshot.
func (b *AssistantTextBlock) Set(text string) {
	b.text = text
	b.finalized = stablePrefix(text)
}

// Text returns the current snapshot.
func (b *AssistantTextBlock) Text() string {
	return b.text
}

func (b *AssistantTextBlock) View(width int) string {
	head := b.md.Render(b.finalized, width)
	trailing := strings.TrimPrefix(b.text, b.finalized)
	trailing = strings.TrimLeft(trailing, "\n")
	if hasUnclosedFence(trailing) {
		// Close the fence for display only.
		trailing += "\n```"
	}
	var tail string
	if trailing != "" {
		tail = b.md.Render(trailing, width)
	}
	switch {
	case strings.TrimSpace(tail) == "":
		return head
	case head == "":
		return tail
	default:
		return strings.TrimRight(head, "\n") + "\n\n" + strings.TrimLeft(tail, "\n")
	}
}

// stablePrefix returns text up to its last "\n\n" that is not inside an
// open code fence, or "" if there is none.
func stablePrefix(text string) string {
	for end := len(text); ; {
		idx := strings.LastIndex(text[:end], "\n\n")
		if idx <= 0 {
			return ""
		}
		if candidate := text[:idx]; !hasUnclosedFence(candidate) {
			return candidate
		}
		end = idx
	}
}

// hasUnclosedFence reports an odd number of "```" in s. Triple backticks
// inside inline code are miscounted.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
