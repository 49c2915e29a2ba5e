package bubbletea

import "github.com/charmbracelet/lipgloss"

var _ MessageBlock = (*NoticeBlock)(nil)

// NoticeBlock renders a transient status line such as a retry notice.
type NoticeBlock struct {
	text   string
	styles Styles
}

// NewNoticeBlock creates a NoticeBlock.
func NewNoticeBlock(text string, styles Styles) *NoticeBlock {
	return &NoticeBlock{text: text, styles: styles}
}

func (b *NoticeBlock) View(width int) string {
	return b.styles.Notice.Render(lipgloss.NewStyle().Width(width).Render("↻ " + b.text))
}
