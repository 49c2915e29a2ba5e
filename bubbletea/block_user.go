package bubbletea

import (
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/ssyqq/dream"
)

var _ MessageBlock = (*UserMessageBlock)(nil)

// UserMessageBlock renders a user message with a "> " prefix and, when an
// image is attached, its file name.
type UserMessageBlock struct {
	msg    dream.Message
	styles Styles
}

// NewUserMessageBlock creates a UserMessageBlock.
func NewUserMessageBlock(msg dream.Message, styles Styles) *UserMessageBlock {
	return &UserMessageBlock{msg: msg, styles: styles}
}

func (b *UserMessageBlock) View(width int) string {
	content := b.styles.UserMsg.Render("> ") + b.msg.Content
	if b.msg.HasImage() {
		content += "\n" + b.styles.Muted.Render("[image: "+filepath.Base(b.msg.ImagePath)+"]")
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}
