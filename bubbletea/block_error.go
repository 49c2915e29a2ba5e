package bubbletea

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/ssyqq/dream"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders a failed reply, labelled by the kind of failure.
type ErrorBlock struct {
	err    error
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, styles: styles}
}

func (b *ErrorBlock) View(width int) string {
	label := errorLabel(dream.KindOf(b.err))
	content := b.styles.Error.Render("✗ " + label + ": " + b.err.Error())
	return lipgloss.NewStyle().Width(width).Render(content)
}

func errorLabel(kind dream.ErrorKind) string {
	switch kind {
	case dream.KindTransport:
		return "Network error"
	case dream.KindRateLimit:
		return "Rate limited"
	case dream.KindHTTPStatus:
		return "Request rejected"
	case dream.KindUpstreamAPI:
		return "API error"
	case dream.KindDecode:
		return "Bad response"
	default:
		return "Error"
	}
}
