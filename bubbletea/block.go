package bubbletea

// MessageBlock is a renderable element of the transcript. View takes the
// width so the root model controls layout and blocks are testable alone.
type MessageBlock interface {
	View(width int) string
}
