package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// StatusLine exports statusLine for testing.
func StatusLine(m Model) string {
	return m.statusLine()
}

// Header exports header for testing.
func Header(m Model) string {
	return m.header()
}
