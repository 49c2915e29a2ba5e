// Package goldmark renders chat replies written in markdown to ANSI-styled
// terminal output, using goldmark for parsing and lipgloss for styling.
package goldmark

import "github.com/ssyqq/dream"

const (
	defaultWidth = 80
	maxCached    = 256
)

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs, quotes and list items are word-wrapped to width. Code blocks
// and tables are rendered without reflow.
func Render(source string, width int, theme dream.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	return newRenderer(theme).render([]byte(source), width)
}

type cacheKey struct {
	source string
	width  int
}

// Renderer renders markdown with a fixed theme and remembers the output of
// recent calls. Finished messages are re-rendered on every frame of the
// TUI, so repeated calls with the same source and width are served from the
// cache. A Renderer is not safe for concurrent use.
type Renderer struct {
	r     *ansiRenderer
	cache map[cacheKey]string
}

// NewRenderer returns a Renderer for theme.
func NewRenderer(theme dream.Theme) *Renderer {
	return &Renderer{
		r:     newRenderer(theme),
		cache: make(map[cacheKey]string),
	}
}

// Render is like the package level Render using the Renderer's theme.
func (r *Renderer) Render(source string, width int) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	key := cacheKey{source: source, width: width}
	if out, ok := r.cache[key]; ok {
		return out
	}
	out := r.r.render([]byte(source), width)
	if len(r.cache) >= maxCached {
		// A resize invalidates everything anyway; start over.
		clear(r.cache)
	}
	r.cache[key] = out
	return out
}

// Cached reports how many rendered outputs are held.
func (r *Renderer) Cached() int {
	return len(r.cache)
}
