package goldmark

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ssyqq/dream"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

const (
	gutter    = "│"
	quoteBar  = "┃"
	minColumn = 10
)

type ansiRenderer struct {
	parser parser.Parser

	bold      lipgloss.Style
	italic    lipgloss.Style
	strike    lipgloss.Style
	heading   lipgloss.Style
	muted     lipgloss.Style
	underline lipgloss.Style
	code      lipgloss.Style
	check     lipgloss.Style
}

func newRenderer(theme dream.Theme) *ansiRenderer {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	return &ansiRenderer{
		parser:    md.Parser(),
		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		strike:    lipgloss.NewStyle().Strikethrough(true),
		heading:   lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		underline: lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Underline(true),
		code:      lipgloss.NewStyle().Background(ansiColor(theme.CodeBg)),
		check:     lipgloss.NewStyle().Foreground(ansiColor(theme.Success)),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *ansiRenderer) render(source []byte, width int) string {
	doc := r.parser.Parse(text.NewReader(source))

	var buf bytes.Buffer
	r.walkBlocks(doc, source, width, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

func (r *ansiRenderer) walkBlocks(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.renderBlock(c, source, width, buf)
		if c.NextSibling() != nil && c.Kind() != ast.KindHTMLBlock {
			buf.WriteString("\n")
		}
	}
}

func (r *ansiRenderer) renderBlock(node ast.Node, source []byte, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		buf.WriteString(wrap(r.inline(n, source), width))
		buf.WriteString("\n")

	case *ast.Heading:
		buf.WriteString(wrap(r.heading.Render(r.inline(n, source)), width))
		buf.WriteString("\n")

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(source)); lang != "" {
			buf.WriteString(r.muted.Render(lang))
			buf.WriteString("\n")
		}
		r.writeCode(n.Lines(), source, buf)

	case *ast.CodeBlock:
		r.writeCode(n.Lines(), source, buf)

	case *ast.Blockquote:
		var inner bytes.Buffer
		r.walkBlocks(n, source, max(width-2, minColumn), &inner)
		bar := r.muted.Render(quoteBar) + " "
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			buf.WriteString(bar + line + "\n")
		}

	case *ast.List:
		r.renderList(n, source, width, buf, 0)

	case *east.Table:
		r.renderTable(n, source, buf)

	case *ast.ThematicBreak:
		buf.WriteString(r.muted.Render(strings.Repeat("─", min(width, 40))))
		buf.WriteString("\n")

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		r.walkBlocks(node, source, width, buf)
	}
}

func (r *ansiRenderer) writeCode(lines *text.Segments, source []byte, buf *bytes.Buffer) {
	bar := r.muted.Render(gutter) + " "
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		buf.WriteString(bar + r.code.Render(line) + "\n")
	}
}

func (r *ansiRenderer) renderList(node *ast.List, source []byte, width int, buf *bytes.Buffer, depth int) {
	n := node.Start
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		indent := strings.Repeat("  ", depth)
		marker := "• "
		if node.IsOrdered() {
			marker = fmt.Sprintf("%d. ", n)
			n++
		}

		var content bytes.Buffer
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			switch in := ic.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				if content.Len() > 0 {
					content.WriteString("\n")
				}
				content.WriteString(r.inline(in, source))
			case *ast.List:
				if content.Len() > 0 {
					r.writeItem(buf, indent, marker, content.String(), width)
					content.Reset()
				}
				r.renderList(in, source, width, buf, depth+1)
				marker = strings.Repeat(" ", lipgloss.Width(marker))
			default:
				r.renderBlock(ic, source, width, &content)
			}
		}
		if content.Len() > 0 {
			r.writeItem(buf, indent, marker, content.String(), width)
		}
	}
}

// writeItem writes a list item, indenting wrapped lines under the marker.
func (r *ansiRenderer) writeItem(buf *bytes.Buffer, indent, marker, content string, width int) {
	prefix := indent + marker
	pad := strings.Repeat(" ", lipgloss.Width(prefix))
	lines := strings.Split(wrap(strings.TrimRight(content, "\n"), max(width-lipgloss.Width(prefix), minColumn)), "\n")
	for i, line := range lines {
		if i == 0 {
			buf.WriteString(prefix + line + "\n")
			continue
		}
		buf.WriteString(pad + line + "\n")
	}
}

// renderTable lays cells out in padded columns. Cells are not wrapped.
func (r *ansiRenderer) renderTable(table *east.Table, source []byte, buf *bytes.Buffer) {
	var rows [][]string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.inline(cell, source))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	sep := " " + r.muted.Render(gutter) + " "
	for i, row := range rows {
		cells := make([]string, len(widths))
		for j := range widths {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			if i == 0 {
				cell = r.bold.Render(cell)
			}
			cells[j] = cell + strings.Repeat(" ", widths[j]-lipgloss.Width(cell))
		}
		buf.WriteString(strings.TrimRight(strings.Join(cells, sep), " ") + "\n")
		if i == 0 {
			rules := make([]string, len(widths))
			for j, w := range widths {
				rules[j] = strings.Repeat("─", w)
			}
			buf.WriteString(r.muted.Render(strings.Join(rules, "─┼─")) + "\n")
		}
	}
}

// inline collects the styled inline text of a node's children.
func (r *ansiRenderer) inline(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.renderInline(c, source, &buf)
	}
	return buf.String()
}

func (r *ansiRenderer) renderInline(node ast.Node, source []byte, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		if n.Level == 1 {
			buf.WriteString(r.italic.Render(r.inline(n, source)))
		} else {
			buf.WriteString(r.bold.Render(r.inline(n, source)))
		}

	case *east.Strikethrough:
		buf.WriteString(r.strike.Render(r.inline(n, source)))

	case *east.TaskCheckBox:
		if n.IsChecked {
			buf.WriteString(r.check.Render("[x]") + " ")
		} else {
			buf.WriteString("[ ] ")
		}

	case *ast.CodeSpan:
		buf.WriteString(r.code.Render(r.inline(n, source)))

	case *ast.Link:
		buf.WriteString(r.underline.Render(r.inline(n, source)))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))

	case *ast.AutoLink:
		buf.WriteString(r.underline.Render(string(n.URL(source))))

	case *ast.Image:
		alt := r.inline(n, source)
		if alt == "" {
			alt = "image"
		}
		buf.WriteString(r.muted.Render("[" + alt + "]"))
		buf.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.renderInline(c, source, buf)
		}
	}
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}
