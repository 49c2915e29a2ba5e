package bubbletea

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/ssyqq/dream"
	"github.com/ssyqq/dream/chat"
	"github.com/ssyqq/dream/goldmark"
	"go.uber.org/zap"
)

// imageCommand attaches an image to the next message.
const imageCommand = "/image"

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the chat TUI.
//
// It owns at most one reply stream and one title stream. Both are polled on
// the same tick, one event each, and closed once EventDone is consumed.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript. Exported for test access.
	Viewport viewport.Model
	// Spinner animates while a reply is generated.
	Spinner spinner.Model

	conv   Conversation
	save   SaveFunc
	logger *zap.Logger
	now    func() time.Time

	cfg    dream.Config
	styles Styles
	md     *goldmark.Renderer

	chats  dream.ChatList
	blocks []MessageBlock

	reply      dream.Stream
	replyChat  string
	transcript chat.Transcript
	live       *AssistantTextBlock

	title dream.Stream

	image   string
	ticking bool
	err     error
	ready   bool
}

// Option configures a Model.
type Option func(*Model)

// WithSave sets the function called whenever the chat list changes.
// The default does not persist anything.
func WithSave(fn SaveFunc) Option {
	return func(m *Model) { m.save = fn }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithClock sets the time source for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New creates a Model showing chats. If no chat is selected the first one
// is, and an empty list gets a fresh chat.
func New(conv Conversation, cfg dream.Config, chats dream.ChatList, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		Input:   ti,
		Spinner: sp,
		conv:    conv,
		save:    func(dream.ChatList) error { return nil },
		logger:  zap.NewNop(),
		now:     time.Now,
		chats:   chats,
	}
	for _, o := range opts {
		o(&m)
	}
	m = m.withConfig(cfg)

	if m.chats.Current() == nil {
		if len(m.chats.Chats) > 0 {
			m.chats.CurrentID = m.chats.Chats[0].ID
		} else {
			m.chats.Add(dream.NewChat(m.now()))
		}
	}
	return m.rebuild()
}

// Running reports whether a reply is being generated.
func (m Model) Running() bool { return m.reply != nil }

// Titling reports whether a title is being generated.
func (m Model) Titling() bool { return m.title != nil }

// Err returns the last error not tied to a reply, if any.
func (m Model) Err() error { return m.err }

// Chats returns the chat list.
func (m Model) Chats() dream.ChatList { return m.chats }

// Config returns the active configuration.
func (m Model) Config() dream.Config { return m.cfg }

// Image returns the path of the image attached to the next message.
func (m Model) Image() string { return m.image }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		return m.poll()

	case ConfigMsg:
		return m.applyConfig(msg), nil

	case spinner.TickMsg:
		if !m.Running() {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.Running() {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	const chrome = 3 // header, status line, input
	height := max(msg.Height-chrome, 1)
	if !m.ready {
		m.Viewport = viewport.New(msg.Width, height)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = height
	}
	m.Input.Width = msg.Width
	m.refresh()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.Running() {
			return m.cancelReply()
		}
		if m.title != nil {
			m.title.Close()
			m.title = nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.Running() {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyCtrlN:
		if !m.Running() {
			m = m.newChat()
		}
		return m, nil

	case tea.KeyCtrlD:
		if !m.Running() {
			m = m.deleteChat()
		}
		return m, nil

	case tea.KeyCtrlUp, tea.KeyCtrlDown:
		if !m.Running() {
			step := 1
			if msg.Type == tea.KeyCtrlUp {
				step = -1
			}
			m = m.switchChat(step)
		}
		return m, nil
	}

	if m.Running() {
		return m, nil
	}
	// j/k and friends are text while typing; only forward non-character
	// keys to the viewport for scrolling.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil

	if arg, ok := strings.CutPrefix(text, imageCommand); ok && (arg == "" || arg[0] == ' ') {
		return m.attachImage(strings.TrimSpace(arg)), nil
	}

	c := m.chats.Current()
	msg := dream.Message{Role: dream.RoleUser, Content: text, ImagePath: m.image, Timestamp: m.now()}
	c.Append(msg)
	m.image = ""
	m.persist()

	m.blocks = append(m.blocks, NewUserMessageBlock(msg, m.styles))
	m.transcript = chat.Transcript{}
	m.live = NewAssistantTextBlock(m.md)
	m.replyChat = c.ID
	m.reply = m.conv.Reply(context.Background(), m.cfg, *c)
	m.logger.Debug("reply started", zap.String("chat", c.ID), zap.Int("messages", len(c.Messages)))

	m.Input.Blur()
	m.refresh()
	m, cmd := m.startTicking()
	return m, tea.Batch(cmd, m.Spinner.Tick)
}

func (m Model) attachImage(path string) Model {
	if path == "" {
		m.image = ""
		return m
	}
	if _, err := os.Stat(path); err != nil {
		m.err = fmt.Errorf("attach image: %w", err)
		return m
	}
	m.image = path
	return m
}

func (m Model) startTicking() (Model, tea.Cmd) {
	if m.ticking {
		return m, nil
	}
	m.ticking = true
	return m, tick()
}

// poll consumes at most one event from each active stream.
func (m Model) poll() (tea.Model, tea.Cmd) {
	m.ticking = false
	wasRunning := m.Running()

	if m.reply != nil {
		if evt, ok := m.reply.Poll(); ok {
			m = m.handleReply(evt)
		}
	}
	if m.title != nil {
		if evt, ok := m.title.Poll(); ok {
			m = m.handleTitle(evt)
		}
	}
	m.refresh()

	var cmds []tea.Cmd
	if wasRunning && !m.Running() {
		cmds = append(cmds, m.Input.Focus())
	}
	if m.Running() || m.Titling() {
		var cmd tea.Cmd
		m, cmd = m.startTicking()
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleReply(evt dream.Event) Model {
	m.transcript.Apply(evt)
	switch e := evt.(type) {
	case dream.EventContent:
		m.live.Set(m.transcript.Reply)
	case dream.EventRetry:
		m.live.Set("")
		m.logger.Info("retrying reply",
			zap.Int("attempt", e.Attempt),
			zap.Int("max", e.Max),
			zap.Duration("delay", e.Delay),
			zap.Error(e.Err))
	case dream.EventError:
		m.logger.Warn("reply failed", zap.String("chat", m.replyChat), zap.Error(e.Err))
	case dream.EventDone:
		m = m.finishReply()
	}
	return m
}

func (m Model) finishReply() Model {
	m.reply.Close()
	m.reply = nil

	if m.live.Text() != "" {
		m.blocks = append(m.blocks, m.live)
	}
	m.live = nil
	if m.transcript.Err != nil {
		// The partial reply stays on screen but is not saved.
		m.blocks = append(m.blocks, NewErrorBlock(m.transcript.Err, m.styles))
		return m
	}

	c := m.chats.Find(m.replyChat)
	msg, ok := m.transcript.Message(m.now())
	if c == nil || !ok {
		return m
	}
	c.Append(msg)
	m.persist()
	if c.NeedsTitle() && m.title == nil {
		m.title = m.conv.Title(context.Background(), m.cfg, *c)
		m.logger.Debug("title started", zap.String("chat", c.ID))
	}
	return m
}

func (m Model) cancelReply() (tea.Model, tea.Cmd) {
	m.reply.Close()
	m.reply = nil
	if m.live.Text() != "" {
		m.blocks = append(m.blocks, m.live)
	}
	m.live = nil
	m.blocks = append(m.blocks, NewNoticeBlock("Reply canceled", m.styles))
	m.logger.Debug("reply canceled", zap.String("chat", m.replyChat))
	m.refresh()
	return m, m.Input.Focus()
}

func (m Model) handleTitle(evt dream.Event) Model {
	switch e := evt.(type) {
	case dream.EventTitle:
		if c := m.chats.Find(e.ChatID); c != nil {
			c.Rename(e.Title)
			m.persist()
		}
	case dream.EventRetry:
		m.logger.Debug("retrying title", zap.Int("attempt", e.Attempt), zap.Error(e.Err))
	case dream.EventError:
		m.logger.Warn("title generation failed", zap.Error(e.Err))
	case dream.EventDone:
		m.title.Close()
		m.title = nil
	}
	return m
}

func (m Model) applyConfig(msg ConfigMsg) Model {
	if msg.Err != nil {
		m.err = fmt.Errorf("reload config: %w", msg.Err)
		m.logger.Warn("config reload failed", zap.Error(msg.Err))
		return m
	}
	m.err = nil
	m = m.withConfig(msg.Config)
	m.logger.Info("config reloaded", zap.String("model", msg.Config.API.Model))
	if m.live != nil {
		text := m.live.Text()
		m.live = NewAssistantTextBlock(m.md)
		m.live.Set(text)
	}
	m = m.rebuild()
	m.refresh()
	return m
}

func (m Model) withConfig(cfg dream.Config) Model {
	m.cfg = cfg
	theme := cfg.Theme()
	m.styles = NewStyles(theme)
	m.md = goldmark.NewRenderer(theme)
	m.Spinner.Style = m.styles.Notice
	return m
}

func (m Model) newChat() Model {
	if c := m.chats.Current(); c != nil && len(c.Messages) == 0 {
		return m
	}
	m.chats.Add(dream.NewChat(m.now()))
	m.persist()
	m = m.rebuild()
	m.refresh()
	return m
}

func (m Model) deleteChat() Model {
	m.chats.Remove(m.chats.CurrentID)
	if len(m.chats.Chats) == 0 {
		m.chats.Add(dream.NewChat(m.now()))
	}
	m.persist()
	m = m.rebuild()
	m.refresh()
	return m
}

func (m Model) switchChat(step int) Model {
	n := len(m.chats.Chats)
	if n < 2 {
		return m
	}
	i := m.currentIndex()
	m.chats.CurrentID = m.chats.Chats[((i+step)%n+n)%n].ID
	m = m.rebuild()
	m.refresh()
	return m
}

func (m Model) currentIndex() int {
	for i, c := range m.chats.Chats {
		if c.ID == m.chats.CurrentID {
			return i
		}
	}
	return 0
}

func (m *Model) persist() {
	if err := m.save(m.chats); err != nil {
		m.err = fmt.Errorf("save chats: %w", err)
		m.logger.Error("save chats", zap.Error(err))
	}
}

// rebuild recreates the transcript blocks of the current chat.
func (m Model) rebuild() Model {
	m.blocks = nil
	c := m.chats.Current()
	if c == nil {
		return m
	}
	for _, msg := range c.Messages {
		switch msg.Role {
		case dream.RoleUser:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg, m.styles))
		case dream.RoleAssistant:
			b := NewAssistantTextBlock(m.md)
			b.Set(msg.Content)
			m.blocks = append(m.blocks, b)
		}
	}
	return m
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
}

func (m Model) renderContent() string {
	width := m.Viewport.Width
	var views []string
	for _, b := range m.blocks {
		views = append(views, b.View(width))
	}
	if m.Running() {
		if m.live.Text() != "" {
			views = append(views, m.live.View(width))
		}
		if m.transcript.Notice != "" {
			views = append(views, NewNoticeBlock(m.transcript.Notice, m.styles).View(width))
		}
	}
	return strings.Join(views, "\n\n")
}

func (m Model) header() string {
	width := m.Viewport.Width
	name, model := dream.DefaultChatName, m.cfg.API.Model
	if c := m.chats.Current(); c != nil {
		name = c.Name
		if c.Config.Model != "" {
			model = c.Config.Model
		}
	}
	text := fmt.Sprintf(" %s · %s · %d/%d", name, model, m.currentIndex()+1, len(m.chats.Chats))
	text = runewidth.Truncate(text, width, "…")
	return m.styles.Header.Render(runewidth.FillRight(text, width))
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	case m.Running() && m.transcript.Notice != "":
		return m.Spinner.View() + " " + m.styles.Notice.Render(m.transcript.Notice)
	case m.Running():
		return m.Spinner.View() + " " + m.styles.Muted.Render("Generating... Ctrl+C to cancel")
	case m.image != "":
		return m.styles.Muted.Render("Image attached: " + m.image + " · Enter to send")
	default:
		return m.styles.Muted.Render("Enter to send · Ctrl+N new chat · Ctrl+↑/↓ switch · Ctrl+C to quit")
	}
}
