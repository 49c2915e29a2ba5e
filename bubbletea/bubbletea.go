// Package bubbletea provides the Bubble Tea chat TUI.
package bubbletea

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ssyqq/dream"
)

// PollInterval is how often active streams are polled. Each stream yields
// at most one event per poll.
const PollInterval = 16 * time.Millisecond

// Conversation starts replies and title generation for a chat.
// *chat.Service implements it.
type Conversation interface {
	Reply(ctx context.Context, cfg dream.Config, c dream.Chat) dream.Stream
	Title(ctx context.Context, cfg dream.Config, c dream.Chat) dream.Stream
}

// SaveFunc persists the chat list.
type SaveFunc func(dream.ChatList) error

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. When ctx is cancelled the program quits. Messages received on
// configs are delivered to the model.
func Run(ctx context.Context, m Model, configs <-chan ConfigMsg) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.Quit()
				return
			case msg := <-configs:
				p.Send(msg)
			}
		}
	}()
	_, err := p.Run()
	return err
}

// TickMsg triggers one poll of the active streams.
type TickMsg struct{}

// ConfigMsg carries a reloaded configuration, or the error that prevented
// reloading it.
type ConfigMsg struct {
	Config dream.Config
	Err    error
}

func tick() tea.Cmd {
	return tea.Tick(PollInterval, func(time.Time) tea.Msg { return TickMsg{} })
}
