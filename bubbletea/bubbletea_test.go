package bubbletea_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ssyqq/dream"
	bt "github.com/ssyqq/dream/bubbletea"
	"github.com/ssyqq/dream/chat"
	"github.com/ssyqq/dream/mock"
	"github.com/ssyqq/dream/stream"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// scripted returns a stream that already holds events.
func scripted(events ...dream.Event) *stream.Queue {
	q := stream.New(context.Background())
	for _, e := range events {
		q.Emit(e)
	}
	return q
}

// backend hands out prepared streams in order and records what was sent.
type backend struct {
	mu       sync.Mutex
	streams  []dream.Stream
	requests []dream.Request
	saves    []dream.ChatList
	saveErr  error
}

func newBackend(streams ...dream.Stream) *backend {
	return &backend{streams: streams}
}

func (b *backend) conversation() *chat.Service {
	return chat.New(&mock.Sender{
		SendFn: func(_ context.Context, _ dream.Endpoint, req dream.Request, _ dream.RetryPolicy) dream.Stream {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.requests = append(b.requests, req)
			if len(b.streams) == 0 {
				return scripted(dream.EventError{Err: errors.New("unexpected send")}, dream.EventDone{})
			}
			s := b.streams[0]
			b.streams = b.streams[1:]
			return s
		},
	})
}

func (b *backend) save(l dream.ChatList) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves = append(b.saves, l)
	return b.saveErr
}

func (b *backend) sent() []dream.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]dream.Request(nil), b.requests...)
}

func (b *backend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saves)
}

// newModel creates a sized model backed by b.
func newModel(t *testing.T, b *backend, chats dream.ChatList) bt.Model {
	t.Helper()
	m := bt.New(b.conversation(), dream.DefaultConfig(), chats,
		bt.WithSave(b.save),
		bt.WithClock(func() time.Time { return testTime }),
	)
	return updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// send types text and presses enter.
func send(t *testing.T, m bt.Model, text string) bt.Model {
	t.Helper()
	m.Input.SetValue(text)
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// ticks delivers n poll ticks.
func ticks(t *testing.T, m bt.Model, n int) bt.Model {
	t.Helper()
	for range n {
		m = updateModel(t, m, bt.TickMsg{})
	}
	return m
}

// drain ticks until the reply completes.
func drain(t *testing.T, m bt.Model) bt.Model {
	t.Helper()
	for i := 0; m.Running(); i++ {
		require.Less(t, i, 100, "reply did not finish")
		m = updateModel(t, m, bt.TickMsg{})
	}
	return m
}
