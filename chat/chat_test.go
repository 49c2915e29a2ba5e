package chat_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ssyqq/dream"
	"github.com/ssyqq/dream/chat"
	"github.com/ssyqq/dream/mock"
	"github.com/ssyqq/dream/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replay returns a finished stream that yields events in order.
func replay(events ...dream.Event) *stream.Queue {
	q := stream.New(context.Background())
	for _, e := range events {
		q.Emit(e)
	}
	q.Finish()
	return q
}

func collectEvents(t *testing.T, s dream.Stream) []dream.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var events []dream.Event
	for {
		evt, err := s.Next(ctx)
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, evt)
	}
}

func exchange() dream.Chat {
	c := dream.NewChat(time.Now())
	c.Append(dream.Message{Role: dream.RoleUser, Content: "How do I boil an egg?"})
	c.Append(dream.Message{Role: dream.RoleAssistant, Content: "Put it in boiling water for 8 minutes."})
	return c
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	cfg := dream.DefaultConfig()
	c := exchange()
	c.Messages = append(c.Messages, dream.Message{Role: dream.RoleSystem, Content: "stale prompt"})

	req := chat.BuildRequest(cfg, c)
	assert.Equal(t, "gpt-3.5-turbo", req.Model)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	require.Len(t, req.Messages, 3, "history system messages are replaced by the configured prompt")
	assert.Equal(t, dream.Message{Role: dream.RoleSystem, Content: dream.DefaultSystemPrompt}, req.Messages[0])
	assert.Equal(t, dream.RoleUser, req.Messages[1].Role)
	assert.Equal(t, dream.RoleAssistant, req.Messages[2].Role)
	assert.NoError(t, req.Validate())
}

func TestBuildRequest_ChatOverrides(t *testing.T) {
	t.Parallel()

	cfg := dream.DefaultConfig()
	c := exchange()
	c.Config = dream.ChatConfig{Model: "gpt-4o", SystemPrompt: "Be terse.", Temperature: dream.Temperature(0)}

	req := chat.BuildRequest(cfg, c)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, "Be terse.", req.Messages[0].Content)
	assert.Zero(t, *req.Temperature)
}

func TestBuildRequest_NoSystemPrompt(t *testing.T) {
	t.Parallel()

	cfg := dream.DefaultConfig()
	cfg.Chat.SystemPrompt = ""
	req := chat.BuildRequest(cfg, exchange())
	require.Len(t, req.Messages, 2)
	assert.Equal(t, dream.RoleUser, req.Messages[0].Role)
}

func TestService_Reply(t *testing.T) {
	t.Parallel()

	cfg := dream.DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.Chat.MaxRetries = 4
	want := replay(dream.EventContent{Text: "hi"})

	sender := &mock.Sender{
		SendFn: func(ctx context.Context, endpoint dream.Endpoint, req dream.Request, policy dream.RetryPolicy) dream.Stream {
			assert.Equal(t, cfg.Endpoint(), endpoint)
			assert.Equal(t, 4, policy.MaxRetries)
			assert.Equal(t, chat.BuildRequest(cfg, exchange()).Model, req.Model)
			return want
		},
	}
	got := chat.New(sender).Reply(context.Background(), cfg, exchange())
	assert.Same(t, want, got)
}

func TestTitleRequest(t *testing.T) {
	t.Parallel()

	c := exchange()
	c.Append(dream.Message{Role: dream.RoleUser, Content: "And a duck egg?"})
	c.Append(dream.Message{Role: dream.RoleAssistant, Content: "A bit longer."})

	req, err := chat.TitleRequest(dream.DefaultConfig(), c)
	require.NoError(t, err)
	assert.Equal(t, chat.TitleMaxTokens, req.MaxTokens)
	assert.InDelta(t, chat.TitleTemperature, *req.Temperature, 1e-9)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, chat.TitlePrompt, req.Messages[0].Content)
	assert.Equal(t, "How do I boil an egg?", req.Messages[1].Content, "first exchange only")
	assert.Equal(t, "Put it in boiling water for 8 minutes.", req.Messages[2].Content)

	_, err = chat.TitleRequest(dream.DefaultConfig(), dream.NewChat(time.Now()))
	assert.ErrorIs(t, err, dream.ErrValidation)
}

func titleSender(events ...dream.Event) *mock.Sender {
	return &mock.Sender{
		SendFn: func(ctx context.Context, endpoint dream.Endpoint, req dream.Request, policy dream.RetryPolicy) dream.Stream {
			return replay(events...)
		},
	}
}

func TestService_Title(t *testing.T) {
	t.Parallel()

	c := exchange()
	svc := chat.New(titleSender(
		dream.EventContent{Text: `"Boiling`},
		dream.EventContent{Text: `"Boiling Eggs"`},
	))
	events := collectEvents(t, svc.Title(context.Background(), dream.DefaultConfig(), c))

	assert.Equal(t, []dream.Event{
		dream.EventTitle{ChatID: c.ID, Title: "Boiling Eggs"},
		dream.EventDone{},
	}, events)
}

func TestService_TitleRelaysRetries(t *testing.T) {
	t.Parallel()

	retry := dream.EventRetry{Attempt: 1, Max: 10, Err: &dream.Error{Kind: dream.KindRateLimit}}
	c := exchange()
	svc := chat.New(titleSender(
		dream.EventContent{Text: "Abandoned"},
		retry,
		dream.EventContent{Text: "Eggs"},
	))
	events := collectEvents(t, svc.Title(context.Background(), dream.DefaultConfig(), c))

	assert.Equal(t, []dream.Event{
		retry,
		dream.EventTitle{ChatID: c.ID, Title: "Eggs"},
		dream.EventDone{},
	}, events)
}

func TestService_TitleError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc := chat.New(titleSender(dream.EventContent{Text: "Eg"}, dream.EventError{Err: boom}))
	events := collectEvents(t, svc.Title(context.Background(), dream.DefaultConfig(), exchange()))

	assert.Equal(t, []dream.Event{dream.EventError{Err: boom}, dream.EventDone{}}, events)
}

func TestService_TitleEmpty(t *testing.T) {
	t.Parallel()

	svc := chat.New(titleSender(dream.EventContent{Text: "  \"\"  "}))
	events := collectEvents(t, svc.Title(context.Background(), dream.DefaultConfig(), exchange()))

	require.Len(t, events, 2)
	assert.ErrorIs(t, events[0].(dream.EventError).Err, chat.ErrNoTitle)
}

func TestService_TitleWithoutExchange(t *testing.T) {
	t.Parallel()

	// SendFn is unset: the sender must not be called.
	svc := chat.New(&mock.Sender{})
	events := collectEvents(t, svc.Title(context.Background(), dream.DefaultConfig(), dream.NewChat(time.Now())))

	require.Len(t, events, 2)
	assert.ErrorIs(t, events[0].(dream.EventError).Err, dream.ErrValidation)
}

func TestService_TitleCloseCancelsInner(t *testing.T) {
	t.Parallel()

	var inner *stream.Queue
	sender := &mock.Sender{
		SendFn: func(ctx context.Context, endpoint dream.Endpoint, req dream.Request, policy dream.RetryPolicy) dream.Stream {
			inner = stream.New(ctx)
			return inner
		},
	}
	s := chat.New(sender).Title(context.Background(), dream.DefaultConfig(), exchange())
	require.NotNil(t, inner)
	require.NoError(t, s.Close())

	select {
	case <-inner.Context().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("inner send was not cancelled")
	}
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Boiling Eggs", "Boiling Eggs"},
		{"  \"Boiling Eggs\"  ", "Boiling Eggs"},
		{"Title: Boiling Eggs.", "Boiling Eggs"},
		{"《煮鸡蛋的方法》", "煮鸡蛋的方法"},
		{"Boiling Eggs\nThis title summarises...", "Boiling Eggs"},
		{"A very long title that keeps going", "A very long title th"},
		{"👨‍👩‍👧‍👦 family dinner planning tips", "👨‍👩‍👧‍👦 family dinner plan"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, chat.CleanTitle(tt.in), tt.in)
	}
}
