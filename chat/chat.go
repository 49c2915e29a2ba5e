// Package chat builds chat-completion requests from conversations and turns
// stream events into transcript state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
	"github.com/ssyqq/dream"
	"github.com/ssyqq/dream/stream"
	"go.uber.org/zap"
)

// Title generation parameters.
const (
	TitlePrompt = "Generate a short title (at most 20 characters) for the conversation " +
		"from the user's input and the assistant's reply. Return only the title, " +
		"without explanation or extra punctuation. The title should capture the main topic."
	TitleTemperature = 0.7
	TitleMaxTokens   = 60
	MaxTitleLength   = 20 // grapheme clusters
)

// ErrNoTitle is reported when a title stream completes with no usable text.
var ErrNoTitle = errors.New("chat: model returned an empty title")

// Service starts replies and title generation for chats.
type Service struct {
	sender dream.Sender
	logger *zap.Logger
}

// Option configures a [Service].
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a [Service] that sends through sender.
func New(sender dream.Sender, opts ...Option) *Service {
	s := &Service{sender: sender, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Reply streams the assistant's reply to the chat's history.
func (s *Service) Reply(ctx context.Context, cfg dream.Config, c dream.Chat) dream.Stream {
	req := BuildRequest(cfg, c)
	s.logger.Debug("reply", zap.String("chat", c.ID), zap.Int("messages", len(req.Messages)))
	return s.sender.Send(ctx, cfg.Endpoint(), req, cfg.RetryPolicy())
}

// Title streams a title for the chat's first exchange. The returned stream
// carries retry notices, then either one EventTitle or an EventError, and
// ends with EventDone.
func (s *Service) Title(ctx context.Context, cfg dream.Config, c dream.Chat) dream.Stream {
	q := stream.New(ctx)
	req, err := TitleRequest(cfg, c)
	if err != nil {
		q.Fail(err)
		return q
	}
	inner := s.sender.Send(q.Context(), cfg.Endpoint(), req, cfg.RetryPolicy())
	go s.relayTitle(q, inner, c.ID)
	return q
}

func (s *Service) relayTitle(q *stream.Queue, inner dream.Stream, chatID string) {
	defer q.Finish()
	defer inner.Close()

	var text string
	var failed bool
	for {
		evt, err := inner.Next(q.Context())
		if err != nil {
			q.Fail(fmt.Errorf("chat: title: %w", err))
			return
		}
		switch e := evt.(type) {
		case dream.EventContent:
			text = e.Text
		case dream.EventRetry:
			text = ""
			q.Emit(e)
		case dream.EventError:
			failed = true
			q.Emit(e)
		case dream.EventDone:
			if failed {
				return
			}
			title := CleanTitle(text)
			if title == "" {
				q.Fail(ErrNoTitle)
				return
			}
			s.logger.Debug("title generated", zap.String("chat", chatID), zap.String("title", title))
			q.Emit(dream.EventTitle{ChatID: chatID, Title: title})
			return
		}
	}
}

// BuildRequest assembles the request for the next reply: the system prompt
// followed by the chat history. Per-chat settings override cfg.
func BuildRequest(cfg dream.Config, c dream.Chat) dream.Request {
	model := cfg.API.Model
	if c.Config.Model != "" {
		model = c.Config.Model
	}
	prompt := cfg.Chat.SystemPrompt
	if c.Config.SystemPrompt != "" {
		prompt = c.Config.SystemPrompt
	}
	temperature := cfg.Chat.Temperature
	if c.Config.Temperature != nil {
		temperature = *c.Config.Temperature
	}

	msgs := make([]dream.Message, 0, len(c.Messages)+1)
	if prompt != "" {
		msgs = append(msgs, dream.Message{Role: dream.RoleSystem, Content: prompt})
	}
	for _, m := range c.Messages {
		if m.Role == dream.RoleSystem {
			continue
		}
		msgs = append(msgs, m)
	}
	return dream.Request{
		Model:       model,
		Messages:    msgs,
		Temperature: dream.Temperature(temperature),
	}
}

// TitleRequest assembles the title request from the chat's first user
// message and the reply that follows it.
func TitleRequest(cfg dream.Config, c dream.Chat) (dream.Request, error) {
	var user, reply *dream.Message
	for i := range c.Messages {
		m := &c.Messages[i]
		if user == nil && m.Role == dream.RoleUser {
			user = m
		} else if user != nil && m.Role == dream.RoleAssistant {
			reply = m
			break
		}
	}
	if user == nil || reply == nil {
		return dream.Request{}, fmt.Errorf("chat: no exchange to title: %w", dream.ErrValidation)
	}
	model := cfg.API.Model
	if c.Config.Model != "" {
		model = c.Config.Model
	}
	return dream.Request{
		Model: model,
		Messages: []dream.Message{
			{Role: dream.RoleSystem, Content: TitlePrompt},
			{Role: dream.RoleUser, Content: user.Content},
			{Role: dream.RoleAssistant, Content: reply.Content},
		},
		Temperature: dream.Temperature(TitleTemperature),
		MaxTokens:   TitleMaxTokens,
	}, nil
}

// CleanTitle reduces model output to a single-line title of at most
// MaxTitleLength grapheme clusters, without surrounding quotes.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "Title:")
	s = strings.Trim(s, " \t\"'`*#「」『』《》“”‘’。.")

	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for n := 0; n < MaxTitleLength && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	return strings.TrimSpace(b.String())
}
