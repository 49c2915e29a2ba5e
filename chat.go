package dream

import (
	"time"

	"github.com/google/uuid"
)

// ChatConfig holds per-chat overrides. Empty fields fall back to Config.
type ChatConfig struct {
	Model        string
	SystemPrompt string
	Temperature  *float64
}

// Chat is a named conversation.
type Chat struct {
	ID        string
	Name      string
	Messages  []Message
	HasTitle  bool // Set once a generated or user supplied title replaced the default name.
	Config    ChatConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultChatName is the name of a chat that has not been titled yet.
const DefaultChatName = "New Chat"

// NewChat returns an empty chat with a fresh ID.
func NewChat(now time.Time) Chat {
	return Chat{
		ID:        uuid.NewString(),
		Name:      DefaultChatName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message and bumps UpdatedAt.
func (c *Chat) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
}

// Rename sets the chat title.
func (c *Chat) Rename(name string) {
	c.Name = name
	c.HasTitle = true
	c.UpdatedAt = time.Now()
}

// NeedsTitle reports whether a title should be generated: the chat has not
// been titled and holds at least one user message and one assistant reply.
func (c Chat) NeedsTitle() bool {
	if c.HasTitle {
		return false
	}
	var user, assistant bool
	for _, m := range c.Messages {
		switch m.Role {
		case RoleUser:
			user = true
		case RoleAssistant:
			assistant = true
		}
	}
	return user && assistant
}

// ChatList is the persisted set of chats plus the selected one.
type ChatList struct {
	Chats     []Chat
	CurrentID string
}

// Current returns the selected chat, or nil if none is selected.
func (l *ChatList) Current() *Chat {
	return l.Find(l.CurrentID)
}

// Find returns the chat with id, or nil.
func (l *ChatList) Find(id string) *Chat {
	for i := range l.Chats {
		if l.Chats[i].ID == id {
			return &l.Chats[i]
		}
	}
	return nil
}

// Add prepends chat and selects it.
func (l *ChatList) Add(chat Chat) *Chat {
	l.Chats = append([]Chat{chat}, l.Chats...)
	l.CurrentID = chat.ID
	return &l.Chats[0]
}

// Remove deletes the chat with id. If it was selected, the first remaining
// chat becomes current.
func (l *ChatList) Remove(id string) bool {
	for i := range l.Chats {
		if l.Chats[i].ID != id {
			continue
		}
		l.Chats = append(l.Chats[:i], l.Chats[i+1:]...)
		if l.CurrentID == id {
			l.CurrentID = ""
			if len(l.Chats) > 0 {
				l.CurrentID = l.Chats[0].ID
			}
		}
		return true
	}
	return false
}
