// Package json persists chat lists as versioned JSON documents.
package json

import "time"

// envelope is the v1 wire format for a persisted chat list.
type envelope struct {
	Version       int       `json:"version"`
	CurrentChatID string    `json:"current_chat_id,omitempty"`
	Chats         []chatDTO `json:"chats"`
}

type chatDTO struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Messages       []messageDTO  `json:"messages"`
	HasBeenRenamed bool          `json:"has_been_renamed"`
	Config         chatConfigDTO `json:"config"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type chatConfigDTO struct {
	ModelName    string   `json:"model_name,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// messageDTO is the JSON representation of a Message.
type messageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImagePath *string   `json:"image_path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
