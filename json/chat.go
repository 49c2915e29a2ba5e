package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ssyqq/dream"
)

// MarshalChatList serializes a ChatList to JSON in v1 envelope format.
func MarshalChatList(l dream.ChatList) ([]byte, error) {
	env := envelope{
		Version:       1,
		CurrentChatID: l.CurrentID,
		Chats:         make([]chatDTO, len(l.Chats)),
	}
	for i, c := range l.Chats {
		dto := chatDTO{
			ID:             c.ID,
			Name:           c.Name,
			Messages:       make([]messageDTO, len(c.Messages)),
			HasBeenRenamed: c.HasTitle,
			Config: chatConfigDTO{
				ModelName:    c.Config.Model,
				SystemPrompt: c.Config.SystemPrompt,
				Temperature:  c.Config.Temperature,
			},
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
		for j, m := range c.Messages {
			msg, err := marshalMessage(m)
			if err != nil {
				return nil, fmt.Errorf("chat %s: message %d: %w", c.ID, j, err)
			}
			dto.Messages[j] = msg
		}
		env.Chats[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalChatList deserializes a ChatList from JSON in v1 envelope format.
func UnmarshalChatList(data []byte) (dream.ChatList, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return dream.ChatList{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return dream.ChatList{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	l := dream.ChatList{
		CurrentID: env.CurrentChatID,
		Chats:     make([]dream.Chat, len(env.Chats)),
	}
	for i, dto := range env.Chats {
		c := dream.Chat{
			ID:       dto.ID,
			Name:     dto.Name,
			Messages: make([]dream.Message, len(dto.Messages)),
			HasTitle: dto.HasBeenRenamed,
			Config: dream.ChatConfig{
				Model:        dto.Config.ModelName,
				SystemPrompt: dto.Config.SystemPrompt,
				Temperature:  dto.Config.Temperature,
			},
			CreatedAt: dto.CreatedAt,
			UpdatedAt: dto.UpdatedAt,
		}
		for j, m := range dto.Messages {
			msg, err := unmarshalMessage(m)
			if err != nil {
				return dream.ChatList{}, fmt.Errorf("chat %s: message %d: %w", dto.ID, j, err)
			}
			c.Messages[j] = msg
		}
		l.Chats[i] = c
	}
	if l.CurrentID != "" && l.Current() == nil {
		l.CurrentID = ""
	}
	return l, nil
}

// Save writes a ChatList to a JSON file, creating parent directories as needed.
func Save(path string, l dream.ChatList) error {
	data, err := MarshalChatList(l)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a ChatList from a JSON file. A missing file yields an empty list.
func Load(path string) (dream.ChatList, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return dream.ChatList{}, nil
	}
	if err != nil {
		return dream.ChatList{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalChatList(data)
}

func marshalMessage(m dream.Message) (messageDTO, error) {
	if err := dream.ValidateMessage(m); err != nil {
		return messageDTO{}, err
	}
	dto := messageDTO{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp}
	if m.ImagePath != "" {
		p := m.ImagePath
		dto.ImagePath = &p
	}
	return dto, nil
}

func unmarshalMessage(dto messageDTO) (dream.Message, error) {
	m := dream.Message{Role: dream.Role(dto.Role), Content: dto.Content, Timestamp: dto.Timestamp}
	if dto.ImagePath != nil {
		m.ImagePath = *dto.ImagePath
	}
	if err := dream.ValidateMessage(m); err != nil {
		return dream.Message{}, err
	}
	return m, nil
}
