// Package toml loads, saves, and watches the TOML configuration file.
package toml

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ssyqq/dream"
)

// fileConfig is the on-disk layout of the configuration.
type fileConfig struct {
	APIKey string    `toml:"api_key"`
	API    apiTable  `toml:"api"`
	Chat   chatTable `toml:"chat"`
}

type apiTable struct {
	Endpoint string `toml:"endpoint"`
	Model    string `toml:"model"`
}

type chatTable struct {
	SystemPrompt   string  `toml:"system_prompt"`
	Temperature    float64 `toml:"temperature"`
	RetryEnabled   bool    `toml:"retry_enabled"`
	MaxRetries     int     `toml:"max_retries"`
	RetryBaseDelay string  `toml:"retry_base_delay"`
	RetryMaxDelay  string  `toml:"retry_max_delay"`
	DarkMode       bool    `toml:"dark_mode"`
}

func toFile(cfg dream.Config) fileConfig {
	return fileConfig{
		APIKey: cfg.APIKey,
		API: apiTable{
			Endpoint: cfg.API.Endpoint,
			Model:    cfg.API.Model,
		},
		Chat: chatTable{
			SystemPrompt:   cfg.Chat.SystemPrompt,
			Temperature:    cfg.Chat.Temperature,
			RetryEnabled:   cfg.Chat.RetryEnabled,
			MaxRetries:     cfg.Chat.MaxRetries,
			RetryBaseDelay: cfg.Chat.RetryBaseDelay.String(),
			RetryMaxDelay:  cfg.Chat.RetryMaxDelay.String(),
			DarkMode:       cfg.Chat.DarkMode,
		},
	}
}

func fromFile(f fileConfig) (dream.Config, error) {
	base, err := time.ParseDuration(f.Chat.RetryBaseDelay)
	if err != nil {
		return dream.Config{}, fmt.Errorf("chat.retry_base_delay: %w", err)
	}
	maxDelay, err := time.ParseDuration(f.Chat.RetryMaxDelay)
	if err != nil {
		return dream.Config{}, fmt.Errorf("chat.retry_max_delay: %w", err)
	}
	return dream.Config{
		APIKey: f.APIKey,
		API: dream.APIConfig{
			Endpoint: f.API.Endpoint,
			Model:    f.API.Model,
		},
		Chat: dream.ChatSettings{
			SystemPrompt:   f.Chat.SystemPrompt,
			Temperature:    f.Chat.Temperature,
			RetryEnabled:   f.Chat.RetryEnabled,
			MaxRetries:     f.Chat.MaxRetries,
			RetryBaseDelay: base,
			RetryMaxDelay:  maxDelay,
			DarkMode:       f.Chat.DarkMode,
		},
	}, nil
}

// Decode parses TOML data. Keys missing from data keep their defaults.
func Decode(data []byte) (dream.Config, error) {
	f := toFile(dream.DefaultConfig())
	if _, err := toml.Decode(string(data), &f); err != nil {
		return dream.Config{}, fmt.Errorf("toml: %w", err)
	}
	cfg, err := fromFile(f)
	if err != nil {
		return dream.Config{}, fmt.Errorf("toml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return dream.Config{}, fmt.Errorf("toml: %w", err)
	}
	return cfg, nil
}

// Encode renders cfg as TOML.
func Encode(cfg dream.Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# dream configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(toFile(cfg)); err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads the configuration file. A missing file yields the defaults.
func Load(path string) (dream.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return dream.DefaultConfig(), nil
	}
	if err != nil {
		return dream.Config{}, fmt.Errorf("toml: %w", err)
	}
	return Decode(data)
}

// Save writes cfg to path atomically. The file holds the API key, so it is
// created readable by the owner only.
func Save(path string, cfg dream.Config) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("toml: create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("toml: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("toml: rename temp file: %w", err)
	}
	return nil
}
