package dream_test

import (
	"testing"
	"time"

	"github.com/ssyqq/dream"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := dream.DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.API.Endpoint)
	assert.Equal(t, "gpt-3.5-turbo", cfg.API.Model)
	assert.InDelta(t, 0.7, cfg.Chat.Temperature, 1e-9)
	assert.True(t, cfg.Chat.RetryEnabled)
	assert.Equal(t, 10, cfg.Chat.MaxRetries)
	assert.True(t, cfg.Chat.DarkMode)
	assert.Equal(t, dream.DefaultRetryPolicy(), cfg.RetryPolicy())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*dream.Config)
	}{
		{"relative endpoint", func(c *dream.Config) { c.API.Endpoint = "/v1/chat" }},
		{"ftp endpoint", func(c *dream.Config) { c.API.Endpoint = "ftp://example.com" }},
		{"empty model", func(c *dream.Config) { c.API.Model = "" }},
		{"temperature too high", func(c *dream.Config) { c.Chat.Temperature = 3 }},
		{"negative retries", func(c *dream.Config) { c.Chat.MaxRetries = -1 }},
		{"negative delay", func(c *dream.Config) { c.Chat.RetryBaseDelay = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := dream.DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), dream.ErrValidation)
		})
	}
}

func TestConfig_EndpointAndPolicy(t *testing.T) {
	t.Parallel()
	cfg := dream.DefaultConfig()
	cfg.APIKey = "sk-test"
	cfg.Chat.RetryEnabled = false
	cfg.Chat.MaxRetries = 3
	cfg.Chat.RetryBaseDelay = 0

	assert.Equal(t, dream.Endpoint{URL: dream.DefaultEndpoint, APIKey: "sk-test"}, cfg.Endpoint())
	assert.Equal(t, dream.RetryPolicy{MaxRetries: 3, MaxDelay: dream.DefaultRetryMaxDelay}, cfg.RetryPolicy())
}

func TestConfig_Theme(t *testing.T) {
	t.Parallel()
	cfg := dream.DefaultConfig()
	assert.Equal(t, dream.DarkTheme(), cfg.Theme())
	cfg.Chat.DarkMode = false
	assert.Equal(t, dream.LightTheme(), cfg.Theme())
}
