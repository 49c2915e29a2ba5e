package dream

import (
	"fmt"
	"net/url"
	"time"
)

// Config defaults.
const (
	DefaultEndpoint     = "https://api.openai.com/v1/chat/completions"
	DefaultModel        = "gpt-3.5-turbo"
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultTemperature  = 0.7
)

// Config is the application configuration.
type Config struct {
	APIKey string
	API    APIConfig
	Chat   ChatSettings
}

// APIConfig selects the endpoint and model.
type APIConfig struct {
	Endpoint string
	Model    string
}

// ChatSettings holds generation, retry and display settings.
type ChatSettings struct {
	SystemPrompt   string
	Temperature    float64
	RetryEnabled   bool
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	DarkMode       bool
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Endpoint: DefaultEndpoint,
			Model:    DefaultModel,
		},
		Chat: ChatSettings{
			SystemPrompt:   DefaultSystemPrompt,
			Temperature:    DefaultTemperature,
			RetryEnabled:   true,
			MaxRetries:     DefaultMaxRetries,
			RetryBaseDelay: DefaultRetryBaseDelay,
			RetryMaxDelay:  DefaultRetryMaxDelay,
			DarkMode:       true,
		},
	}
}

// Validate checks the configuration. A missing API key is not an error
// here; it is reported by the endpoint on first use.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.endpoint must be an http(s) URL, got %q: %w", c.API.Endpoint, ErrValidation)
	}
	if c.API.Model == "" {
		return fmt.Errorf("api.model must not be empty: %w", ErrValidation)
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("chat.temperature must be in [0, 2], got %g: %w", c.Chat.Temperature, ErrValidation)
	}
	if c.Chat.MaxRetries < 0 {
		return fmt.Errorf("chat.max_retries must be non-negative, got %d: %w", c.Chat.MaxRetries, ErrValidation)
	}
	if c.Chat.RetryBaseDelay < 0 || c.Chat.RetryMaxDelay < 0 {
		return fmt.Errorf("chat retry delays must be non-negative: %w", ErrValidation)
	}
	return nil
}

// Endpoint returns the endpoint to send requests to.
func (c Config) Endpoint() Endpoint {
	return Endpoint{URL: c.API.Endpoint, APIKey: c.APIKey}
}

// RetryPolicy returns the retry policy described by the chat settings.
func (c Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		Enabled:    c.Chat.RetryEnabled,
		MaxRetries: c.Chat.MaxRetries,
		BaseDelay:  c.Chat.RetryBaseDelay,
		MaxDelay:   c.Chat.RetryMaxDelay,
	}
}

// Theme returns the theme matching the DarkMode setting.
func (c Config) Theme() Theme {
	if c.Chat.DarkMode {
		return DarkTheme()
	}
	return LightTheme()
}
