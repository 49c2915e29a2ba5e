// Package openai implements [dream.Sender] for OpenAI-compatible
// chat-completion endpoints.
//
// Each send runs on its own goroutine: it posts the request, pumps the SSE
// body through an [sse.Decoder], and publishes full-text snapshots to a
// [stream.Queue]. Rate limiting, transport failures, and error objects
// inside the stream are retried according to the [dream.RetryPolicy].
package openai

import (
	"encoding/json"
)

const (
	readChunkSize = 4096
	maxErrorBody  = 64 << 10
)

// apiRequest is the JSON body sent to the chat-completions endpoint.
type apiRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Temperature *float64     `json:"temperature,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Stream      bool         `json:"stream"`
}

type apiMessage struct {
	Role    string     `json:"role"`
	Content apiContent `json:"content"`
}

// apiContent is either a plain string or a list of parts, when the message
// carries an image.
type apiContent struct {
	Text  string
	Parts []apiContentPart
}

func (c apiContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

type apiContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *apiImageURL `json:"image_url,omitempty"`
}

type apiImageURL struct {
	URL string `json:"url"`
}

// SSE response types.

type sseFrame struct {
	Choices json.RawMessage `json:"choices"`
	Error   json.RawMessage `json:"error"`
}

type sseChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

// sseError is the error object embedded in a stream or returned with a
// non-2xx status. Fields are kept raw because providers disagree on types.
type sseError struct {
	Message  json.RawMessage `json:"message"`
	Metadata *struct {
		Raw json.RawMessage `json:"raw"`
	} `json:"metadata"`
}

// apiErrorResponse is the JSON body returned on non-2xx HTTP responses.
type apiErrorResponse struct {
	Error json.RawMessage `json:"error"`
}
