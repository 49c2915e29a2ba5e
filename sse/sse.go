// Package sse decodes server-sent event data frames from a chunked byte
// stream.
package sse

import "errors"

// Done is the raw frame that terminates a chat-completion stream.
const Done = "[DONE]"

// DefaultMaxFrameSize bounds the data a Decoder retains while waiting for a
// frame to complete.
const DefaultMaxFrameSize = 1 << 20

// Errors returned by Decoder. The Decoder stops accepting input after any of
// them.
var (
	ErrInvalidUTF8     = errors.New("sse: invalid utf-8 in stream")
	ErrFrameTooLarge   = errors.New("sse: frame exceeds maximum size")
	ErrIncompleteFrame = errors.New("sse: stream ended inside a frame")
)
