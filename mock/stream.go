package mock

import (
	"context"

	"github.com/ssyqq/dream"
)

// Interface compliance check.
var _ dream.Stream = (*Stream)(nil)

// Stream is a test double for dream.Stream.
// Set the function fields for the methods you need. PollFn and NextFn
// panic when nil to catch missing setup. CloseFn and StateFn are nil-safe
// (no-op and zero value) because test code commonly calls defer stream.Close()
// and these methods rarely need custom behavior.
type Stream struct {
	PollFn  func() (dream.Event, bool)
	NextFn  func(ctx context.Context) (dream.Event, error)
	StateFn func() dream.StreamState
	CloseFn func() error
}

// Poll delegates to PollFn.
func (s *Stream) Poll() (dream.Event, bool) {
	return s.PollFn()
}

// Next delegates to NextFn.
func (s *Stream) Next(ctx context.Context) (dream.Event, error) {
	return s.NextFn(ctx)
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() dream.StreamState {
	if s.StateFn == nil {
		return dream.StreamStateNew
	}
	return s.StateFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
