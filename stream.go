package dream

import "context"

// StreamState indicates the current state of a Stream, as seen by the consumer.
type StreamState int

const (
	StreamStateNew       StreamState = iota // No event consumed yet.
	StreamStateStreaming                    // At least one event consumed, EventDone not yet.
	StreamStateComplete                     // EventDone consumed after a successful send.
	StreamStateError                        // EventDone consumed after an EventError.
	StreamStateClosed                       // Close() called before EventDone was consumed.
)

func (s StreamState) String() string {
	switch s {
	case StreamStateNew:
		return "new"
	case StreamStateStreaming:
		return "streaming"
	case StreamStateComplete:
		return "complete"
	case StreamStateError:
		return "error"
	case StreamStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream is the receiving end of one send operation.
//
// Poll never blocks: it returns the next queued event, or false when none
// is available yet. Next blocks until an event arrives, ctx is done, or the
// stream is finished. After EventDone has been returned both report the end
// of the stream: Poll returns false and Next returns io.EOF.
//
// Close releases the stream and cancels the producer. It is safe to call
// more than once and from any goroutine.
type Stream interface {
	Poll() (Event, bool)
	Next(ctx context.Context) (Event, error)
	State() StreamState
	Close() error
}
