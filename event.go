package dream

import "time"

// Event is a sealed interface representing a streaming event.
// Every send ends with exactly one EventDone; an EventError is always
// immediately followed by it.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventContent carries the full reply assembled so far, not a delta.
type EventContent struct {
	Text string
}

func (EventContent) event() {}

// EventRetry announces that the current attempt failed and another one
// will start after Delay. Text from the failed attempt is discarded.
type EventRetry struct {
	Attempt int // 1-based retry number.
	Max     int
	Err     error
	Delay   time.Duration
}

func (EventRetry) event() {}

// EventError reports a terminal failure.
type EventError struct {
	Err error
}

func (EventError) event() {}

// EventTitle carries a generated chat title.
type EventTitle struct {
	ChatID string
	Title  string
}

func (EventTitle) event() {}

// EventDone marks the end of a send. Nothing follows it.
type EventDone struct{}

func (EventDone) event() {}

// Interface compliance checks.
var (
	_ Event = EventContent{}
	_ Event = EventRetry{}
	_ Event = EventError{}
	_ Event = EventTitle{}
	_ Event = EventDone{}
)
