// Package stream provides the event queue that connects a send operation to
// its consumer.
package stream

import (
	"context"
	"io"
	"sync"

	"github.com/ssyqq/dream"
)

// Queue is an unbounded, order-preserving, single-producer single-consumer
// event queue. The producer side never blocks. The consumer side implements
// [dream.Stream].
//
// Once EventDone has been emitted, or the consumer has closed the queue,
// further events are dropped.
type Queue struct {
	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}

	mu      sync.Mutex
	events  []dream.Event
	done    bool // EventDone emitted
	closed  bool
	errSeen bool // EventError consumed
	state   dream.StreamState
}

// Interface compliance check.
var _ dream.Stream = (*Queue)(nil)

// New returns an empty queue whose producer context is derived from ctx.
func New(ctx context.Context) *Queue {
	ctx, cancel := context.WithCancel(ctx)
	return &Queue{
		ctx:    ctx,
		cancel: cancel,
		ready:  make(chan struct{}, 1),
	}
}

// Context returns the producer context. It is cancelled when the consumer
// closes the queue or the parent context is done.
func (q *Queue) Context() context.Context {
	return q.ctx
}

// Emit appends e to the queue. It reports false if e was dropped.
func (q *Queue) Emit(e dream.Event) bool {
	q.mu.Lock()
	if q.done || q.closed {
		q.mu.Unlock()
		return false
	}
	q.events = append(q.events, e)
	if _, ok := e.(dream.EventDone); ok {
		q.done = true
	}
	q.mu.Unlock()
	q.signal()
	return true
}

// Fail emits EventError for err followed by EventDone.
func (q *Queue) Fail(err error) {
	q.Emit(dream.EventError{Err: err})
	q.Finish()
}

// Finish emits EventDone unless it was already emitted, and releases the
// producer context. Producers call it when they exit.
func (q *Queue) Finish() {
	q.Emit(dream.EventDone{})
	q.cancel()
}

// Poll returns the next event without blocking.
func (q *Queue) Poll() (dream.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.events) == 0 {
		return nil, false
	}
	e := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]

	switch e.(type) {
	case dream.EventError:
		q.errSeen = true
		q.state = dream.StreamStateStreaming
	case dream.EventDone:
		if q.errSeen {
			q.state = dream.StreamStateError
		} else {
			q.state = dream.StreamStateComplete
		}
	default:
		q.state = dream.StreamStateStreaming
	}
	return e, true
}

// Next blocks until an event is available. It returns io.EOF once EventDone
// has been consumed and [dream.ErrStreamClosed] after Close.
func (q *Queue) Next(ctx context.Context) (dream.Event, error) {
	for {
		if e, ok := q.Poll(); ok {
			return e, nil
		}
		q.mu.Lock()
		closed, state := q.closed, q.state
		q.mu.Unlock()
		if closed {
			return nil, dream.ErrStreamClosed
		}
		if state == dream.StreamStateComplete || state == dream.StreamStateError {
			return nil, io.EOF
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// State returns the consumer-side state.
func (q *Queue) State() dream.StreamState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Close drops pending events and cancels the producer context.
func (q *Queue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.events = nil
		if q.state != dream.StreamStateComplete && q.state != dream.StreamStateError {
			q.state = dream.StreamStateClosed
		}
	}
	q.mu.Unlock()
	q.cancel()
	q.signal()
	return nil
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
