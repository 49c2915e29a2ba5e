package dream

import (
	"context"
	"time"
)

// Endpoint identifies a chat-completion endpoint and the key used to call it.
type Endpoint struct {
	URL    string
	APIKey string
}

// Sender starts streaming send operations.
//
// Send returns immediately. The operation runs in the background and reports
// progress through the returned Stream until EventDone. Cancelling ctx or
// closing the Stream stops it; no further attempts are made.
//
// Request is passed by value and never modified by the sender.
type Sender interface {
	Send(ctx context.Context, endpoint Endpoint, req Request, policy RetryPolicy) Stream
}

// Outcome classifies how a send operation ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeCanceled Outcome = "canceled"
)

// Observer receives notifications about send operations. Implementations
// must be safe for concurrent use; a Sender may run many sends at once.
type Observer interface {
	OnAttempt()
	OnRetry(kind ErrorKind)
	OnFinish(outcome Outcome, elapsed time.Duration)
}
