// Package mock provides test doubles for dream interfaces using function fields.
package mock

import (
	"context"
	"time"

	"github.com/ssyqq/dream"
)

// Interface compliance checks.
var (
	_ dream.Sender   = (*Sender)(nil)
	_ dream.Observer = (*Observer)(nil)
)

// Sender is a test double for dream.Sender.
// Set SendFn before calling Send.
type Sender struct {
	SendFn func(ctx context.Context, endpoint dream.Endpoint, req dream.Request, policy dream.RetryPolicy) dream.Stream
}

// Send delegates to SendFn.
func (s *Sender) Send(ctx context.Context, endpoint dream.Endpoint, req dream.Request, policy dream.RetryPolicy) dream.Stream {
	return s.SendFn(ctx, endpoint, req, policy)
}

// Observer is a test double for dream.Observer. All function fields are
// nil-safe.
type Observer struct {
	OnAttemptFn func()
	OnRetryFn   func(kind dream.ErrorKind)
	OnFinishFn  func(outcome dream.Outcome, elapsed time.Duration)
}

// OnAttempt delegates to OnAttemptFn.
func (o *Observer) OnAttempt() {
	if o.OnAttemptFn != nil {
		o.OnAttemptFn()
	}
}

// OnRetry delegates to OnRetryFn.
func (o *Observer) OnRetry(kind dream.ErrorKind) {
	if o.OnRetryFn != nil {
		o.OnRetryFn(kind)
	}
}

// OnFinish delegates to OnFinishFn.
func (o *Observer) OnFinish(outcome dream.Outcome, elapsed time.Duration) {
	if o.OnFinishFn != nil {
		o.OnFinishFn(outcome, elapsed)
	}
}
