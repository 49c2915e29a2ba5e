package dream

import "time"

// Default retry settings.
const (
	DefaultMaxRetries     = 10
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 10 * time.Second
)

// RetryPolicy controls retries of a send operation. MaxRetries counts
// retries, not attempts: MaxRetries of N allows up to N+1 attempts.
type RetryPolicy struct {
	Enabled    bool
	MaxRetries int
	BaseDelay  time.Duration // Zero retries immediately.
	MaxDelay   time.Duration // Zero means uncapped.
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Enabled:    true,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultRetryBaseDelay,
		MaxDelay:   DefaultRetryMaxDelay,
	}
}

// Allow reports whether another retry may follow after retries have been
// performed.
func (p RetryPolicy) Allow(retries int) bool {
	return p.Enabled && retries < p.MaxRetries
}

// Delay returns the wait before the given 1-based retry: BaseDelay doubled
// for each earlier retry, capped at MaxDelay.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if p.BaseDelay <= 0 || retry < 1 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < retry; i++ {
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			break
		}
		if delay > time.Duration(1<<62)/2 {
			break
		}
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
