package chat

import (
	"fmt"
	"time"

	"github.com/ssyqq/dream"
)

// Transcript is the consumer-side view of one reply.
//
// Content events replace the reply text. A retry clears the text of the
// abandoned attempt and shows a notice until the next content arrives. An
// error keeps whatever text was streamed.
type Transcript struct {
	Reply   string
	Notice  string
	Err     error
	Retries int
	Done    bool
}

// Apply updates the transcript with e and reports whether it changed.
func (t *Transcript) Apply(e dream.Event) bool {
	if t.Done {
		return false
	}
	switch e := e.(type) {
	case dream.EventContent:
		t.Reply = e.Text
		t.Notice = ""
	case dream.EventRetry:
		t.Reply = ""
		t.Retries = e.Attempt
		t.Notice = RetryNotice(e)
	case dream.EventError:
		t.Err = e.Err
		t.Notice = ""
	case dream.EventDone:
		t.Done = true
	default:
		return false
	}
	return true
}

// Succeeded reports whether the reply completed without error.
func (t *Transcript) Succeeded() bool {
	return t.Done && t.Err == nil
}

// Message returns the assistant message to persist. It reports false until
// the reply has completed successfully with some text.
func (t *Transcript) Message(now time.Time) (dream.Message, bool) {
	if !t.Succeeded() || t.Reply == "" {
		return dream.Message{}, false
	}
	return dream.Message{Role: dream.RoleAssistant, Content: t.Reply, Timestamp: now}, true
}

// RetryNotice describes a retry for display.
func RetryNotice(e dream.EventRetry) string {
	reason := "Request failed"
	switch dream.KindOf(e.Err) {
	case dream.KindRateLimit:
		reason = "Rate limited"
	case dream.KindTransport:
		reason = "Network error"
	case dream.KindUpstreamAPI:
		reason = "API error"
	}
	msg := fmt.Sprintf("%s, retry %d of %d", reason, e.Attempt, e.Max)
	if e.Delay > 0 {
		msg += fmt.Sprintf(" in %s", e.Delay.Round(100*time.Millisecond))
	}
	return msg + "..."
}
