package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ssyqq/dream"
	"github.com/ssyqq/dream/sse"
	"github.com/ssyqq/dream/stream"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Interface compliance check.
var _ dream.Sender = (*Client)(nil)

// sharedHTTPClient is reused by every Client that does not set its own, so
// concurrent sends share one connection pool. It has no overall timeout
// because replies stream for as long as the model generates.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 2 * time.Minute,
	},
}

// Client implements [dream.Sender] for OpenAI-compatible endpoints.
// It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	logger       *zap.Logger
	limiter      *rate.Limiter
	observer     dream.Observer
	maxFrameSize int
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRateLimiter paces attempts. Every attempt of every send made through
// the client waits for a token first.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithObserver registers an observer for attempts, retries, and outcomes.
func WithObserver(o dream.Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithMaxFrameSize bounds the data retained for an incomplete frame.
func WithMaxFrameSize(n int) Option {
	return func(c *Client) { c.maxFrameSize = n }
}

// New creates a new [Client].
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:   sharedHTTPClient,
		logger:       zap.NewNop(),
		observer:     nopObserver{},
		maxFrameSize: sse.DefaultMaxFrameSize,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send starts a streaming send and returns its event stream immediately.
func (c *Client) Send(ctx context.Context, endpoint dream.Endpoint, req dream.Request, policy dream.RetryPolicy) dream.Stream {
	q := stream.New(ctx)
	go c.run(q, endpoint, req, policy)
	return q
}

func (c *Client) run(q *stream.Queue, endpoint dream.Endpoint, req dream.Request, policy dream.RetryPolicy) {
	ctx := q.Context()
	start := time.Now()
	outcome := dream.OutcomeFailure
	defer func() {
		q.Finish()
		c.observer.OnFinish(outcome, time.Since(start))
	}()

	log := c.logger.With(zap.String("endpoint", endpoint.URL), zap.String("model", req.Model))

	if err := req.Validate(); err != nil {
		q.Fail(fmt.Errorf("openai: %w", err))
		return
	}
	body, err := c.buildRequestBody(req)
	if err != nil {
		q.Fail(fmt.Errorf("openai: %w", err))
		return
	}

	retries := 0
	for {
		log.Debug("attempt", zap.Int("retry", retries))
		err := c.attempt(ctx, q, endpoint, body)
		if err == nil {
			log.Debug("send complete", zap.Int("retries", retries))
			outcome = dream.OutcomeSuccess
			return
		}
		if ctx.Err() != nil {
			log.Debug("send canceled", zap.Error(ctx.Err()))
			outcome = dream.OutcomeCanceled
			q.Fail(fmt.Errorf("openai: %w", ctx.Err()))
			return
		}
		if !dream.Retryable(err) || !policy.Allow(retries) {
			var e *dream.Error
			if errors.As(err, &e) {
				e.Retries = retries
			}
			log.Warn("send failed", zap.Int("retries", retries), zap.Error(err))
			q.Fail(fmt.Errorf("openai: %w", err))
			return
		}

		retries++
		delay := policy.Delay(retries)
		kind := dream.KindOf(err)
		log.Debug("retrying",
			zap.Stringer("kind", kind),
			zap.Int("retry", retries),
			zap.Int("max", policy.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))
		c.observer.OnRetry(kind)
		q.Emit(dream.EventRetry{Attempt: retries, Max: policy.MaxRetries, Err: err, Delay: delay})

		if !sleep(ctx, delay) {
			outcome = dream.OutcomeCanceled
			q.Fail(fmt.Errorf("openai: %w", ctx.Err()))
			return
		}
	}
}

// attempt performs one HTTP request and streams its body. It returns nil
// once the reply is complete.
func (c *Client) attempt(ctx context.Context, q *stream.Queue, endpoint dream.Endpoint, body []byte) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	c.observer.OnAttempt()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+endpoint.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &dream.Error{Kind: dream.KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp)
	}
	return c.consume(q, resp.Body)
}

// consume reads the body through a fresh decoder and emits a snapshot of the
// assembled reply for every content delta.
func (c *Client) consume(q *stream.Queue, body io.Reader) error {
	dec := sse.NewDecoder(sse.WithMaxFrameSize(c.maxFrameSize))
	var text strings.Builder
	buf := make([]byte, readChunkSize)

	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			frames, derr := dec.Feed(buf[:n])
			done, err := c.handleFrames(q, &text, frames)
			if err != nil || done {
				return err
			}
			if derr != nil {
				return &dream.Error{Kind: dream.KindDecode, Err: derr}
			}
		}
		if rerr == io.EOF {
			frames, derr := dec.Flush()
			if _, err := c.handleFrames(q, &text, frames); err != nil {
				return err
			}
			if derr != nil {
				return &dream.Error{Kind: dream.KindDecode, Err: derr}
			}
			c.logger.Debug("body ended without terminator")
			return nil
		}
		if rerr != nil {
			return &dream.Error{Kind: dream.KindTransport, Err: rerr}
		}
	}
}

func (c *Client) handleFrames(q *stream.Queue, text *strings.Builder, frames []string) (bool, error) {
	for _, f := range frames {
		if f == sse.Done {
			return true, nil
		}
		var frame sseFrame
		if err := json.Unmarshal([]byte(f), &frame); err != nil {
			c.logger.Debug("skipping frame", zap.String("frame", f), zap.Error(err))
			continue
		}
		if isPresent(frame.Error) {
			return false, upstreamError(frame.Error)
		}
		var choices []sseChoice
		if err := json.Unmarshal(frame.Choices, &choices); err != nil || len(choices) == 0 {
			continue
		}
		if delta := choices[0].Delta.Content; delta != "" {
			text.WriteString(delta)
			q.Emit(dream.EventContent{Text: text.String()})
		}
	}
	return false, nil
}

func (c *Client) buildRequestBody(req dream.Request) ([]byte, error) {
	return json.Marshal(apiRequest{
		Model:       req.Model,
		Messages:    c.convertMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
}

func (c *Client) convertMessages(msgs []dream.Message) []apiMessage {
	result := make([]apiMessage, 0, len(msgs))
	for _, m := range msgs {
		msg := apiMessage{Role: string(m.Role), Content: apiContent{Text: m.Content}}
		if m.HasImage() {
			url, err := imageDataURL(m.ImagePath)
			if err != nil {
				c.logger.Warn("sending message without image", zap.String("path", m.ImagePath), zap.Error(err))
			} else {
				msg.Content.Parts = []apiContentPart{
					{Type: "image_url", ImageURL: &apiImageURL{URL: url}},
					{Type: "text", Text: m.Content},
				}
			}
		}
		result = append(result, msg)
	}
	return result
}

// imageDataURL reads an image file and encodes it as a base64 data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func parseHTTPError(resp *http.Response) error {
	kind := dream.KindHTTPStatus
	if resp.StatusCode == http.StatusTooManyRequests {
		kind = dream.KindRateLimit
	}
	e := &dream.Error{Kind: kind, Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		e.Err = err
		return e
	}
	var apiErr apiErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && isPresent(apiErr.Error) {
		e.Message = errorMessage(apiErr.Error)
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

// upstreamError converts an error object found inside the stream.
func upstreamError(raw json.RawMessage) *dream.Error {
	e := &dream.Error{Kind: dream.KindUpstreamAPI, Message: errorMessage(raw)}
	var obj sseError
	if json.Unmarshal(raw, &obj) == nil && obj.Metadata != nil {
		e.Detail = rawText(obj.Metadata.Raw)
	}
	return e
}

// errorMessage extracts error.message, accepting a bare string error too.
func errorMessage(raw json.RawMessage) string {
	var obj sseError
	if json.Unmarshal(raw, &obj) == nil {
		if msg := rawText(obj.Message); msg != "" {
			return msg
		}
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}
	return "unknown error"
}

// rawText returns a JSON string's value, or the JSON text of any other
// non-null value.
func rawText(raw json.RawMessage) string {
	if !isPresent(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// sleep waits for d or until ctx is done. It reports whether the wait
// completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type nopObserver struct{}

func (nopObserver) OnAttempt()                            {}
func (nopObserver) OnRetry(dream.ErrorKind)               {}
func (nopObserver) OnFinish(dream.Outcome, time.Duration) {}
