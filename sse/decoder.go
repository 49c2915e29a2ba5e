package sse

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

var marker = []byte("data: ")

// Decoder turns arbitrarily split chunks of an SSE body into complete data
// frames. A Decoder is not safe for concurrent use and serves one body.
//
// Lines are accumulated until the accumulated text contains a "data: "
// marker followed by either [Done] or a complete JSON document. Text before
// the marker is ignored. A JSON document split over several lines is
// reassembled by appending the following lines until it parses.
type Decoder struct {
	maxSize int
	tail    []byte // unterminated line
	pending []byte // complete lines not yet forming a frame
	err     error
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxFrameSize sets the maximum number of bytes retained while a frame
// is incomplete. Non-positive values select DefaultMaxFrameSize.
func WithMaxFrameSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// NewDecoder returns an empty Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{maxSize: DefaultMaxFrameSize}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed consumes the next chunk of the body and returns the frames it
// completed, in order. The returned frames are valid even when err is
// non-nil.
func (d *Decoder) Feed(chunk []byte) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.tail = append(d.tail, chunk...)

	var frames []string
	start := 0
	for {
		i := bytes.IndexByte(d.tail[start:], '\n')
		if i < 0 {
			break
		}
		line := d.tail[start : start+i]
		start += i + 1
		frame, ok, err := d.line(line)
		if err != nil {
			d.err = err
			return frames, err
		}
		if ok {
			frames = append(frames, frame)
		}
	}
	d.tail = append(d.tail[:0], d.tail[start:]...)

	if len(d.pending)+len(d.tail) > d.maxSize {
		d.err = ErrFrameTooLarge
		return frames, d.err
	}
	return frames, nil
}

// Flush treats any unterminated line as complete and returns the frames it
// yields. It returns ErrIncompleteFrame if a frame was started but its JSON
// never completed.
func (d *Decoder) Flush() ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	var frames []string
	if len(d.tail) > 0 {
		line := d.tail
		d.tail = nil
		frame, ok, err := d.line(line)
		if err != nil {
			d.err = err
			return nil, err
		}
		if ok {
			frames = append(frames, frame)
		}
	}
	if bytes.Contains(d.pending, marker) {
		d.err = ErrIncompleteFrame
		return frames, d.err
	}
	d.pending = nil
	return frames, nil
}

// line appends one complete line to the pending data and reports the frame
// it completes, if any.
func (d *Decoder) line(line []byte) (string, bool, error) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if !utf8.Valid(line) {
		return "", false, ErrInvalidUTF8
	}
	if len(d.pending)+len(line) > d.maxSize {
		return "", false, ErrFrameTooLarge
	}
	d.pending = append(d.pending, line...)

	i := bytes.Index(d.pending, marker)
	if i < 0 {
		return "", false, nil
	}
	data := d.pending[i+len(marker):]
	switch {
	case len(bytes.TrimSpace(data)) == 0:
		// Empty data line: nothing to wait for.
		d.pending = d.pending[:0]
		return "", false, nil
	case string(bytes.TrimSpace(data)) == Done:
		d.pending = d.pending[:0]
		return Done, true, nil
	case json.Valid(data):
		frame := string(data)
		d.pending = d.pending[:0]
		return frame, true, nil
	default:
		return "", false, nil
	}
}
