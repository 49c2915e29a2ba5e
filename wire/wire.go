// Package wire encodes stream events as tagged strings for consumers on the
// other side of a process boundary.
//
// A plain string is a content snapshot. Out-of-band signals start with a
// reserved "__TAG__" prefix. Content that itself starts with "__" is escaped
// with the text tag so it can never be mistaken for a signal.
package wire

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ssyqq/dream"
)

// Reserved tags.
const (
	TagDone  = "__STREAM_DONE__"
	TagError = "__ERROR__:"
	TagRetry = "__RETRY__:"
	TagTitle = "__TITLE_UPDATE__"
	TagText  = "__TEXT__:"
)

// ErrUnknownTag is returned when decoding a reserved prefix this package
// does not know.
var ErrUnknownTag = errors.New("wire: unknown tag")

// Encode returns the tagged string form of e.
func Encode(e dream.Event) string {
	switch e := e.(type) {
	case dream.EventContent:
		if strings.HasPrefix(e.Text, "__") {
			return TagText + e.Text
		}
		return e.Text
	case dream.EventRetry:
		return fmt.Sprintf("%s%d:%d:%s", TagRetry, e.Attempt, e.Max, errText(e.Err))
	case dream.EventError:
		return TagError + errText(e.Err)
	case dream.EventTitle:
		return TagTitle + e.ChatID + ":" + e.Title
	case dream.EventDone:
		return TagDone
	default:
		return ""
	}
}

// Decode parses a tagged string. Errors are restored as plain errors
// carrying the original message.
func Decode(s string) (dream.Event, error) {
	switch {
	case s == TagDone:
		return dream.EventDone{}, nil
	case strings.HasPrefix(s, TagText):
		return dream.EventContent{Text: strings.TrimPrefix(s, TagText)}, nil
	case strings.HasPrefix(s, TagError):
		return dream.EventError{Err: errors.New(strings.TrimPrefix(s, TagError))}, nil
	case strings.HasPrefix(s, TagRetry):
		parts := strings.SplitN(strings.TrimPrefix(s, TagRetry), ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("wire: malformed retry %q", s)
		}
		attempt, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("wire: malformed retry attempt: %w", err)
		}
		maxRetries, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("wire: malformed retry max: %w", err)
		}
		return dream.EventRetry{Attempt: attempt, Max: maxRetries, Err: errors.New(parts[2])}, nil
	case strings.HasPrefix(s, TagTitle):
		id, title, ok := strings.Cut(strings.TrimPrefix(s, TagTitle), ":")
		if !ok {
			return nil, fmt.Errorf("wire: malformed title update %q", s)
		}
		return dream.EventTitle{ChatID: id, Title: title}, nil
	case strings.HasPrefix(s, "__"):
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, s)
	default:
		return dream.EventContent{Text: s}, nil
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Encoder writes one tagged message per line. Each message is written as a
// JSON string so snapshots containing newlines stay on one line.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes e.
func (enc *Encoder) Encode(e dream.Event) error {
	b, err := json.Marshal(Encode(e))
	if err != nil {
		return fmt.Errorf("wire: %w", err)
	}
	b = append(b, '\n')
	if _, err := enc.w.Write(b); err != nil {
		return fmt.Errorf("wire: %w", err)
	}
	return nil
}

// Decoder reads messages written by an Encoder.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64<<10), 16<<20)
	return &Decoder{scanner: s}
}

// Decode returns the next event, or io.EOF at the end of input.
func (dec *Decoder) Decode() (dream.Event, error) {
	for dec.scanner.Scan() {
		line := dec.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("wire: %w", err)
		}
		return Decode(s)
	}
	if err := dec.scanner.Err(); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return nil, io.EOF
}
