package sse_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/ssyqq/dream/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, d *sse.Decoder, chunks ...string) []string {
	t.Helper()
	var frames []string
	for _, c := range chunks {
		got, err := d.Feed([]byte(c))
		require.NoError(t, err)
		frames = append(frames, got...)
	}
	got, err := d.Flush()
	require.NoError(t, err)
	return append(frames, got...)
}

func TestDecoder_SingleChunk(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()
	frames := feedAll(t, d,
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"+
			"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"+
			"data: [DONE]\n\n",
	)
	assert.Equal(t, []string{
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		sse.Done,
	}, frames)
}

func TestDecoder_FrameSplitAcrossChunks(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()

	frames, err := d.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]"))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"choices":[{"delta":{"content":"A"}}]}`}, frames)

	frames, err = d.Feed([]byte("}\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"choices":[{"delta":{"content":"B"}}]}`}, frames)
}

func TestDecoder_JSONSplitAcrossLines(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()
	frames := feedAll(t, d, "data: {\"a\":\n\"b\"}\n\n")
	assert.Equal(t, []string{`{"a":"b"}`}, frames)
}

func TestDecoder_NoiseBeforeMarker(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()
	frames := feedAll(t, d,
		": OPENROUTER PROCESSING\n\n",
		"event: message\n",
		"data: {\"x\":1}\n\n",
		"garbage data: {\"x\":2}\n",
	)
	assert.Equal(t, []string{`{"x":1}`, `{"x":2}`}, frames)
}

func TestDecoder_CRLF(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()
	frames := feedAll(t, d, "data: {\"x\":1}\r\n\r\ndata: [DONE]\r\n\r\n")
	assert.Equal(t, []string{`{"x":1}`, sse.Done}, frames)
}

func TestDecoder_EmptyDataLineIgnored(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()
	frames := feedAll(t, d, "data: \n\ndata: {\"x\":1}\n\n")
	assert.Equal(t, []string{`{"x":1}`}, frames)
}

func TestDecoder_UnterminatedLastLine(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()

	frames, err := d.Feed([]byte("data: [DONE]"))
	require.NoError(t, err)
	assert.Empty(t, frames, "a line is not complete until its newline or Flush")

	frames, err = d.Flush()
	require.NoError(t, err)
	assert.Equal(t, []string{sse.Done}, frames)
}

func TestDecoder_MultiByteRuneSplitAcrossChunks(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()
	payload := "data: {\"content\":\"你好\"}\n"
	cut := strings.Index(payload, "你") + 1
	frames := feedAll(t, d, payload[:cut], payload[cut:])
	assert.Equal(t, []string{`{"content":"你好"}`}, frames)
}

func TestDecoder_InvalidUTF8(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()

	_, err := d.Feed([]byte("data: {\"x\":\"\xff\"}\n"))
	assert.ErrorIs(t, err, sse.ErrInvalidUTF8)

	_, err = d.Feed([]byte("data: {\"x\":1}\n"))
	assert.ErrorIs(t, err, sse.ErrInvalidUTF8, "decoder stays failed")
}

func TestDecoder_FrameTooLarge(t *testing.T) {
	t.Parallel()

	t.Run("incomplete json keeps growing", func(t *testing.T) {
		t.Parallel()
		d := sse.NewDecoder(sse.WithMaxFrameSize(64))
		_, err := d.Feed([]byte("data: {\"x\":\n"))
		require.NoError(t, err)
		for i := 0; i < 10 && err == nil; i++ {
			_, err = d.Feed([]byte("\"aaaaaaaaaa\",\n"))
		}
		assert.ErrorIs(t, err, sse.ErrFrameTooLarge)
	})

	t.Run("unterminated line", func(t *testing.T) {
		t.Parallel()
		d := sse.NewDecoder(sse.WithMaxFrameSize(16))
		_, err := d.Feed([]byte(strings.Repeat("a", 17)))
		assert.ErrorIs(t, err, sse.ErrFrameTooLarge)
	})

	t.Run("frames below the limit pass", func(t *testing.T) {
		t.Parallel()
		d := sse.NewDecoder(sse.WithMaxFrameSize(16))
		frames := feedAll(t, d, "data: {\"x\":1}\n", "data: {\"x\":2}\n")
		assert.Len(t, frames, 2)
	})
}

func TestDecoder_FlushIncompleteFrame(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()
	_, err := d.Feed([]byte("data: {\"choices\":[\n"))
	require.NoError(t, err)
	_, err = d.Flush()
	assert.ErrorIs(t, err, sse.ErrIncompleteFrame)
}

func TestDecoder_FlushNoiseOnly(t *testing.T) {
	t.Parallel()
	d := sse.NewDecoder()
	frames := feedAll(t, d, ": keep-alive\n", ": keep-alive")
	assert.Empty(t, frames)
}

// Any partition of a stream yields the same frames as the whole stream.
func TestDecoder_PartitionInvariance(t *testing.T) {
	t.Parallel()

	stream := ": OPENROUTER PROCESSING\r\n\r\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\r\n\r\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo, 世界\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":\n{\"content\":\"!\"}}]}\n\n" +
		"data: [DONE]\n\n"

	want := feedAll(t, sse.NewDecoder(), stream)
	require.Len(t, want, 4)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		var chunks []string
		rest := stream
		for len(rest) > 0 {
			n := 1 + rng.Intn(12)
			if n > len(rest) {
				n = len(rest)
			}
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		assert.Equal(t, want, feedAll(t, sse.NewDecoder(), chunks...), "partition %d: %q", i, chunks)
	}

	var bytewise []string
	for i := 0; i < len(stream); i++ {
		bytewise = append(bytewise, stream[i:i+1])
	}
	assert.Equal(t, want, feedAll(t, sse.NewDecoder(), bytewise...))
}
