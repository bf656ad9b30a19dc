package events

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, r io.Reader) []Event {
	t.Helper()
	d := NewDecoder(r)
	events := []Event{}
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestDecoderBasicStream(t *testing.T) {
	body := "data: {\"type\": \"status\", \"message\": \"thinking\"}\n" +
		"data: {\"type\": \"response_chunk\", \"content\": \"Hi\"}\n" +
		"data: {\"type\": \"complete\"}\n"

	events := collectEvents(t, strings.NewReader(body))
	require.Len(t, events, 3)
	assert.Equal(t, EventTypeStatus, events[0].Type())
	assert.Equal(t, EventTypeResponseChunk, events[1].Type())
	assert.Equal(t, EventTypeComplete, events[2].Type())
}

// The transport may split a logical line across reads; the decoder must see
// whole lines regardless of how the reader chunks them.
type chunkedReader struct {
	chunks []string
	pos    int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.pos])
	r.pos++
	return n, nil
}

func TestDecoderLineSpansChunks(t *testing.T) {
	r := &chunkedReader{chunks: []string{
		"data: {\"type\": \"response_chu",
		"nk\", \"content\": \"Hel",
		"lo\"}\ndata: {\"type\": \"complete\"}\n",
	}}

	events := collectEvents(t, r)
	require.Len(t, events, 2)

	chunk, ok := events[0].(*EventResponseChunk)
	require.True(t, ok)
	assert.Equal(t, "Hello", chunk.Content)
}

func TestDecoderSkipsNonDataLines(t *testing.T) {
	body := ": keepalive comment\n" +
		"\n" +
		"event: message\n" +
		"data: {\"type\": \"status\", \"message\": \"ok\"}\n"

	events := collectEvents(t, strings.NewReader(body))
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeStatus, events[0].Type())
}

func TestDecoderDropsMalformedPayloads(t *testing.T) {
	body := "data: {not json}\n" +
		"data: {\"type\": \"status\", \"message\": \"still alive\"}\n"

	events := collectEvents(t, strings.NewReader(body))
	require.Len(t, events, 1, "a bad line must not abort the stream")
	assert.Equal(t, EventTypeStatus, events[0].Type())
}

func TestDecoderHandlesCRLF(t *testing.T) {
	body := "data: {\"type\": \"status\", \"message\": \"ok\"}\r\n"

	events := collectEvents(t, strings.NewReader(body))
	require.Len(t, events, 1)
}

func TestDecoderFinalLineWithoutNewline(t *testing.T) {
	body := "data: {\"type\": \"status\", \"message\": \"first\"}\n" +
		"data: {\"type\": \"complete\"}"

	events := collectEvents(t, strings.NewReader(body))
	require.Len(t, events, 2, "the unterminated final line is still decoded")
	assert.Equal(t, EventTypeComplete, events[1].Type())
}

func TestDecoderEmptyBody(t *testing.T) {
	events := collectEvents(t, strings.NewReader(""))
	assert.Empty(t, events)
}
