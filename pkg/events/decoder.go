package events

import (
	"bufio"
	"bytes"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var dataPrefix = []byte("data: ")

// Decoder turns the chat endpoint's streaming response body into a sequence
// of typed events. The body is a series of lines, each either blank or of the
// form "data: <json>"; a logical line may span several transport chunks, so
// reads go through a bufio.Reader that buffers the trailing partial line.
//
// Lines without the data prefix are skipped. Payloads that fail to decode are
// logged and dropped; a bad line never aborts the stream.
type Decoder struct {
	reader     *bufio.Reader
	logger     zerolog.Logger
	eventCount int
}

type DecoderOption func(*Decoder)

func WithDecoderLogger(logger zerolog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

func NewDecoder(r io.Reader, options ...DecoderOption) *Decoder {
	ret := &Decoder{
		reader: bufio.NewReader(r),
		logger: log.Logger,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Next returns the next event in the stream, or io.EOF once the body is
// exhausted. A final line without a trailing newline is still decoded before
// EOF is reported.
func (d *Decoder) Next() (Event, error) {
	for {
		line, err := d.reader.ReadBytes('\n')
		if len(line) > 0 {
			if ev := d.decodeLine(line); ev != nil {
				return ev, nil
			}
		}
		if err != nil {
			if err == io.EOF {
				d.logger.Debug().Int("total_events", d.eventCount).Msg("stream decoder finished")
				return nil, io.EOF
			}
			return nil, err
		}
	}
}

func (d *Decoder) decodeLine(line []byte) Event {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return nil
	}
	if !bytes.HasPrefix(line, dataPrefix) {
		d.logger.Trace().Str("line", string(line)).Msg("skipping non-data stream line")
		return nil
	}

	payload := line[len(dataPrefix):]
	ev, err := NewEventFromJSON(payload)
	if err != nil {
		d.logger.Debug().Err(err).Str("payload", string(payload)).Msg("dropping malformed stream event")
		return nil
	}

	d.eventCount++
	d.logger.Trace().
		Str("event_type", string(ev.Type())).
		Int("event_number", d.eventCount).
		Msg("decoded stream event")
	return ev
}
