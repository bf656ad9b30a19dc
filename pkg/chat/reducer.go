package chat

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
)

type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateFinalized State = "finalized"
	StateFailed    State = "failed"
)

const generatingResponseStatus = "Generating response..."

// StreamReducer consumes decoded stream events strictly in arrival order and
// mutates a single in-progress turn: status line, accumulated response text,
// and the live tool-call list. On response_complete it commits an immutable
// message through the committer; on an error event it commits a synthetic
// error message and keeps consuming whatever remains of the stream.
//
// All mutation happens on the goroutine driving Apply; there is exactly one
// turn open per reducer at a time.
type StreamReducer struct {
	state     State
	turn      *Turn
	committer *Committer
	logger    zerolog.Logger

	lastCommitted *conversation.Message
}

type ReducerOption func(*StreamReducer)

func WithReducerLogger(logger zerolog.Logger) ReducerOption {
	return func(r *StreamReducer) {
		r.logger = logger
	}
}

func NewStreamReducer(manager conversation.Manager, options ...ReducerOption) *StreamReducer {
	ret := &StreamReducer{
		state:     StateIdle,
		committer: NewCommitter(manager),
		logger:    log.Logger,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Begin opens a fresh turn. It must be called once per request, before the
// first Apply. Calling it while a turn is streaming is a caller bug.
func (r *StreamReducer) Begin() {
	r.turn = NewTurn()
	r.state = StateStreaming
	r.lastCommitted = nil
}

func (r *StreamReducer) State() State {
	return r.state
}

// Turn exposes the live in-progress projection for display. The registry
// snapshot is a copy; the returned struct must not be written to.
func (r *StreamReducer) Turn() *Turn {
	return r.turn
}

// LastCommitted returns the message committed by the current turn, if any.
func (r *StreamReducer) LastCommitted() *conversation.Message {
	return r.lastCommitted
}

// Apply feeds one event through the state machine. Unrecognized events are
// ignored; nothing here returns an error to the caller, failures degrade to a
// visible message or a dropped event.
func (r *StreamReducer) Apply(e events.Event) {
	if r.turn == nil {
		r.logger.Warn().Str("event_type", string(e.Type())).Msg("event applied before Begin, dropping")
		return
	}

	switch ev := e.(type) {
	case *events.EventStatus:
		r.turn.Status = ev.Message

	case *events.EventSessionCreated:
		r.turn.SessionID = ev.SessionID

	case *events.EventStepComplete:
		r.turn.Status = fmt.Sprintf("%s completed", ev.Step)

	case *events.EventToolCallStart:
		r.turn.ToolCalls.Start(ev.Tool, ev.Input)

	case *events.EventToolCallComplete:
		r.turn.ToolCalls.Complete(ev.Tool, ev.Output)

	case *events.EventToolCallError:
		r.turn.ToolCalls.Fail(ev.Tool, ev.Error)

	case *events.EventResponseStart:
		r.turn.Status = generatingResponseStatus

	case *events.EventResponseChunk:
		// deltas are positional, never reordered or coalesced
		r.turn.AccumulatedText += ev.Content

	case *events.EventResponseComplete:
		// the server-supplied full response is authoritative; locally
		// accumulated chunks may diverge and lose
		r.lastCommitted = r.committer.CommitAssistant(
			ev.FullResponse,
			r.turn.ToolCalls.Snapshot(),
			ev.Metadata,
		)
		r.turn.AccumulatedText = ""
		r.turn.Final = true
		r.state = StateFinalized

	case *events.EventComplete:
		r.turn.Status = ""
		r.turn.AccumulatedText = ""
		r.turn.ToolCalls.Reset()

	case *events.EventError:
		r.lastCommitted = r.committer.CommitError(ev.Message)
		r.state = StateFailed

	default:
		r.logger.Debug().Str("event_type", string(e.Type())).Msg("ignoring unrecognized stream event")
	}
}

// Fail records a transport-level failure (request error, non-success status)
// as a single synthetic error message. No retry is attempted.
func (r *StreamReducer) Fail(err error) {
	r.lastCommitted = r.committer.CommitError(fmt.Sprintf("Chat failed: %s", err.Error()))
	r.state = StateFailed
	r.turn = nil
}

// Finish marks the end of the stream. If the stream was exhausted before any
// terminal event, the turn is simply dropped; the protocol is best-effort,
// not transactional.
func (r *StreamReducer) Finish() {
	if r.state == StateStreaming {
		r.logger.Debug().Msg("stream exhausted without terminal event, dropping turn")
		r.state = StateIdle
	}
	r.turn = nil
}
