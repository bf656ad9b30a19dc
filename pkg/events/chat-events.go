package events

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// Progress events emitted while the workflow is running
	EventTypeStatus         EventType = "status"
	EventTypeSessionCreated EventType = "session_created"
	EventTypeStepComplete   EventType = "step_complete"

	// Tool lifecycle events
	EventTypeToolCallStart    EventType = "tool_call_start"
	EventTypeToolCallComplete EventType = "tool_call_complete"
	EventTypeToolCallError    EventType = "tool_call_error"

	// Response streaming events
	EventTypeResponseStart    EventType = "response_start"
	EventTypeResponseChunk    EventType = "response_chunk"
	EventTypeResponseComplete EventType = "response_complete"

	// Terminal markers
	EventTypeComplete EventType = "complete"
	EventTypeError    EventType = "error"
)

type Event interface {
	Type() EventType
	Payload() []byte
}

// EventImpl is the common header shared by all stream events. Unknown event
// types decode to a bare *EventImpl so that consumers can skip them.
type EventImpl struct {
	Type_     EventType `json:"type"`
	Timestamp float64   `json:"timestamp,omitempty"`

	// raw JSON the event was decoded from (see NewEventFromJSON)
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// SetPayload stores the raw JSON payload on the event implementation.
func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	if e.Timestamp != 0 {
		ev.Float64("timestamp", e.Timestamp)
	}
}

var _ Event = &EventImpl{}

type EventStatus struct {
	EventImpl
	Message string `json:"message"`
}

func NewStatusEvent(message string) *EventStatus {
	return &EventStatus{
		EventImpl: EventImpl{Type_: EventTypeStatus},
		Message:   message,
	}
}

var _ Event = &EventStatus{}

// EventSessionCreated is sent by the chat endpoint when it creates a new
// session because the request did not name one.
type EventSessionCreated struct {
	EventImpl
	SessionID string `json:"session_id"`
}

func NewSessionCreatedEvent(sessionID string) *EventSessionCreated {
	return &EventSessionCreated{
		EventImpl: EventImpl{Type_: EventTypeSessionCreated},
		SessionID: sessionID,
	}
}

var _ Event = &EventSessionCreated{}

type EventStepComplete struct {
	EventImpl
	Step   string          `json:"step"`
	Result json.RawMessage `json:"result,omitempty"`
}

func NewStepCompleteEvent(step string, result json.RawMessage) *EventStepComplete {
	return &EventStepComplete{
		EventImpl: EventImpl{Type_: EventTypeStepComplete},
		Step:      step,
		Result:    result,
	}
}

var _ Event = &EventStepComplete{}

type EventToolCallStart struct {
	EventImpl
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input,omitempty"`
}

func NewToolCallStartEvent(tool string, input json.RawMessage) *EventToolCallStart {
	return &EventToolCallStart{
		EventImpl: EventImpl{Type_: EventTypeToolCallStart},
		Tool:      tool,
		Input:     input,
	}
}

var _ Event = &EventToolCallStart{}

type EventToolCallComplete struct {
	EventImpl
	Tool   string          `json:"tool"`
	Output json.RawMessage `json:"output,omitempty"`
}

func NewToolCallCompleteEvent(tool string, output json.RawMessage) *EventToolCallComplete {
	return &EventToolCallComplete{
		EventImpl: EventImpl{Type_: EventTypeToolCallComplete},
		Tool:      tool,
		Output:    output,
	}
}

var _ Event = &EventToolCallComplete{}

type EventToolCallError struct {
	EventImpl
	Tool  string `json:"tool"`
	Error string `json:"error"`
}

func NewToolCallErrorEvent(tool string, errorString string) *EventToolCallError {
	return &EventToolCallError{
		EventImpl: EventImpl{Type_: EventTypeToolCallError},
		Tool:      tool,
		Error:     errorString,
	}
}

var _ Event = &EventToolCallError{}

type EventResponseStart struct {
	EventImpl
}

func NewResponseStartEvent() *EventResponseStart {
	return &EventResponseStart{
		EventImpl: EventImpl{Type_: EventTypeResponseStart},
	}
}

var _ Event = &EventResponseStart{}

type EventResponseChunk struct {
	EventImpl
	Content    string `json:"content"`
	IsComplete bool   `json:"is_complete,omitempty"`
}

func NewResponseChunkEvent(content string, isComplete bool) *EventResponseChunk {
	return &EventResponseChunk{
		EventImpl:  EventImpl{Type_: EventTypeResponseChunk},
		Content:    content,
		IsComplete: isComplete,
	}
}

var _ Event = &EventResponseChunk{}

// EventResponseComplete carries the authoritative final response text. It
// wins over locally accumulated chunks, which the server may have elided.
type EventResponseComplete struct {
	EventImpl
	FullResponse string                 `json:"full_response"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func NewResponseCompleteEvent(fullResponse string, metadata map[string]interface{}) *EventResponseComplete {
	return &EventResponseComplete{
		EventImpl:    EventImpl{Type_: EventTypeResponseComplete},
		FullResponse: fullResponse,
		Metadata:     metadata,
	}
}

var _ Event = &EventResponseComplete{}

// EventComplete is the terminal marker of the stream. It repeats the final
// response and metadata for convenience but has no message side effect.
type EventComplete struct {
	EventImpl
	SessionID string                 `json:"session_id,omitempty"`
	Response  string                 `json:"response,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func NewCompleteEvent() *EventComplete {
	return &EventComplete{
		EventImpl: EventImpl{Type_: EventTypeComplete},
	}
}

var _ Event = &EventComplete{}

type EventError struct {
	EventImpl
	Message string `json:"message"`
}

func NewErrorEvent(message string) *EventError {
	return &EventError{
		EventImpl: EventImpl{Type_: EventTypeError},
		Message:   message,
	}
}

var _ Event = &EventError{}

// NewEventFromJSON decodes one stream payload into its typed event. Unknown
// event types are returned as the generic *EventImpl rather than an error so
// that future server-side additions do not break the consumer loop.
func NewEventFromJSON(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeStatus:
		return castTypedEvent[EventStatus](e)
	case EventTypeSessionCreated:
		return castTypedEvent[EventSessionCreated](e)
	case EventTypeStepComplete:
		return castTypedEvent[EventStepComplete](e)
	case EventTypeToolCallStart:
		return castTypedEvent[EventToolCallStart](e)
	case EventTypeToolCallComplete:
		return castTypedEvent[EventToolCallComplete](e)
	case EventTypeToolCallError:
		return castTypedEvent[EventToolCallError](e)
	case EventTypeResponseStart:
		return castTypedEvent[EventResponseStart](e)
	case EventTypeResponseChunk:
		return castTypedEvent[EventResponseChunk](e)
	case EventTypeResponseComplete:
		return castTypedEvent[EventResponseComplete](e)
	case EventTypeComplete:
		return castTypedEvent[EventComplete](e)
	case EventTypeError:
		return castTypedEvent[EventError](e)
	}

	return e, nil
}

func castTypedEvent[T any](e *EventImpl) (Event, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok {
		return nil, errCast(e.Type_)
	}
	if setter, ok := any(ret).(interface{ SetPayload([]byte) }); ok {
		setter.SetPayload(e.payload)
	}
	ev, ok := any(ret).(Event)
	if !ok {
		return nil, errCast(e.Type_)
	}
	return ev, nil
}

func errCast(t EventType) error {
	return errors.Errorf("could not cast event of type %s", t)
}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil {
		return nil, false
	}

	return ret, true
}

func (e EventStatus) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("message", e.Message)
}

func (e EventSessionCreated) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("session_id", e.SessionID)
}

func (e EventStepComplete) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("step", e.Step)
}

func (e EventToolCallStart) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("tool", e.Tool).RawJSON("input", nonNilJSON(e.Input))
}

func (e EventToolCallComplete) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("tool", e.Tool).RawJSON("output", nonNilJSON(e.Output))
}

func (e EventToolCallError) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("tool", e.Tool).Str("error", e.Error)
}

func (e EventResponseChunk) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("content", e.Content).Bool("is_complete", e.IsComplete)
}

func (e EventResponseComplete) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("full_response", e.FullResponse)
}

func (e EventError) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("error", e.Message)
}

func nonNilJSON(b json.RawMessage) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}
