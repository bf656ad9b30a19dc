package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventFromJSONTypedEvents(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, ev Event)
	}{
		{
			name:    "status",
			payload: `{"type": "status", "message": "Initializing agent..."}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventStatus)
				require.True(t, ok)
				assert.Equal(t, "Initializing agent...", e.Message)
			},
		},
		{
			name:    "session created",
			payload: `{"type": "session_created", "session_id": "abc-123"}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventSessionCreated)
				require.True(t, ok)
				assert.Equal(t, "abc-123", e.SessionID)
			},
		},
		{
			name:    "step complete",
			payload: `{"type": "step_complete", "step": "plan", "result": {"steps": 3}}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventStepComplete)
				require.True(t, ok)
				assert.Equal(t, "plan", e.Step)
				assert.JSONEq(t, `{"steps": 3}`, string(e.Result))
			},
		},
		{
			name:    "tool call start",
			payload: `{"type": "tool_call_start", "tool": "search", "input": {"query": "weather"}}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventToolCallStart)
				require.True(t, ok)
				assert.Equal(t, "search", e.Tool)
				assert.JSONEq(t, `{"query": "weather"}`, string(e.Input))
			},
		},
		{
			name:    "tool call complete",
			payload: `{"type": "tool_call_complete", "tool": "search", "output": "sunny"}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventToolCallComplete)
				require.True(t, ok)
				assert.Equal(t, "search", e.Tool)
				assert.Equal(t, `"sunny"`, string(e.Output))
			},
		},
		{
			name:    "tool call error",
			payload: `{"type": "tool_call_error", "tool": "search", "error": "timeout"}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventToolCallError)
				require.True(t, ok)
				assert.Equal(t, "timeout", e.Error)
			},
		},
		{
			name:    "response start",
			payload: `{"type": "response_start"}`,
			check: func(t *testing.T, ev Event) {
				_, ok := ev.(*EventResponseStart)
				require.True(t, ok)
			},
		},
		{
			name:    "response chunk",
			payload: `{"type": "response_chunk", "content": "Hello", "is_complete": false}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventResponseChunk)
				require.True(t, ok)
				assert.Equal(t, "Hello", e.Content)
				assert.False(t, e.IsComplete)
			},
		},
		{
			name:    "response complete",
			payload: `{"type": "response_complete", "full_response": "Hello world", "metadata": {"model": "gpt-4"}}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventResponseComplete)
				require.True(t, ok)
				assert.Equal(t, "Hello world", e.FullResponse)
				assert.Equal(t, "gpt-4", e.Metadata["model"])
			},
		},
		{
			name:    "complete",
			payload: `{"type": "complete", "session_id": "abc-123", "response": "Hello world"}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventComplete)
				require.True(t, ok)
				assert.Equal(t, "abc-123", e.SessionID)
			},
		},
		{
			name:    "error",
			payload: `{"type": "error", "message": "workflow crashed"}`,
			check: func(t *testing.T, ev Event) {
				e, ok := ev.(*EventError)
				require.True(t, ok)
				assert.Equal(t, "workflow crashed", e.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewEventFromJSON([]byte(tt.payload))
			require.NoError(t, err)
			tt.check(t, ev)
			assert.Equal(t, tt.payload, string(ev.Payload()))
		})
	}
}

func TestNewEventFromJSONUnknownType(t *testing.T) {
	ev, err := NewEventFromJSON([]byte(`{"type": "heartbeat", "ts": 12}`))
	require.NoError(t, err)

	impl, ok := ev.(*EventImpl)
	require.True(t, ok, "unknown types decode to the generic event")
	assert.Equal(t, EventType("heartbeat"), impl.Type())
}

func TestNewEventFromJSONMalformed(t *testing.T) {
	_, err := NewEventFromJSON([]byte(`{"type": "status"`))
	require.Error(t, err)
}

func TestToTypedEvent(t *testing.T) {
	ev, err := NewEventFromJSON([]byte(`{"type": "response_chunk", "content": "hi"}`))
	require.NoError(t, err)

	chunk, ok := ToTypedEvent[EventResponseChunk](ev)
	require.True(t, ok)
	assert.Equal(t, "hi", chunk.Content)
}

func TestEventConstructorsRoundTrip(t *testing.T) {
	e := NewResponseCompleteEvent("done", map[string]interface{}{"steps": 2.0})
	b, err := json.Marshal(e)
	require.NoError(t, err)

	decoded := &EventResponseComplete{}
	require.NoError(t, json.Unmarshal(b, decoded))
	assert.Equal(t, "done", decoded.FullResponse)
	assert.Equal(t, EventTypeResponseComplete, decoded.Type())
}
