package chat

import (
	"encoding/json"

	"github.com/go-go-golems/parley/pkg/conversation"
)

// ToolCallRegistry tracks the lifecycle of tool invocations announced by the
// stream, keyed by tool name. Lookup is a linear scan over the turn's
// entries; Complete and Fail on an unknown name are no-ops, matching the
// best-effort semantics of the protocol.
type ToolCallRegistry struct {
	entries []conversation.ToolCallState
}

func NewToolCallRegistry() *ToolCallRegistry {
	return &ToolCallRegistry{
		entries: make([]conversation.ToolCallState, 0, 4),
	}
}

func (r *ToolCallRegistry) Start(name string, input json.RawMessage) {
	r.entries = append(r.entries, conversation.ToolCallState{
		Name:   name,
		Input:  input,
		Status: conversation.ToolCallStatusRunning,
	})
}

func (r *ToolCallRegistry) Complete(name string, output json.RawMessage) {
	if e := r.find(name); e != nil {
		e.Status = conversation.ToolCallStatusCompleted
		e.Output = output
	}
}

func (r *ToolCallRegistry) Fail(name string, errorString string) {
	if e := r.find(name); e != nil {
		e.Status = conversation.ToolCallStatusError
		e.Error = errorString
	}
}

// Snapshot returns a copy of the current entries in start order, safe to
// hand to display code or embed in a committed message.
func (r *ToolCallRegistry) Snapshot() []conversation.ToolCallState {
	if len(r.entries) == 0 {
		return nil
	}
	out := make([]conversation.ToolCallState, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *ToolCallRegistry) Len() int {
	return len(r.entries)
}

func (r *ToolCallRegistry) Reset() {
	r.entries = r.entries[:0]
}

func (r *ToolCallRegistry) find(name string) *conversation.ToolCallState {
	for i := range r.entries {
		if r.entries[i].Name == name {
			return &r.entries[i]
		}
	}
	return nil
}

// Turn is the mutable state of one in-flight exchange with the agent. It is
// owned by a single StreamReducer for the duration of one request and
// discarded after commit or failure.
type Turn struct {
	Status          string
	AccumulatedText string
	ToolCalls       *ToolCallRegistry
	Final           bool

	// set when the server creates a session for this turn
	SessionID string
}

func NewTurn() *Turn {
	return &Turn{
		ToolCalls: NewToolCallRegistry(),
	}
}
