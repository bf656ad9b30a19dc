package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

type ToolCallStatus string

const (
	ToolCallStatusRunning   ToolCallStatus = "running"
	ToolCallStatusCompleted ToolCallStatus = "completed"
	ToolCallStatusError     ToolCallStatus = "error"
)

// ToolCallState tracks one tool invocation announced by the stream. The tool
// name acts as its identity within a turn; the wire format carries no
// server-side call ID, so two concurrent calls of the same tool cannot be
// told apart.
type ToolCallState struct {
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
	Status ToolCallStatus  `json:"status"`
}

// Message is a single entry in the conversation log. It is immutable once
// created; the tool-call list is a snapshot taken at commit time.
type Message struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
	Time time.Time `json:"time"`

	Content   string                 `json:"content"`
	ToolCalls []ToolCallState        `json:"toolCalls,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type MessageOption func(*Message)

func WithMetadata(metadata map[string]interface{}) MessageOption {
	return func(message *Message) {
		message.Metadata = metadata
	}
}

func WithTime(time_ time.Time) MessageOption {
	return func(message *Message) {
		message.Time = time_
	}
}

func WithID(id uuid.UUID) MessageOption {
	return func(message *Message) {
		message.ID = id
	}
}

func WithToolCalls(toolCalls []ToolCallState) MessageOption {
	return func(message *Message) {
		message.ToolCalls = toolCalls
	}
}

func NewMessage(role Role, content string, options ...MessageOption) *Message {
	ret := &Message{
		ID:      uuid.New(),
		Role:    role,
		Content: content,
		Time:    time.Now(),
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (m *Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
}

type Conversation []*Message

// GetSinglePrompt concatenates all the messages together with a role prefix
// in front of each one.
func (messages Conversation) GetSinglePrompt() string {
	if len(messages) == 0 {
		return ""
	}

	if len(messages) == 1 {
		return messages[0].Content
	}

	prompt := ""
	for _, message := range messages {
		prompt += fmt.Sprintf("[%s]: %s\n", message.Role, message.Content)
	}

	return prompt
}
