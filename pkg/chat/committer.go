package chat

import (
	"github.com/go-go-golems/parley/pkg/conversation"
)

// Committer turns a finished turn into an immutable message and appends it to
// the conversation log. It is the only way reducer state reaches the log.
type Committer struct {
	manager conversation.Manager
}

func NewCommitter(manager conversation.Manager) *Committer {
	return &Committer{manager: manager}
}

func (c *Committer) CommitAssistant(
	text string,
	toolCalls []conversation.ToolCallState,
	metadata map[string]interface{},
) *conversation.Message {
	msg := conversation.NewMessage(
		conversation.RoleAssistant,
		text,
		conversation.WithToolCalls(toolCalls),
		conversation.WithMetadata(metadata),
	)
	c.manager.AppendMessages(msg)
	return msg
}

// CommitError appends a synthetic assistant message carrying an error text.
// The conversation continues; nothing is raised to the caller.
func (c *Committer) CommitError(errorString string) *conversation.Message {
	msg := conversation.NewMessage(
		conversation.RoleAssistant,
		errorString,
		conversation.WithMetadata(map[string]interface{}{
			"error": true,
		}),
	)
	c.manager.AppendMessages(msg)
	return msg
}
