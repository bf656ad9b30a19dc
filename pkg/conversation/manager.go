package conversation

import "github.com/google/uuid"

// Manager is the append-only message log for one session. Messages are never
// mutated or removed once appended.
type Manager interface {
	GetConversation() Conversation
	GetMessage(ID uuid.UUID) (*Message, bool)
	AppendMessages(messages ...*Message)
}
