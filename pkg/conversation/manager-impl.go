package conversation

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ManagerImpl keeps the log as a flat slice. The service protocol has no
// branching, so there is no tree here; order is strictly append order. All
// writes happen on the stream consumer's goroutine, so no locking.
type ManagerImpl struct {
	ConversationID uuid.UUID

	messages Conversation
	index    map[uuid.UUID]*Message
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

func WithMessages(messages ...*Message) ManagerOption {
	return func(m *ManagerImpl) {
		m.AppendMessages(messages...)
	}
}

func WithManagerConversationID(conversationID uuid.UUID) ManagerOption {
	return func(m *ManagerImpl) {
		m.ConversationID = conversationID
	}
}

func NewManager(options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{
		ConversationID: uuid.Nil,
		index:          make(map[uuid.UUID]*Message),
	}
	for _, option := range options {
		option(ret)
	}

	if ret.ConversationID == uuid.Nil {
		ret.ConversationID = uuid.New()
	}

	return ret
}

// GetConversation returns a copy of the log so callers cannot reorder or
// truncate it behind the manager's back.
func (c *ManagerImpl) GetConversation() Conversation {
	ret := make(Conversation, len(c.messages))
	copy(ret, c.messages)
	return ret
}

func (c *ManagerImpl) GetMessage(ID uuid.UUID) (*Message, bool) {
	msg, ok := c.index[ID]
	return msg, ok
}

func (c *ManagerImpl) AppendMessages(messages ...*Message) {
	for _, msg := range messages {
		if _, exists := c.index[msg.ID]; exists {
			log.Warn().
				Str("message_id", msg.ID.String()).
				Str("role", string(msg.Role)).
				Msg("duplicate message id on append, skipping")
			continue
		}
		c.messages = append(c.messages, msg)
		c.index[msg.ID] = msg

		log.Trace().
			Str("message_id", msg.ID.String()).
			Str("role", string(msg.Role)).
			Int("log_size", len(c.messages)).
			Msg("appended message")
	}
}

// SaveToFile persists the current log to a JSON file.
func (c *ManagerImpl) SaveToFile(s string) error {
	msgs := c.GetConversation()
	f, err := os.Create(s)
	if err != nil {
		return err
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(msgs)
	if err != nil {
		return err
	}

	return nil
}
