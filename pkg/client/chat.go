package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
)

// ChatSession drives a multi-turn streaming conversation against the chat
// endpoint. Each Send appends the user message to the log, opens one turn,
// consumes the event stream strictly in order through the reducer, and ends
// with either a committed assistant message, a committed synthetic error
// message, or a dropped turn if the stream ran dry.
//
// Transport failures never surface as returned errors: the failure is
// committed as a visible error message and the conversation stays usable.
// Send only returns an error when the context is cancelled.
type ChatSession struct {
	client    *Client
	manager   conversation.Manager
	reducer   *chat.StreamReducer
	publisher *events.PublisherManager
	sessionID string
	logger    zerolog.Logger
}

type ChatSessionOption func(*ChatSession)

// WithSessionID resumes an existing server-side session instead of letting
// the first Send create one.
func WithSessionID(sessionID string) ChatSessionOption {
	return func(s *ChatSession) {
		s.sessionID = sessionID
	}
}

func WithManager(manager conversation.Manager) ChatSessionOption {
	return func(s *ChatSession) {
		s.manager = manager
	}
}

// WithPublisher forwards every raw event payload to the publisher manager as
// it is decoded, so routers can render progress while the reducer runs.
func WithPublisher(publisher *events.PublisherManager) ChatSessionOption {
	return func(s *ChatSession) {
		s.publisher = publisher
	}
}

func WithChatLogger(logger zerolog.Logger) ChatSessionOption {
	return func(s *ChatSession) {
		s.logger = logger
	}
}

func NewChatSession(client *Client, options ...ChatSessionOption) *ChatSession {
	ret := &ChatSession{
		client: client,
		logger: log.Logger,
	}
	for _, o := range options {
		o(ret)
	}
	if ret.manager == nil {
		ret.manager = conversation.NewManager()
	}
	ret.reducer = chat.NewStreamReducer(ret.manager, chat.WithReducerLogger(ret.logger))
	return ret
}

func (s *ChatSession) SessionID() string {
	return s.sessionID
}

func (s *ChatSession) Conversation() conversation.Conversation {
	return s.manager.GetConversation()
}

// Turn exposes the live projection of the in-flight turn, nil outside Send.
func (s *ChatSession) Turn() *chat.Turn {
	return s.reducer.Turn()
}

func (s *ChatSession) State() chat.State {
	return s.reducer.State()
}

// Send streams one user message through a full turn and returns the message
// the turn committed, which may be a synthetic error message. A nil message
// with a nil error means the stream ended without a terminal event and the
// turn was dropped.
func (s *ChatSession) Send(ctx context.Context, text string) (*conversation.Message, error) {
	s.manager.AppendMessages(conversation.NewMessage(conversation.RoleUser, text))
	s.reducer.Begin()

	body, err := s.openStream(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Msg("chat request failed")
		s.reducer.Fail(err)
		return s.reducer.LastCommitted(), nil
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(body)

	decoder := events.NewDecoder(body, events.WithDecoderLogger(s.logger))
	for {
		ev, err := decoder.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			if ctx.Err() != nil {
				s.reducer.Finish()
				return nil, ctx.Err()
			}
			s.logger.Warn().Err(err).Msg("stream read failed")
			s.reducer.Fail(err)
			return s.reducer.LastCommitted(), nil
		}

		if s.publisher != nil {
			if err := s.publisher.PublishRaw(ev.Payload()); err != nil {
				s.logger.Warn().Err(err).Msg("failed to publish stream event")
			}
		}
		s.reducer.Apply(ev)

		if turn := s.reducer.Turn(); turn != nil && turn.SessionID != "" {
			s.sessionID = turn.SessionID
		}
	}

	committed := s.reducer.LastCommitted()
	s.reducer.Finish()
	return committed, nil
}

func (s *ChatSession) openStream(ctx context.Context, text string) (io.ReadCloser, error) {
	reqBody, err := json.Marshal(chatRequest{
		Message:   text,
		SessionID: s.sessionID,
		Stream:    true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal chat request")
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.client.endpoint("/api/agent/chat", nil),
		bytes.NewReader(reqBody),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "chat request failed")
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, errors.Errorf("chat returned status %d: %s", resp.StatusCode, firstLine(respBody))
	}
	return resp.Body, nil
}
