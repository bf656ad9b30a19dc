package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parley/pkg/contextstore"
)

// Client talks to the agent service's request/response endpoints: sessions,
// message history, and context storage. Streaming chat lives in ChatSession.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     zerolog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	ret := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log.Logger,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Session is the summary entry returned by the session list endpoint.
type Session struct {
	SessionID string                 `json:"session_id"`
	CreatedAt string                 `json:"created_at,omitempty"`
	UpdatedAt string                 `json:"updated_at,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SessionList struct {
	Status     string    `json:"status"`
	Sessions   []Session `json:"sessions"`
	TotalCount int       `json:"total_count"`
}

type CreateSessionResult struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}

// HistoryMessage is one stored message as returned by the history endpoint.
type HistoryMessage struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Timestamp string                 `json:"timestamp,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type MessageHistory struct {
	Status       string           `json:"status"`
	SessionID    string           `json:"session_id"`
	Messages     []HistoryMessage `json:"messages"`
	MessageCount int              `json:"message_count"`
}

// ChatResponse is the non-streaming chat result.
type ChatResponse struct {
	Status     string `json:"status"`
	SessionID  string `json:"session_id,omitempty"`
	Response   string `json:"response,omitempty"`
	NewSession bool   `json:"new_session,omitempty"`
	Message    string `json:"message,omitempty"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (c *Client) CreateSession(ctx context.Context, initialMessage string, contextData map[string]interface{}) (*CreateSessionResult, error) {
	body := map[string]interface{}{}
	if initialMessage != "" {
		body["initial_message"] = initialMessage
	}
	if contextData != nil {
		body["context"] = contextData
	}

	var ret CreateSessionResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent", nil, body, &ret); err != nil {
		return nil, err
	}
	if ret.Status != "success" {
		return nil, errors.Errorf("failed to create session: %s", ret.Message)
	}
	return &ret, nil
}

func (c *Client) ListSessions(ctx context.Context) (*SessionList, error) {
	var ret SessionList
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/sessions", nil, nil, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	q := url.Values{"session_id": {sessionID}}
	var ret statusResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/agent/sessions", q, nil, &ret); err != nil {
		return err
	}
	if ret.Status != "success" {
		return errors.Errorf("failed to delete session: %s", ret.Message)
	}
	return nil
}

func (c *Client) GetMessages(ctx context.Context, sessionID string) (*MessageHistory, error) {
	q := url.Values{"session_id": {sessionID}}
	var ret MessageHistory
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/chat", q, nil, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// SendMessage sends a chat message without streaming and returns the full
// response in one shot.
func (c *Client) SendMessage(ctx context.Context, sessionID string, message string) (*ChatResponse, error) {
	var ret ChatResponse
	body := chatRequest{Message: message, SessionID: sessionID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent/chat", nil, body, &ret); err != nil {
		return nil, err
	}
	if ret.Status != "success" {
		return nil, errors.Errorf("chat failed: %s", ret.Message)
	}
	return &ret, nil
}

// contextResponse carries either shape the context endpoint may return: the
// fragment list, or the flattened legacy mapping. Normalization into the
// canonical snapshot happens right here at the boundary.
type contextResponse struct {
	Status    string          `json:"status"`
	SessionID string          `json:"session_id"`
	Context   json.RawMessage `json:"context"`
	Message   string          `json:"message,omitempty"`
}

// GetContext fetches the session's raw fragment collection and normalizes it
// into a contextstore.Snapshot.
func (c *Client) GetContext(ctx context.Context, sessionID string) (contextstore.Snapshot, error) {
	q := url.Values{"session_id": {sessionID}}
	var ret contextResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/context", q, nil, &ret); err != nil {
		return contextstore.Snapshot{}, err
	}
	if len(ret.Context) == 0 {
		return contextstore.SnapshotFromFragments(nil), nil
	}

	var fragments []contextstore.Fragment
	if err := json.Unmarshal(ret.Context, &fragments); err == nil {
		return contextstore.SnapshotFromFragments(fragments), nil
	}

	var legacy map[string]interface{}
	if err := json.Unmarshal(ret.Context, &legacy); err != nil {
		return contextstore.Snapshot{}, errors.Wrap(err, "unrecognized context shape")
	}
	return contextstore.SnapshotFromLegacyMap(legacy), nil
}

// GetFile fetches the reconstructed content of one uploaded file by id.
type FileData struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	FileID    string `json:"file_id"`
	FileData  string `json:"file_data"`
	Message   string `json:"message,omitempty"`
}

func (c *Client) GetFile(ctx context.Context, sessionID string, fileID string) (*FileData, error) {
	q := url.Values{"session_id": {sessionID}, "file_id": {fileID}}
	var ret FileData
	if err := c.doJSON(ctx, http.MethodGet, "/api/agent/context", q, nil, &ret); err != nil {
		return nil, err
	}
	if ret.Status != "success" {
		return nil, errors.Errorf("failed to get file: %s", ret.Message)
	}
	return &ret, nil
}

// AddContext appends new context entries; keys that already exist are
// rejected by the server, use UpdateContext for those.
func (c *Client) AddContext(ctx context.Context, sessionID string, contextData map[string]interface{}) error {
	q := url.Values{"session_id": {sessionID}}
	body := map[string]interface{}{"context": contextData}
	var ret statusResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/agent/context", q, body, &ret); err != nil {
		return err
	}
	if ret.Status != "success" {
		return errors.Errorf("failed to add context: %s", ret.Message)
	}
	return nil
}

func (c *Client) UpdateContext(ctx context.Context, sessionID string, key string, value interface{}) error {
	q := url.Values{"session_id": {sessionID}}
	body := map[string]interface{}{"key": key, "value": value}
	var ret statusResponse
	if err := c.doJSON(ctx, http.MethodPut, "/api/agent/context", q, body, &ret); err != nil {
		return err
	}
	if ret.Status != "success" {
		return errors.Errorf("failed to update context: %s", ret.Message)
	}
	return nil
}

func (c *Client) RemoveContext(ctx context.Context, sessionID string, key string) error {
	q := url.Values{"session_id": {sessionID}}
	body := map[string]interface{}{"key": key}
	var ret statusResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/agent/context", q, body, &ret); err != nil {
		return err
	}
	if ret.Status != "success" {
		return errors.Errorf("failed to remove context: %s", ret.Message)
	}
	return nil
}

func (c *Client) DeleteFile(ctx context.Context, sessionID string, fileID string) error {
	q := url.Values{"session_id": {sessionID}, "file_id": {fileID}}
	var ret statusResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/agent/context", q, nil, &ret); err != nil {
		return err
	}
	if ret.Status != "success" {
		return errors.Errorf("failed to delete file: %s", ret.Message)
	}
	return nil
}

// UploadResult is the server's answer to a file upload or replacement.
type UploadResult struct {
	Status    string   `json:"status"`
	SessionID string   `json:"session_id"`
	FileID    string   `json:"file_id"`
	Filename  string   `json:"filename"`
	FileType  string   `json:"file_type"`
	FileSize  int      `json:"file_size"`
	Tags      []string `json:"tags,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// UploadFile uploads a new file into the session context as multipart form
// data. Tags are joined comma-separated, matching the server's form parsing.
func (c *Client) UploadFile(ctx context.Context, sessionID string, filename string, content io.Reader, description string, tags []string) (*UploadResult, error) {
	return c.sendFile(ctx, http.MethodPost, sessionID, filename, content, description, tags, "")
}

// UpdateFile replaces an existing file's content, keeping its id.
func (c *Client) UpdateFile(ctx context.Context, sessionID string, fileID string, filename string, content io.Reader, description string, tags []string) (*UploadResult, error) {
	return c.sendFile(ctx, http.MethodPut, sessionID, filename, content, description, tags, fileID)
}

func (c *Client) sendFile(ctx context.Context, method string, sessionID string, filename string, content io.Reader, description string, tags []string, fileID string) (*UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create multipart file")
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, errors.Wrap(err, "failed to copy file content")
	}
	if description != "" {
		if err := w.WriteField("description", description); err != nil {
			return nil, err
		}
	}
	if len(tags) > 0 {
		if err := w.WriteField("tags", strings.Join(tags, ",")); err != nil {
			return nil, err
		}
	}
	if fileID != "" {
		if err := w.WriteField("file_id", fileID); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	q := url.Values{"session_id": {sessionID}}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint("/api/agent/context", q), &buf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upload request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "upload request failed")
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("upload failed with status %d", resp.StatusCode)
	}

	var ret UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&ret); err != nil {
		return nil, errors.Wrap(err, "failed to decode upload response")
	}
	if ret.Status != "success" {
		return nil, errors.Errorf("upload rejected: %s", ret.Message)
	}
	return &ret, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) doJSON(ctx context.Context, method string, path string, q url.Values, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), reqBody)
	if err != nil {
		return errors.Wrapf(err, "failed to build %s %s request", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, firstLine(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s %s response", method, path)
	}
	return nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
