// Package gateway is the only code that talks to the chat backend. Every
// remote capability is one Backend method with a typed *Error on failure.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/neilberkman/chatify/internal/core/logging"
	"github.com/neilberkman/chatify/internal/core/models"
)

const (
	DefaultTimeout       = 60 * time.Second
	DefaultUploadTimeout = 5 * time.Minute

	// maxResponseSize caps how much of any response body is read
	maxResponseSize = 10 * 1024 * 1024

	requestIDHeader = "X-Request-ID"
)

// Backend is the set of remote capabilities the client relies on
type Backend interface {
	Login(ctx context.Context, username, password string) (string, error)
	Signup(ctx context.Context, username, password string) (string, error)
	ListHistory(ctx context.Context) ([]models.ConversationSummary, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	SendMessage(ctx context.Context, conversationID, text string) (string, error)
	UploadDocument(ctx context.Context, filename string, content io.Reader) (*UploadResult, error)
	DeleteConversation(ctx context.Context, id string) error
}

// TokenSource supplies the bearer token for authenticated calls
type TokenSource interface {
	Get() (string, bool)
}

// UploadResult is what the server reports after ingesting a document
type UploadResult struct {
	ConversationID string `json:"chat_id"`
	Message        string `json:"message"`
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
	HTTPClient    *http.Client
}

// Client implements Backend over HTTP
type Client struct {
	baseURL      string
	tokens       TokenSource
	http         *http.Client
	uploadClient *http.Client
}

// NewHTTPClient returns a pooled client with the given timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// New creates a client for the backend at opts.BaseURL
func New(opts Options, tokens TokenSource) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		tokens:  tokens,
	}
	if opts.HTTPClient != nil {
		c.http = opts.HTTPClient
		c.uploadClient = opts.HTTPClient
	} else {
		c.http = NewHTTPClient(opts.Timeout)
		c.uploadClient = NewHTTPClient(opts.UploadTimeout)
	}
	return c
}

// BaseURL returns the normalized backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "login"

	form := url.Values{"username": {username}, "password": {password}}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.doForm(ctx, op, "/token", form, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &Error{Kind: KindServer, Op: op, Detail: "response did not contain an access token"}
	}
	return resp.AccessToken, nil
}

// Signup registers a new account and returns the server's confirmation
func (c *Client) Signup(ctx context.Context, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.doForm(ctx, "signup", "/signup", form, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

type historyItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// ListHistory returns the user's conversations in server order
func (c *Client) ListHistory(ctx context.Context) ([]models.ConversationSummary, error) {
	const op = "list history"

	var items []historyItem
	if err := c.doAuthed(ctx, op, http.MethodGet, "/history", nil, "", &items); err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(items))
	for _, item := range items {
		s := models.ConversationSummary{
			ID:        item.ID,
			Title:     item.Title,
			CreatedAt: parseTimestamp(item.CreatedAt),
		}
		if err := s.Validate(); err != nil {
			logging.WithFields(logrus.Fields{"op": op}).Warnf("skipping history item: %v", err)
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

type conversationPayload struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Messages []struct {
		Role string `json:"role"`
		Text string `json:"text"`
	} `json:"messages"`
}

// GetConversation fetches the full message log. Every returned message is
// committed.
func (c *Client) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var payload conversationPayload
	path := "/history/" + url.PathEscape(id)
	if err := c.doAuthed(ctx, "get conversation", http.MethodGet, path, nil, "", &payload); err != nil {
		return nil, err
	}

	conv := &models.Conversation{
		ID:       payload.ID,
		Title:    payload.Title,
		Messages: make([]models.Message, 0, len(payload.Messages)),
	}
	if conv.ID == "" {
		conv.ID = id
	}
	for _, m := range payload.Messages {
		conv.Messages = append(conv.Messages, models.Message{
			Role:   models.ParseRole(m.Role),
			Text:   m.Text,
			Status: models.StatusCommitted,
		})
	}
	return conv, nil
}

// SendMessage posts a question in a conversation and returns the answer
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"query":   text,
		"chat_id": conversationID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.doAuthed(ctx, "send message", http.MethodPost, "/chat", bytes.NewReader(body), "application/json", &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// UploadDocument sends a document as multipart field "file". The server
// may return an existing conversation for a file it has already seen.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	const op = "upload"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var result UploadResult
	if err := c.doAuthed(ctx, op, http.MethodPost, "/upload", &buf, mw.FormDataContentType(), &result); err != nil {
		return nil, err
	}
	if result.ConversationID == "" {
		return nil, &Error{Kind: KindServer, Op: op, Detail: "response did not contain a chat id"}
	}
	return &result, nil
}

// DeleteConversation removes a conversation on the server
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	path := "/history/" + url.PathEscape(id)
	return c.doAuthed(ctx, "delete conversation", http.MethodDelete, path, nil, "", nil)
}

func (c *Client) doForm(ctx context.Context, op, path string, form url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.do(c.http, op, req)
	if err != nil {
		return err
	}

	switch {
	case status >= 200 && status < 300:
		return decode(op, body, out)
	case status == http.StatusBadRequest, status == http.StatusUnauthorized, status == http.StatusUnprocessableEntity:
		// Bad credentials or a taken username, never a session problem
		return &Error{Kind: KindValidation, Op: op, Status: status, Detail: parseDetail(body)}
	default:
		return &Error{Kind: KindServer, Op: op, Status: status, Detail: parseDetail(body)}
	}
}

func (c *Client) doAuthed(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	token, ok := c.tokens.Get()
	if !ok {
		return &Error{Kind: KindUnauthenticated, Op: op}
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := c.http
	if path == "/upload" {
		client = c.uploadClient
	}

	status, respBody, err := c.do(client, op, req)
	if err != nil {
		return err
	}

	switch {
	case status >= 200 && status < 300:
		return decode(op, respBody, out)
	case status == http.StatusUnauthorized:
		return &Error{Kind: KindAuthRejected, Op: op, Status: status, Detail: parseDetail(respBody)}
	default:
		return &Error{Kind: KindServer, Op: op, Status: status, Detail: parseDetail(respBody)}
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	return req, nil
}

func (c *Client) do(client *http.Client, op string, req *http.Request) (int, []byte, error) {
	fields := logrus.Fields{
		"op":         op,
		"method":     req.Method,
		"path":       req.URL.Path,
		"request_id": req.Header.Get(requestIDHeader),
	}
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		logging.WithFields(fields).WithError(err).Warn("request failed")
		return 0, nil, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		logging.WithFields(fields).WithError(err).Warn("failed to read response")
		return 0, nil, &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: err}
	}

	fields["status"] = resp.StatusCode
	fields["duration"] = time.Since(start).String()
	logging.WithFields(fields).Debug("request complete")

	return resp.StatusCode, body, nil
}

func decode(op string, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindServer, Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts ISO-8601 with or without a zone; zoneless values
// are taken as UTC. Unparseable input yields the zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
