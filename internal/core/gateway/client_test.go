package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilberkman/chatify/internal/core/backendtest"
	"github.com/neilberkman/chatify/internal/core/models"
)

type staticToken string

func (s staticToken) Get() (string, bool) {
	return string(s), s != ""
}

func newClient(t *testing.T, srv *backendtest.Server, token string) *Client {
	t.Helper()
	return New(Options{BaseURL: srv.Start(t) + "/", Timeout: 5 * time.Second}, staticToken(token))
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:8000/"}, staticToken(""))
	assert.Equal(t, "http://127.0.0.1:8000", c.BaseURL())
}

func TestLogin(t *testing.T) {
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	c := newClient(t, srv, "")

	token, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = c.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, IsAuthRejected(err), "bad credentials must not look like a rejected session")
	assert.Equal(t, "Incorrect username or password", UserMessage(err))
}

func TestSignup(t *testing.T) {
	srv := backendtest.New()
	c := newClient(t, srv, "")

	msg, err := c.Signup(context.Background(), "bob", "pw")
	require.NoError(t, err)
	assert.Contains(t, msg, "bob")

	_, err = c.Signup(context.Background(), "bob", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Username already registered", UserMessage(err))

	_, err = c.Signup(context.Background(), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "username: field required", UserMessage(err))
}

func TestAuthedCall_WithoutToken(t *testing.T) {
	srv := backendtest.New()
	c := newClient(t, srv, "")

	_, err := c.ListHistory(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 0, srv.Calls("GET /history"), "no request should be issued without a token")
}

func TestAuthedCall_Rejected(t *testing.T) {
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	token := srv.IssueToken("alice")
	srv.RevokeTokens()
	c := newClient(t, srv, token)

	_, err := c.ListHistory(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthRejected(err))

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusUnauthorized, gwErr.Status)
	assert.Equal(t, KindAuthRejected, gwErr.Kind)
}

func TestHistoryAndConversation(t *testing.T) {
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	first := srv.SeedChat("alice", "a.pdf", "q1", "a1")
	second := srv.SeedChat("alice", "b.pdf")
	srv.SeedChat("mallory", "other.pdf")
	c := newClient(t, srv, srv.IssueToken("alice"))

	ctx := context.Background()
	list, err := c.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Server order is newest first and must be preserved
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, "a.pdf", list[1].Title)
	assert.False(t, list[0].CreatedAt.IsZero())

	conv, err := c.GetConversation(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, conv.ID)
	assert.Equal(t, []models.Message{
		models.UserMessage("q1", models.StatusCommitted),
		models.AssistantMessage("a1", models.StatusCommitted),
	}, conv.Messages)

	_, err = c.GetConversation(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, "Chat not found", UserMessage(err))
}

func TestSendMessage(t *testing.T) {
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	id := srv.SeedChat("alice", "a.pdf")
	c := newClient(t, srv, srv.IssueToken("alice"))

	answer, err := c.SendMessage(context.Background(), id, "what is it?")
	require.NoError(t, err)
	assert.Equal(t, "answer: what is it?", answer)
	assert.Equal(t, [][2]string{{"user", "what is it?"}, {"bot", "answer: what is it?"}}, srv.Messages(id))

	srv.FailNext("POST /chat", http.StatusInternalServerError, "model unavailable")
	_, err = c.SendMessage(context.Background(), id, "again")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "model unavailable")
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestUploadDocument(t *testing.T) {
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	c := newClient(t, srv, srv.IssueToken("alice"))
	ctx := context.Background()

	res, err := c.UploadDocument(ctx, "report.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ConversationID)
	assert.Equal(t, "File processed and new chat created", res.Message)

	// Same filename reopens the existing conversation
	again, err := c.UploadDocument(ctx, "report.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, res.ConversationID, again.ConversationID)

	_, err = c.UploadDocument(ctx, "notes.txt", strings.NewReader("hi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, "Only PDF files are allowed", UserMessage(err))
}

func TestDeleteConversation(t *testing.T) {
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	id := srv.SeedChat("alice", "a.pdf")
	c := newClient(t, srv, srv.IssueToken("alice"))

	require.NoError(t, c.DeleteConversation(context.Background(), id))
	assert.False(t, srv.HasChat(id))

	err := c.DeleteConversation(context.Background(), id)
	assert.ErrorIs(t, err, ErrServer)
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(Options{BaseURL: url, Timeout: time.Second}, staticToken("tok"))
	_, err := c.ListHistory(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.False(t, IsAuthRejected(err))
}

func TestRequestID(t *testing.T) {
	got := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL}, staticToken("tok"))
	list, err := c.ListHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Len(t, <-got, 36)
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"detail":"Chat not found"}`, "Chat not found"},
		{"validation list", `{"detail":[{"loc":["body","query"],"msg":"field required"}]}`, "query: field required"},
		{"missing", `{"message":"ok"}`, ""},
		{"not json", `<html>bad gateway</html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDetail([]byte(tt.body)))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T10:30:00", want},
		{"2025-03-01T10:30:00.000000", want},
		{"2025-03-01T10:30:00Z", want},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTimestamp(tt.in)), "parseTimestamp(%q)", tt.in)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	for _, kind := range []Kind{KindUnauthenticated, KindAuthRejected, KindTransport, KindServer, KindValidation} {
		err := error(&Error{Kind: kind, Op: "op"})
		matches := 0
		for _, sentinel := range []error{ErrUnauthenticated, ErrAuthRejected, ErrTransport, ErrServer, ErrValidation} {
			if errors.Is(err, sentinel) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "kind %s should match exactly one sentinel", kind)
	}
}
