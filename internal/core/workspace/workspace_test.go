package workspace

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilberkman/chatify/internal/core/backendtest"
	"github.com/neilberkman/chatify/internal/core/config"
	"github.com/neilberkman/chatify/internal/core/conversation"
	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/models"
	"github.com/neilberkman/chatify/internal/core/session"
)

func newWorkspace(t *testing.T, srv *backendtest.Server) *Workspace {
	t.Helper()
	tokens := session.NewMemory()
	client := gateway.New(gateway.Options{BaseURL: srv.Start(t), Timeout: 5 * time.Second}, tokens)
	return New(Options{Backend: client, Tokens: tokens})
}

func signedIn(t *testing.T) (*backendtest.Server, *Workspace) {
	t.Helper()
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	ws := newWorkspace(t, srv)
	require.NoError(t, ws.Login(context.Background(), "alice", "secret"))
	return srv, ws
}

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0644))
	return path
}

func historyIDs(ws *Workspace) []string {
	var ids []string
	for _, s := range ws.History.Summaries() {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestLogin(t *testing.T) {
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	srv.SeedChat("alice", "a.pdf")
	ws := newWorkspace(t, srv)

	assert.False(t, ws.Authenticated())

	err := ws.Login(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, gateway.ErrValidation)
	assert.False(t, ws.Authenticated())

	require.NoError(t, ws.Login(context.Background(), "alice", "secret"))
	assert.True(t, ws.Authenticated())
	assert.Len(t, ws.History.Summaries(), 1, "login loads the conversation list")
}

func TestSignup(t *testing.T) {
	srv := backendtest.New()
	ws := newWorkspace(t, srv)

	msg, err := ws.Signup(context.Background(), "bob", "pw")
	require.NoError(t, err)
	assert.Contains(t, msg, "created")
	assert.True(t, ws.Authenticated())

	require.NoError(t, ws.Logout())
	_, err = ws.Signup(context.Background(), "bob", "pw")
	assert.ErrorIs(t, err, gateway.ErrValidation)
	assert.Equal(t, "Username already registered", gateway.UserMessage(err))
	assert.False(t, ws.Authenticated())
}

func TestLogout(t *testing.T) {
	srv, ws := signedIn(t)
	id := srv.SeedChat("alice", "a.pdf", "q", "a")
	require.NoError(t, ws.History.Refresh(context.Background()))
	require.NoError(t, ws.Conversation.Select(context.Background(), id))

	require.NoError(t, ws.Logout())
	assert.False(t, ws.Authenticated())
	assert.Empty(t, ws.History.Summaries())
	assert.Equal(t, conversation.StateEmpty, ws.Conversation.Snapshot().State)

	require.NoError(t, ws.Logout(), "logging out twice is harmless")
}

func TestUpload_RoundTrip(t *testing.T) {
	_, ws := signedIn(t)

	res, err := ws.Upload(context.Background(), writePDF(t, "doc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "c1", res.ConversationID)

	assert.Contains(t, historyIDs(ws), "c1")
	snap := ws.Conversation.Snapshot()
	assert.Equal(t, "c1", snap.ActiveID)
	assert.Equal(t, conversation.StateReady, snap.State)
}

func TestUpload_SameFileReopens(t *testing.T) {
	_, ws := signedIn(t)
	path := writePDF(t, "doc.pdf")

	first, err := ws.Upload(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, ws.Conversation.Send(context.Background(), "hi"))

	second, err := ws.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, []string{"c1"}, historyIDs(ws))
	// Already active, so the log is not reloaded or cleared
	assert.Len(t, ws.Conversation.Snapshot().Messages, 2)
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	srv, ws := signedIn(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0644))

	_, err := ws.Upload(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotPDF)
	assert.Zero(t, srv.Calls("POST /upload"))
}

func TestUpload_ServerFailure(t *testing.T) {
	srv, ws := signedIn(t)
	srv.FailNext("POST /upload", http.StatusInternalServerError, "ingest failed")

	_, err := ws.Upload(context.Background(), writePDF(t, "doc.pdf"))
	assert.ErrorIs(t, err, gateway.ErrServer)
	assert.Empty(t, ws.Conversation.ActiveID())
	assert.True(t, ws.Authenticated())
}

func TestDelete_ActiveConversation(t *testing.T) {
	srv, ws := signedIn(t)
	keep := srv.SeedChat("alice", "keep.pdf")
	drop := srv.SeedChat("alice", "drop.pdf", "q", "a")
	require.NoError(t, ws.History.Refresh(context.Background()))
	require.NoError(t, ws.Conversation.Select(context.Background(), drop))

	require.NoError(t, ws.Delete(context.Background(), drop))
	assert.Equal(t, conversation.StateEmpty, ws.Conversation.Snapshot().State)
	assert.Empty(t, ws.Conversation.ActiveID())
	assert.Equal(t, []string{keep}, historyIDs(ws))
}

func TestDelete_ActiveClearedEvenIfRefreshFails(t *testing.T) {
	srv, ws := signedIn(t)
	id := srv.SeedChat("alice", "a.pdf")
	require.NoError(t, ws.History.Refresh(context.Background()))
	require.NoError(t, ws.Conversation.Select(context.Background(), id))

	srv.FailNext("GET /history", http.StatusBadGateway, "upstream down")
	require.NoError(t, ws.Delete(context.Background(), id))
	assert.Empty(t, ws.Conversation.ActiveID())
	// The refresh failed so the stale list is kept until the next refresh
	assert.Equal(t, []string{id}, historyIDs(ws))
}

func TestDelete_Failure(t *testing.T) {
	srv, ws := signedIn(t)
	id := srv.SeedChat("alice", "a.pdf")
	require.NoError(t, ws.History.Refresh(context.Background()))
	require.NoError(t, ws.Conversation.Select(context.Background(), id))

	srv.FailNext("DELETE /history/:id", http.StatusInternalServerError, "nope")
	err := ws.Delete(context.Background(), id)
	assert.ErrorIs(t, err, gateway.ErrServer)
	assert.Equal(t, id, ws.Conversation.ActiveID())
	assert.Equal(t, []string{id}, historyIDs(ws))
}

func TestAuthRejected_ClearsEverything(t *testing.T) {
	srv, ws := signedIn(t)
	id := srv.SeedChat("alice", "a.pdf", "q", "a")
	require.NoError(t, ws.History.Refresh(context.Background()))
	require.NoError(t, ws.Conversation.Select(context.Background(), id))

	var signals []string
	ws.OnAuthRejected(func(op string) { signals = append(signals, op) })

	srv.RevokeTokens()
	err := ws.Conversation.Send(context.Background(), "are you there?")
	require.Error(t, err)
	assert.True(t, gateway.IsAuthRejected(err))

	assert.False(t, ws.Authenticated())
	assert.Empty(t, ws.History.Summaries())
	snap := ws.Conversation.Snapshot()
	assert.Equal(t, conversation.StateEmpty, snap.State)
	assert.Empty(t, snap.ActiveID)
	assert.Empty(t, snap.Messages)
	assert.Equal(t, []string{"send message"}, signals)

	// With the token gone nothing else reaches the server
	calls := srv.Calls("GET /history")
	err = ws.History.Refresh(context.Background())
	assert.ErrorIs(t, err, gateway.ErrUnauthenticated)
	assert.Equal(t, calls, srv.Calls("GET /history"))
	assert.Len(t, signals, 1)
}

func TestSend_ThroughBackend(t *testing.T) {
	srv, ws := signedIn(t)
	id := srv.SeedChat("alice", "a.pdf")
	require.NoError(t, ws.Conversation.Select(context.Background(), id))

	require.NoError(t, ws.Conversation.Send(context.Background(), "hello"))
	assert.Equal(t, []models.Message{
		models.UserMessage("hello", models.StatusCommitted),
		models.AssistantMessage("answer: hello", models.StatusCommitted),
	}, ws.Conversation.Snapshot().Messages)
	assert.Equal(t, [][2]string{{"user", "hello"}, {"bot", "answer: hello"}}, srv.Messages(id))
}

func TestOpen_PersistsToken(t *testing.T) {
	srv := backendtest.New()
	srv.AddUser("alice", "secret")
	url := srv.Start(t)

	cfg := config.Default()
	cfg.BaseURL = url
	cfg.DBPath = filepath.Join(t.TempDir(), "chatify.db")

	ws, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, ws.Login(context.Background(), "alice", "secret"))
	require.NoError(t, ws.Close())

	ws, err = Open(cfg)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()
	assert.True(t, ws.Authenticated(), "token survives a restart")
	require.NoError(t, ws.History.Refresh(context.Background()))
}
