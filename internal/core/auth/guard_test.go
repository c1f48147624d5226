package auth

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/models"
	"github.com/neilberkman/chatify/internal/core/session"
)

// stubBackend fails every call with err
type stubBackend struct {
	err error
}

func (s stubBackend) Login(context.Context, string, string) (string, error) {
	return "", s.err
}

func (s stubBackend) Signup(context.Context, string, string) (string, error) {
	return "", s.err
}

func (s stubBackend) ListHistory(context.Context) ([]models.ConversationSummary, error) {
	return nil, s.err
}

func (s stubBackend) GetConversation(context.Context, string) (*models.Conversation, error) {
	return nil, s.err
}

func (s stubBackend) SendMessage(context.Context, string, string) (string, error) {
	return "", s.err
}

func (s stubBackend) UploadDocument(context.Context, string, io.Reader) (*gateway.UploadResult, error) {
	return nil, s.err
}

func (s stubBackend) DeleteConversation(context.Context, string) error {
	return s.err
}

type countingResetter struct {
	n int
}

func (c *countingResetter) Reset() { c.n++ }

func rejected() error {
	return &gateway.Error{Kind: gateway.KindAuthRejected, Op: "test", Status: 401}
}

func TestGuard_RejectionClearsEverythingOnce(t *testing.T) {
	ctx := context.Background()
	calls := map[string]func(g *Guard) error{
		"list": func(g *Guard) error { _, err := g.ListHistory(ctx); return err },
		"get":  func(g *Guard) error { _, err := g.GetConversation(ctx, "c1"); return err },
		"send": func(g *Guard) error { _, err := g.SendMessage(ctx, "c1", "hi"); return err },
		"upload": func(g *Guard) error {
			_, err := g.UploadDocument(ctx, "a.pdf", strings.NewReader(""))
			return err
		},
		"delete": func(g *Guard) error { return g.DeleteConversation(ctx, "c1") },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			tokens := session.NewMemory()
			require.NoError(t, tokens.Set("tok"))

			g := NewGuard(stubBackend{err: rejected()}, tokens)
			list, conv := &countingResetter{}, &countingResetter{}
			g.AddResetter(list)
			g.AddResetter(conv)

			var signals []string
			g.OnRejected(func(op string) { signals = append(signals, op) })

			err := call(g)
			require.Error(t, err)
			assert.True(t, gateway.IsAuthRejected(err), "caller must still be able to recognize the rejection")

			_, ok := tokens.Get()
			assert.False(t, ok, "token should be cleared")
			assert.Equal(t, 1, list.n)
			assert.Equal(t, 1, conv.n)
			assert.Len(t, signals, 1, "navigation should fire exactly once")
		})
	}
}

func TestGuard_OtherErrorsPassThrough(t *testing.T) {
	for _, kind := range []gateway.Kind{gateway.KindTransport, gateway.KindServer, gateway.KindUnauthenticated} {
		t.Run(kind.String(), func(t *testing.T) {
			tokens := session.NewMemory()
			require.NoError(t, tokens.Set("tok"))

			want := &gateway.Error{Kind: kind, Op: "list history"}
			g := NewGuard(stubBackend{err: want}, tokens)
			r := &countingResetter{}
			g.AddResetter(r)
			fired := false
			g.OnRejected(func(string) { fired = true })

			_, err := g.ListHistory(context.Background())
			assert.True(t, errors.Is(err, want))

			tok, ok := tokens.Get()
			assert.True(t, ok)
			assert.Equal(t, "tok", tok)
			assert.Zero(t, r.n)
			assert.False(t, fired)
		})
	}
}

func TestGuard_LoginValidationDoesNotSignOut(t *testing.T) {
	tokens := session.NewMemory()
	require.NoError(t, tokens.Set("existing"))

	g := NewGuard(stubBackend{err: &gateway.Error{Kind: gateway.KindValidation, Op: "login", Status: 401}}, tokens)
	fired := false
	g.OnRejected(func(string) { fired = true })

	_, err := g.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, gateway.ErrValidation)
	assert.False(t, fired)
	_, ok := tokens.Get()
	assert.True(t, ok)
}

func TestGuard_EachRejectedCallSignalsOnce(t *testing.T) {
	tokens := session.NewMemory()
	g := NewGuard(stubBackend{err: rejected()}, tokens)

	count := 0
	g.OnRejected(func(string) { count++ })

	_, _ = g.ListHistory(context.Background())
	_, _ = g.SendMessage(context.Background(), "c1", "hi")
	assert.Equal(t, 2, count)
}
