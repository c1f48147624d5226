// Package auth reacts to the server invalidating the session. Every gateway
// call goes through a Guard; an auth rejection logs the process out exactly
// once per rejected call.
package auth

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/logging"
	"github.com/neilberkman/chatify/internal/core/models"
	"github.com/neilberkman/chatify/internal/core/session"
)

// Resetter is in-memory state discarded on logout
type Resetter interface {
	Reset()
}

// Listener is told that the user must sign in again. op names the call that
// was rejected.
type Listener func(op string)

// Guard is a gateway.Backend that clears local state when the server
// rejects the credential
type Guard struct {
	next   gateway.Backend
	tokens session.Store

	mu        sync.Mutex
	resetters []Resetter
	listeners []Listener
}

var _ gateway.Backend = (*Guard)(nil)

// NewGuard wraps next
func NewGuard(next gateway.Backend, tokens session.Store) *Guard {
	return &Guard{next: next, tokens: tokens}
}

// AddResetter registers state to discard on rejection
func (g *Guard) AddResetter(r Resetter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetters = append(g.resetters, r)
}

// OnRejected registers a listener, typically navigation back to login
func (g *Guard) OnRejected(fn Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// check runs the rejection handling if err is an auth rejection and returns
// err unchanged
func (g *Guard) check(op string, err error) error {
	if err == nil || !gateway.IsAuthRejected(err) {
		return err
	}

	logging.WithFields(logrus.Fields{"op": op}).Warn("session rejected by server, signing out")

	if clearErr := g.tokens.Clear(); clearErr != nil {
		logging.WithError(clearErr).Error("failed to clear token")
	}

	g.mu.Lock()
	resetters := append([]Resetter(nil), g.resetters...)
	listeners := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	for _, r := range resetters {
		r.Reset()
	}
	for _, fn := range listeners {
		fn(op)
	}
	return err
}

// Login and Signup are unauthenticated; their failures never sign anyone out.

func (g *Guard) Login(ctx context.Context, username, password string) (string, error) {
	return g.next.Login(ctx, username, password)
}

func (g *Guard) Signup(ctx context.Context, username, password string) (string, error) {
	return g.next.Signup(ctx, username, password)
}

func (g *Guard) ListHistory(ctx context.Context) ([]models.ConversationSummary, error) {
	list, err := g.next.ListHistory(ctx)
	return list, g.check("list history", err)
}

func (g *Guard) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	conv, err := g.next.GetConversation(ctx, id)
	return conv, g.check("get conversation", err)
}

func (g *Guard) SendMessage(ctx context.Context, conversationID, text string) (string, error) {
	answer, err := g.next.SendMessage(ctx, conversationID, text)
	return answer, g.check("send message", err)
}

func (g *Guard) UploadDocument(ctx context.Context, filename string, content io.Reader) (*gateway.UploadResult, error) {
	res, err := g.next.UploadDocument(ctx, filename, content)
	return res, g.check("upload", err)
}

func (g *Guard) DeleteConversation(ctx context.Context, id string) error {
	return g.check("delete conversation", g.next.DeleteConversation(ctx, id))
}
