// Package workspace wires the session, guarded gateway, history list and
// conversation controller together and exposes the user-level operations
// the shells call.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neilberkman/chatify/internal/core/auth"
	"github.com/neilberkman/chatify/internal/core/config"
	"github.com/neilberkman/chatify/internal/core/conversation"
	"github.com/neilberkman/chatify/internal/core/db"
	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/history"
	"github.com/neilberkman/chatify/internal/core/logging"
	"github.com/neilberkman/chatify/internal/core/session"
)

// ErrNotPDF is returned by Upload for files the backend would refuse
var ErrNotPDF = errors.New("only PDF files can be uploaded")

// Options configures a Workspace
type Options struct {
	Backend        gateway.Backend
	Tokens         session.Store
	FailureMessage string
}

// Workspace is one signed-in (or signed-out) client
type Workspace struct {
	tokens         session.Store
	backend        *auth.Guard
	failureMessage string

	History      *history.Manager
	Conversation *conversation.Controller

	closer func() error
}

// New builds a workspace over an existing backend and token store
func New(opts Options) *Workspace {
	guard := auth.NewGuard(opts.Backend, opts.Tokens)

	conv := conversation.New(guard, conversation.Options{FailureMessage: opts.FailureMessage})
	hist := history.New(guard, conv)

	guard.AddResetter(hist)
	guard.AddResetter(conv)

	return &Workspace{
		tokens:         opts.Tokens,
		backend:        guard,
		failureMessage: opts.FailureMessage,
		History:        hist,
		Conversation:   conv,
	}
}

// Open builds a workspace from config: the token is persisted in the local
// database and the gateway talks to cfg.BaseURL. Close releases the database.
func Open(cfg *config.Config) (*Workspace, error) {
	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	tokens, err := session.NewPersistent(database, strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	client := gateway.New(gateway.Options{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.Timeout,
		UploadTimeout: cfg.UploadTimeout,
	}, tokens)

	ws := New(Options{
		Backend:        client,
		Tokens:         tokens,
		FailureMessage: cfg.FailureMessage,
	})
	ws.closer = database.Close
	return ws, nil
}

// Close releases resources held by Open
func (w *Workspace) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer()
}

// Backend returns the guarded gateway. Every call through it signs the user
// out if the server rejects the session.
func (w *Workspace) Backend() gateway.Backend {
	return w.backend
}

// NewController returns a controller over the guarded backend that is
// independent of the workspace selection, for callers that handle several
// conversations at once
func (w *Workspace) NewController() *conversation.Controller {
	return conversation.New(w.backend, conversation.Options{FailureMessage: w.failureMessage})
}

// OnAuthRejected registers fn to run after a rejected session was cleared
func (w *Workspace) OnAuthRejected(fn func(op string)) {
	w.backend.OnRejected(fn)
}

// Authenticated reports whether a token is present
func (w *Workspace) Authenticated() bool {
	_, ok := w.tokens.Get()
	return ok
}

// Login stores a fresh token and loads the conversation list. A failed list
// load does not fail the login.
func (w *Workspace) Login(ctx context.Context, username, password string) error {
	token, err := w.backend.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := w.tokens.Set(token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	logging.Infof("signed in as %s", username)

	if err := w.History.Refresh(ctx); err != nil && gateway.IsAuthRejected(err) {
		return err
	}
	return nil
}

// Signup creates the account and signs straight in
func (w *Workspace) Signup(ctx context.Context, username, password string) (string, error) {
	msg, err := w.backend.Signup(ctx, username, password)
	if err != nil {
		return "", err
	}
	if err := w.Login(ctx, username, password); err != nil {
		return msg, fmt.Errorf("account created but sign-in failed: %w", err)
	}
	return msg, nil
}

// Logout forgets the token and all conversation state
func (w *Workspace) Logout() error {
	err := w.tokens.Clear()
	w.History.Reset()
	w.Conversation.Reset()
	if err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// Upload sends a PDF, then refreshes the list and selects the conversation
// the server created (or reopened) for it
func (w *Workspace) Upload(ctx context.Context, path string) (*gateway.UploadResult, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, ErrNotPDF
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	res, err := w.backend.UploadDocument(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, err
	}

	if err := w.History.NotifyCreated(ctx, res.ConversationID); err != nil {
		return res, err
	}
	return res, nil
}

// Delete removes a conversation, deselecting it first if it is active
func (w *Workspace) Delete(ctx context.Context, id string) error {
	return w.History.Remove(ctx, id)
}
