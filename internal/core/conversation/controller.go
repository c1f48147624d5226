// Package conversation owns the one materialized conversation: which id is
// active, its message log, and the send round trip against it.
package conversation

import (
	"context"
	"sync"

	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/logging"
	"github.com/neilberkman/chatify/internal/core/models"
)

const defaultFailureMessage = "Sorry, I encountered an error. Please try again."

// State of the controller
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateSending
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the controller state safe to render
type Snapshot struct {
	ActiveID string
	Title    string
	State    State
	Messages []models.Message
}

// Conversation returns the snapshot as a model value
func (s Snapshot) Conversation() models.Conversation {
	return models.Conversation{ID: s.ActiveID, Title: s.Title, Messages: s.Messages}
}

// Options configures a Controller
type Options struct {
	// FailureMessage is the assistant text shown in place of an answer that
	// could not be fetched
	FailureMessage string
}

// Controller tracks the active conversation. Its lock is never held across
// a backend call; results are matched back to the selection they were
// issued for and dropped if it has changed.
type Controller struct {
	backend        gateway.Backend
	failureMessage string

	mu       sync.Mutex
	activeID string
	title    string
	messages []models.Message
	state    State
	// gen changes whenever the materialized conversation is replaced or
	// cleared. In-flight results carry the gen they were issued under.
	gen uint64
}

// New creates an empty controller
func New(backend gateway.Backend, opts Options) *Controller {
	if opts.FailureMessage == "" {
		opts.FailureMessage = defaultFailureMessage
	}
	return &Controller{
		backend:        backend,
		failureMessage: opts.FailureMessage,
	}
}

// Select makes id the active conversation and loads it. An empty id
// deselects. Switching happens before the fetch starts, so a slow fetch
// never delays leaving the previous conversation. Selecting the
// conversation that is already active does nothing.
func (c *Controller) Select(ctx context.Context, id string) error {
	c.mu.Lock()
	if id == "" {
		c.clearLocked()
		c.mu.Unlock()
		return nil
	}
	if id == c.activeID {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.activeID = id
	c.title = ""
	c.messages = nil
	c.state = StateLoading
	c.mu.Unlock()

	conv, err := c.backend.GetConversation(ctx, id)

	if gateway.IsAuthRejected(err) {
		// Already reset by the auth guard
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		logging.Debugf("discarding stale load of conversation %s", id)
		return err
	}
	if err != nil {
		logging.WithError(err).Warnf("failed to load conversation %s", id)
		c.clearLocked()
		return err
	}

	if conv != nil {
		c.title = conv.Title
		c.messages = append([]models.Message(nil), conv.Messages...)
	}
	c.state = StateReady
	return nil
}

// ClearIfActive deselects id if it is the active conversation
func (c *Controller) ClearIfActive(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" || id != c.activeID {
		return false
	}
	c.clearLocked()
	return true
}

// Reset drops all conversation state
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// ActiveID returns the selected conversation, or "" when none is
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Snapshot copies the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ActiveID: c.activeID,
		Title:    c.title,
		State:    c.state,
		Messages: append([]models.Message(nil), c.messages...),
	}
}

func (c *Controller) clearLocked() {
	c.gen++
	c.activeID = ""
	c.title = ""
	c.messages = nil
	c.state = StateEmpty
}
