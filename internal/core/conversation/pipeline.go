package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/logging"
	"github.com/neilberkman/chatify/internal/core/models"
)

var (
	ErrEmptyMessage         = errors.New("message is empty")
	ErrNoActiveConversation = errors.New("no conversation selected")
	ErrNotReady             = errors.New("conversation is still loading")
	ErrSendInFlight         = errors.New("waiting for the previous answer")
)

// Turn is one send round trip, pinned to the conversation it was started in
type Turn struct {
	ConversationID string
	Text           string

	gen      uint64
	index    int
	resolved bool
}

// Begin appends text as a pending user message and returns the turn to
// resolve once the backend answers. It does not touch the network.
func (c *Controller) Begin(text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeID == "" {
		return nil, ErrNoActiveConversation
	}
	switch c.state {
	case StateLoading:
		return nil, ErrNotReady
	case StateSending:
		return nil, ErrSendInFlight
	}

	c.messages = append(c.messages, models.UserMessage(text, models.StatusPending))
	c.state = StateSending

	return &Turn{
		ConversationID: c.activeID,
		Text:           text,
		gen:            c.gen,
		index:          len(c.messages) - 1,
	}, nil
}

// Resolve applies the backend's result for turn. It reports whether the
// result was applied; results for a conversation that is no longer
// materialized are dropped, as are auth rejections (the auth guard has
// already cleared everything).
func (c *Controller) Resolve(turn *Turn, answer string, err error) bool {
	if turn == nil || gateway.IsAuthRejected(err) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if turn.resolved || turn.gen != c.gen || turn.ConversationID != c.activeID || turn.index >= len(c.messages) {
		logging.WithFields(logrus.Fields{"conversation": turn.ConversationID}).Debug("discarding answer for inactive conversation")
		return false
	}
	turn.resolved = true

	if err != nil {
		logging.WithError(err).Warnf("failed to send message in conversation %s", turn.ConversationID)
		c.messages[turn.index].Status = models.StatusFailed
		c.messages = append(c.messages, models.AssistantMessage(c.failureMessage, models.StatusFailed))
	} else {
		c.messages[turn.index].Status = models.StatusCommitted
		c.messages = append(c.messages, models.AssistantMessage(answer, models.StatusCommitted))
	}
	c.state = StateReady
	return true
}

// Send runs a full turn: Begin, the backend call, then Resolve. The error
// is the Begin rejection or the backend failure, if any.
func (c *Controller) Send(ctx context.Context, text string) error {
	turn, err := c.Begin(text)
	if err != nil {
		return err
	}

	answer, err := c.backend.SendMessage(ctx, turn.ConversationID, turn.Text)
	c.Resolve(turn, answer, err)
	return err
}
