// Package history keeps the local conversation list in step with the server.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/neilberkman/chatify/internal/core/gateway"
	"github.com/neilberkman/chatify/internal/core/logging"
	"github.com/neilberkman/chatify/internal/core/models"
)

// Selection is the part of the conversation controller the list drives
type Selection interface {
	Select(ctx context.Context, id string) error
	ClearIfActive(id string) bool
}

// Manager owns the ordered conversation summaries. The order is whatever
// the server returned; nothing is sorted locally.
type Manager struct {
	backend   gateway.Backend
	selection Selection

	mu        sync.Mutex
	summaries []models.ConversationSummary
	inflight  int
	epoch     uint64 // bumped by Reset
	started   uint64 // refreshes started
	applied   uint64 // newest refresh whose result was applied
}

// New creates a manager. selection may be nil when nothing needs to follow
// creates and deletes.
func New(backend gateway.Backend, selection Selection) *Manager {
	return &Manager{backend: backend, selection: selection}
}

// Refresh replaces the list with the server's. On failure the previous list
// is kept and the error returned.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.inflight++
	m.started++
	seq, epoch := m.started, m.epoch
	m.mu.Unlock()

	list, err := m.backend.ListHistory(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--

	if err != nil {
		if !gateway.IsAuthRejected(err) {
			logging.WithError(err).Warn("failed to refresh history")
		}
		return err
	}

	// A logout in the meantime or a newer refresh that already landed wins
	if epoch != m.epoch || seq < m.applied {
		return nil
	}
	m.applied = seq
	m.summaries = list
	return nil
}

// Remove deletes a conversation on the server. The selection is cleared
// before the list is refreshed so the deleted log is never shown against
// the new list. On failure nothing changes locally.
func (m *Manager) Remove(ctx context.Context, id string) error {
	if err := m.backend.DeleteConversation(ctx, id); err != nil {
		if !gateway.IsAuthRejected(err) {
			logging.WithError(err).Warnf("failed to delete conversation %s", id)
		}
		return err
	}

	if m.selection != nil {
		m.selection.ClearIfActive(id)
	}

	// The delete itself succeeded; a failed refresh is logged by Refresh
	_ = m.Refresh(ctx)
	return nil
}

// NotifyCreated refreshes the list after an upload and selects the new
// conversation. Selection goes ahead even if the refresh failed, unless the
// session was rejected.
func (m *Manager) NotifyCreated(ctx context.Context, id string) error {
	if err := m.Refresh(ctx); err != nil && gateway.IsAuthRejected(err) {
		return err
	}

	if m.selection == nil {
		return nil
	}
	if err := m.selection.Select(ctx, id); err != nil {
		return fmt.Errorf("failed to open conversation %s: %w", id, err)
	}
	return nil
}

// Reset drops the list
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = nil
	m.epoch++
}

// Summaries returns a copy of the list in server order
func (m *Manager) Summaries() []models.ConversationSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ConversationSummary, len(m.summaries))
	copy(out, m.summaries)
	return out
}

// Loading reports whether a refresh is in flight
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// Find looks up a summary by id
func (m *Manager) Find(id string) (models.ConversationSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.summaries {
		if s.ID == id {
			return s, true
		}
	}
	return models.ConversationSummary{}, false
}
