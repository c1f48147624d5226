// Package session holds the process-wide authentication credential.
package session

import (
	"fmt"
	"sync"

	"github.com/neilberkman/chatify/internal/core/db"
)

// Store is the token holder every authenticated gateway call reads from.
// Clear is authoritative and idempotent: clearing an absent token is a
// no-op.
type Store interface {
	Get() (string, bool)
	Set(token string) error
	Clear() error
}

// Memory is a Store that lives only as long as the process
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

func (m *Memory) Set(token string) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

// Persistent is a Store backed by the local database, keyed by backend
// endpoint so tokens for different servers never mix. The value is cached
// after the first read.
type Persistent struct {
	mu       sync.Mutex
	db       *db.DB
	endpoint string
	cache    Memory
}

// NewPersistent loads any saved token for endpoint
func NewPersistent(database *db.DB, endpoint string) (*Persistent, error) {
	p := &Persistent{db: database, endpoint: endpoint}

	cred, err := database.LoadCredential(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred != nil && cred.Token != "" {
		_ = p.cache.Set(cred.Token)
	}
	return p, nil
}

func (p *Persistent) Get() (string, bool) {
	return p.cache.Get()
}

func (p *Persistent) Set(token string) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.db.SaveCredential(p.endpoint, token); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return p.cache.Set(token)
}

func (p *Persistent) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// In-memory first: a failed delete must still log the process out
	_ = p.cache.Clear()
	if err := p.db.DeleteCredential(p.endpoint); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Endpoint returns the backend the token belongs to
func (p *Persistent) Endpoint() string {
	return p.endpoint
}
