package registry

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/ai-travel-planner/internal/utils"
)

type memEntry struct {
	userID    uint64
	expiresAt *time.Time
}

// Memory is a process-local registry for single-instance deployments.
type Memory struct {
	mu     sync.Mutex
	tokens map[string]memEntry
	byUser map[uint64]map[string]struct{}
	opts   options
}

var _ Registry = (*Memory)(nil)

func NewMemory(opts ...Option) *Memory {
	return &Memory{
		tokens: make(map[string]memEntry),
		byUser: make(map[uint64]map[string]struct{}),
		opts:   buildOptions(opts),
	}
}

func (m *Memory) Put(_ context.Context, token string, userID uint64) error {
	h := utils.HashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(h)
	m.tokens[h] = memEntry{userID: userID, expiresAt: m.opts.expiry()}
	set, ok := m.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		m.byUser[userID] = set
	}
	set[h] = struct{}{}
	return nil
}

func (m *Memory) Resolve(_ context.Context, token string) (uint64, error) {
	h := utils.HashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.liveLocked(h)
	if !ok {
		return 0, ErrTokenNotFound
	}
	return e.userID, nil
}

func (m *Memory) Consume(_ context.Context, token string) (uint64, error) {
	h := utils.HashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.liveLocked(h)
	if !ok {
		return 0, ErrTokenNotFound
	}
	m.removeLocked(h)
	return e.userID, nil
}

func (m *Memory) Revoke(_ context.Context, token string) error {
	h := utils.HashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(h)
	return nil
}

func (m *Memory) RevokeUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.byUser[userID] {
		delete(m.tokens, h)
	}
	delete(m.byUser, userID)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// liveLocked returns the entry for h, dropping it if it has expired.
func (m *Memory) liveLocked(h string) (memEntry, bool) {
	e, ok := m.tokens[h]
	if !ok {
		return memEntry{}, false
	}
	if e.expiresAt != nil && !m.opts.now().UTC().Before(*e.expiresAt) {
		m.removeLocked(h)
		return memEntry{}, false
	}
	return e, true
}

func (m *Memory) removeLocked(h string) {
	e, ok := m.tokens[h]
	if !ok {
		return
	}
	delete(m.tokens, h)
	if set := m.byUser[e.userID]; set != nil {
		delete(set, h)
		if len(set) == 0 {
			delete(m.byUser, e.userID)
		}
	}
}
