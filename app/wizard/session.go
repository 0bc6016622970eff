package wizard

import (
	"sync"
	"time"

	"salesbot/app/sales"
)

// Session is the live state of one in-progress wizard run. Exactly one
// session exists per conversation key at a time.
type Session struct {
	Key   sales.ConversationKey
	Step  Step
	Draft sales.Draft

	// Tracked holds IDs of prompt and error messages sent during the run,
	// bulk-deleted on finalize or cancel.
	Tracked []int

	// Tranche sub-dialogue scratch state, discarded once it ends.
	TotalTranches  int
	TrancheIndex   int
	PendingTranche float64

	StartedAt time.Time
}

// SessionStore maps conversation keys to live sessions. Implementations
// must be safe for concurrent use; the machine serialises transitions per
// key on top of it.
type SessionStore interface {
	Get(key sales.ConversationKey) (*Session, bool)
	Put(ses *Session)
	Delete(key sales.ConversationKey)
}

// MemoryStore is the default in-process session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[sales.ConversationKey]*Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[sales.ConversationKey]*Session)}
}

// Get returns the session for key, if any.
func (s *MemoryStore) Get(key sales.ConversationKey) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ses, ok := s.sessions[key]
	return ses, ok
}

// Put inserts or replaces the session for its key.
func (s *MemoryStore) Put(ses *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ses.Key] = ses
}

// Delete removes the session for key.
func (s *MemoryStore) Delete(key sales.ConversationKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
