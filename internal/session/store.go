// Package session keeps server-side login state and the signed cookie that
// points at it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store maps opaque session ids to user ids.
type Store interface {
	// Create starts a session for userID and returns its id.
	Create(ctx context.Context, userID int64) (string, error)
	// Get resolves a session id. Unknown and expired ids report found == false.
	Get(ctx context.Context, id string) (userID int64, found bool, err error)
	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

func newID() string {
	return uuid.NewString()
}

type memoryEntry struct {
	userID    int64
	expiresAt time.Time
}

// DefaultCleanupInterval is how often MemoryStore sweeps expired sessions.
const DefaultCleanupInterval = 5 * time.Minute

// MemoryStore is an in-process Store. Sessions are lost on restart.
type MemoryStore struct {
	mu          sync.Mutex
	ttl         time.Duration
	sessions    map[string]memoryEntry
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore starts a store and its cleanup goroutine. Call Stop to end it.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:         ttl,
		sessions:    make(map[string]memoryEntry),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go s.startCleanup(DefaultCleanupInterval)
	return s
}

func (s *MemoryStore) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanupExpired drops every expired session and returns how many it removed.
func (s *MemoryStore) cleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Stop shuts down the cleanup goroutine. It is safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}

func (s *MemoryStore) Create(_ context.Context, userID int64) (string, error) {
	id := newID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = memoryEntry{userID: userID, expiresAt: s.now().Add(s.ttl)}
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return 0, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return 0, false, nil
	}
	return e.userID, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
