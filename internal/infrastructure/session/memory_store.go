package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	tenantID  uuid.UUID
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory.
// Suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryStore creates an in-memory session store and starts its cleanup loop
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries:  make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// SetActiveTenant records the tenant with the configured TTL
func (s *MemoryStore) SetActiveTenant(_ context.Context, userID string, tenantID uuid.UUID) error {
	if err := validate(userID, tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = entry{tenantID: tenantID, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// ActiveTenant returns the stored tenant unless it expired
func (s *MemoryStore) ActiveTenant(_ context.Context, userID string) (uuid.UUID, bool, error) {
	if userID == "" {
		return uuid.Nil, false, ErrUserRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[userID]
	if !ok || s.now().After(e.expiresAt) {
		return uuid.Nil, false, nil
	}
	return e.tenantID, true, nil
}

// Clear forgets the user's session
func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for userID, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, userID)
		}
	}
}

// Size returns the number of stored sessions, including expired ones not yet swept
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
