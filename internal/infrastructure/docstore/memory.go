package docstore

import (
	"context"
	"sync"

	"github.com/erp/backoffice/internal/domain/shared"
)

type memRecord struct {
	data    Document
	version int64
}

// MemoryStore keeps versioned documents in process memory.
// It backs tests and single-process development setups.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[Key]*memRecord
	clock  int64
	policy RetryPolicy
}

// NewMemoryStore creates an empty store
func NewMemoryStore(policy RetryPolicy) *MemoryStore {
	return &MemoryStore{docs: make(map[Key]*memRecord), policy: policy}
}

// Get reads one document
func (s *MemoryStore) Get(ctx context.Context, key Key) (*Snapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(key), nil
}

func (s *MemoryStore) snapshot(key Key) *Snapshot {
	rec, ok := s.docs[key]
	if !ok {
		return &Snapshot{Key: key}
	}
	return &Snapshot{Key: key, Data: rec.data.Clone(), Version: rec.version, Exists: true}
}

// List returns the documents of one tenant collection matching q
func (s *MemoryStore) List(ctx context.Context, ref CollectionRef, q shared.Query) ([]Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	snaps := make([]Snapshot, 0)
	for k := range s.docs {
		if k.TenantID == ref.TenantID && k.Collection == ref.Collection {
			snaps = append(snaps, *s.snapshot(k))
		}
	}
	s.mu.RUnlock()

	sortByID(snaps)
	return Apply(snaps, q)
}

// Add creates a document under a generated id
func (s *MemoryStore) Add(ctx context.Context, ref CollectionRef, data Document) (string, error) {
	id := NewID()
	if err := s.Set(ctx, ref.Doc(id), data); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces a document
func (s *MemoryStore) Set(ctx context.Context, key Key, data Document) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Set(key, data)
	})
}

// Update merges patch into an existing document
func (s *MemoryStore) Update(ctx context.Context, key Key, patch Document) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Update(key, patch)
	})
}

// Delete removes a document
func (s *MemoryStore) Delete(ctx context.Context, key Key) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Delete(key)
	})
}

// RunTransaction runs fn and commits its writes if no document it read has changed
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return RunWithRetry(ctx, s.policy, func(ctx context.Context) error {
		tx := NewTransaction(ctx, s.Get)
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

func (s *MemoryStore) commit(tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range tx.Reads() {
		if s.snapshot(r.Key).Version != r.Version {
			return ErrConflict
		}
	}
	staged, keys, err := tx.Stage(func(k Key) (*Snapshot, error) {
		return s.snapshot(k), nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		snap := staged[k]
		if !snap.Exists {
			delete(s.docs, k)
			continue
		}
		// versions come from a store-wide clock so a re-created document never
		// repeats a version observed before its deletion
		s.clock++
		s.docs[k] = &memRecord{data: snap.Data, version: s.clock}
	}
	return nil
}

// Len returns the number of stored documents across all tenants
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
