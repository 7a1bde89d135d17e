package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentStore implements docstore.Store on a relational database through GORM.
// Documents live in a single table; transactions validate read versions and commit
// with conditional updates on the version column.
type DocumentStore struct {
	db     *gorm.DB
	tdb    *tenant.TenantDB
	policy docstore.RetryPolicy
}

// NewDocumentStore creates a GORM-backed document store
func NewDocumentStore(db *gorm.DB, policy docstore.RetryPolicy) *DocumentStore {
	return &DocumentStore{db: db, tdb: tenant.NewTenantDB(db), policy: policy}
}

var _ docstore.Store = (*DocumentStore)(nil)

func keyScope(key docstore.Key) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("collection = ? AND doc_id = ?", key.Collection, key.ID)
	}
}

// toSnapshot converts a row into a snapshot. JSON columns decode numbers as
// json.Number, so the data is normalized to the in-memory document representation.
func toSnapshot(key docstore.Key, m *DocumentModel) (*docstore.Snapshot, error) {
	if m == nil {
		return &docstore.Snapshot{Key: key}, nil
	}
	data, err := docstore.NormalizeDocument(docstore.Document(m.Data))
	if err != nil {
		return nil, err
	}
	return &docstore.Snapshot{
		Key:     key,
		Data:    data,
		Version: m.Version,
		Exists:  true,
	}, nil
}

func load(db *gorm.DB, key docstore.Key, lock bool) (*DocumentModel, error) {
	q := db.Scopes(tenant.TenantScope(key.TenantID), keyScope(key))
	if lock && db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m DocumentModel
	if err := q.Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Get reads one document
func (s *DocumentStore) Get(ctx context.Context, key docstore.Key) (*docstore.Snapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m, err := load(s.db.WithContext(ctx), key, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	return toSnapshot(key, m)
}

// List loads the tenant collection and applies q to it
func (s *DocumentStore) List(ctx context.Context, ref docstore.CollectionRef, q shared.Query) ([]docstore.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	var rows []DocumentModel
	err := s.tdb.WithTenant(ref.TenantID).WithContext(ctx).
		Where("collection = ?", ref.Collection).
		Order("doc_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", ref.Path(), err)
	}

	snaps := make([]docstore.Snapshot, 0, len(rows))
	for i := range rows {
		snap, err := toSnapshot(ref.Doc(rows[i].DocID), &rows[i])
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return docstore.Apply(snaps, q)
}

// Add creates a document under a generated id
func (s *DocumentStore) Add(ctx context.Context, ref docstore.CollectionRef, data docstore.Document) (string, error) {
	id := docstore.NewID()
	if err := s.Set(ctx, ref.Doc(id), data); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces a document
func (s *DocumentStore) Set(ctx context.Context, key docstore.Key, data docstore.Document) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Set(key, data)
	})
}

// Update merges patch into an existing document
func (s *DocumentStore) Update(ctx context.Context, key docstore.Key, patch docstore.Document) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Update(key, patch)
	})
}

// Delete removes a document
func (s *DocumentStore) Delete(ctx context.Context, key docstore.Key) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Delete(key)
	})
}

// RunTransaction runs fn against committed reads and commits its writes in one
// database transaction, retrying on version conflicts
func (s *DocumentStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return docstore.RunWithRetry(ctx, s.policy, func(ctx context.Context) error {
		tx := docstore.NewTransaction(ctx, s.Get)
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if len(tx.Writes()) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.commit(ctx, tx)
	})
}

func (s *DocumentStore) commit(ctx context.Context, t *docstore.Transaction) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		loaded := make(map[docstore.Key]*DocumentModel)
		current := func(key docstore.Key) (*docstore.Snapshot, error) {
			m, ok := loaded[key]
			if !ok {
				var err error
				if m, err = load(db, key, true); err != nil {
					return nil, err
				}
				loaded[key] = m
			}
			return toSnapshot(key, m)
		}

		for _, r := range t.Reads() {
			snap, err := current(r.Key)
			if err != nil {
				return err
			}
			if snap.Version != r.Version {
				return docstore.ErrConflict
			}
		}

		staged, keys, err := t.Stage(current)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, key := range keys {
			if err := write(db, key, loaded[key], staged[key], now); err != nil {
				return err
			}
		}
		return nil
	})
}

func write(db *gorm.DB, key docstore.Key, prev *DocumentModel, next *docstore.Snapshot, now time.Time) error {
	switch {
	case !next.Exists && prev == nil:
		return nil
	case !next.Exists:
		res := db.Scopes(tenant.TenantScope(key.TenantID), keyScope(key)).
			Where("version = ?", prev.Version).
			Delete(&DocumentModel{})
		return conditional(res)
	case prev == nil:
		m := &DocumentModel{
			TenantID:   key.TenantID,
			Collection: key.Collection,
			DocID:      key.ID,
			Data:       datatypes.JSONMap(next.Data),
			Version:    docstore.InitialVersion(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := db.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return docstore.ErrConflict
			}
			return fmt.Errorf("failed to insert document %s: %w", key, err)
		}
		return nil
	default:
		res := db.Model(&DocumentModel{}).
			Scopes(tenant.TenantScope(key.TenantID), keyScope(key)).
			Where("version = ?", prev.Version).
			Updates(map[string]any{
				"data":       datatypes.JSONMap(next.Data),
				"version":    prev.Version + 1,
				"updated_at": now,
			})
		return conditional(res)
	}
}

func conditional(res *gorm.DB) error {
	if res.Error != nil {
		return fmt.Errorf("failed to write document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return docstore.ErrConflict
	}
	return nil
}
