package persistence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryPolicy() docstore.RetryPolicy {
	return docstore.RetryPolicy{MaxAttempts: 200, InitialInterval: time.Microsecond, MaxInterval: time.Millisecond}
}

func setupDocumentStore(t *testing.T) *DocumentStore {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, AutoMigrate(db))
	return NewDocumentStore(db.DB, testRetryPolicy())
}

func TestDocumentStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := setupDocumentStore(t)
	ref := docstore.Collection(uuid.New(), "warehouses")

	id, err := s.Add(ctx, ref, docstore.Document{"code": "WH-001", "isDefault": true, "capacity": 10})
	require.NoError(t, err)

	snap, err := s.Get(ctx, ref.Doc(id))
	require.NoError(t, err)
	require.True(t, snap.Exists)
	assert.Positive(t, snap.Version)
	created := snap.Version
	assert.Equal(t, "WH-001", snap.Data["code"])
	assert.Equal(t, float64(10), snap.Data["capacity"])

	require.NoError(t, s.Update(ctx, ref.Doc(id), docstore.Document{"isDefault": false}))
	snap, err = s.Get(ctx, ref.Doc(id))
	require.NoError(t, err)
	assert.Equal(t, created+1, snap.Version)
	assert.Equal(t, false, snap.Data["isDefault"])
	assert.Equal(t, "WH-001", snap.Data["code"])

	require.NoError(t, s.Delete(ctx, ref.Doc(id)))
	snap, err = s.Get(ctx, ref.Doc(id))
	require.NoError(t, err)
	assert.False(t, snap.Exists)
}

func TestDocumentStore_UpdateMissing(t *testing.T) {
	s := setupDocumentStore(t)
	key := docstore.Collection(uuid.New(), "stock").Doc("missing")

	err := s.Update(context.Background(), key, docstore.Document{"quantity": "1"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDocumentStore_ListIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	s := setupDocumentStore(t)
	a, b := uuid.New(), uuid.New()

	for i, code := range []string{"A1", "A2", "A3"} {
		require.NoError(t, s.Set(ctx, docstore.Collection(a, "warehouses").Doc(code), docstore.Document{"code": code, "rank": i}))
	}
	require.NoError(t, s.Set(ctx, docstore.Collection(b, "warehouses").Doc("B1"), docstore.Document{"code": "B1", "rank": 0}))

	all, err := s.List(ctx, docstore.Collection(a, "warehouses"), shared.NewQuery())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	top, err := s.List(ctx, docstore.Collection(a, "warehouses"),
		shared.NewQuery().Where("rank", shared.OpGreater, 0).Order("rank", shared.OrderDesc).WithLimit(1))
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "A3", top[0].Key.ID)

	other, err := s.List(ctx, docstore.Collection(b, "warehouses"), shared.NewQuery())
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "B1", other[0].Key.ID)
}

func TestDocumentStore_NestedPatch(t *testing.T) {
	ctx := context.Background()
	s := setupDocumentStore(t)
	key := docstore.Collection(uuid.New(), "settings").Doc("general")

	require.NoError(t, s.Set(ctx, key, docstore.Document{
		"nextNumbers": map[string]any{"invoice": 1, "payment": 5},
	}))
	require.NoError(t, s.Update(ctx, key, docstore.Document{"nextNumbers.invoice": 2}))

	snap, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"invoice": float64(2), "payment": float64(5)}, snap.Data["nextNumbers"])
}

func TestDocumentStore_TransactionConflictRetries(t *testing.T) {
	ctx := context.Background()
	s := setupDocumentStore(t)
	key := docstore.Collection(uuid.New(), "settings").Doc("general")
	require.NoError(t, s.Set(ctx, key, docstore.Document{"n": 1}))

	attempts := 0
	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		attempts++
		snap, err := tx.Get(key)
		if err != nil {
			return err
		}
		if attempts == 1 {
			require.NoError(t, s.Update(ctx, key, docstore.Document{"n": 100}))
		}
		return tx.Update(key, docstore.Document{"n": snap.Data["n"].(float64) + 1})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	snap, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, float64(101), snap.Data["n"])
}

func TestDocumentStore_RecreatedDocumentGetsNewVersion(t *testing.T) {
	ctx := context.Background()
	s := setupDocumentStore(t)
	key := docstore.Collection(uuid.New(), "warehouses").Doc("wh1")
	require.NoError(t, s.Set(ctx, key, docstore.Document{"code": "WH-001"}))

	attempts := 0
	var first int64
	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		attempts++
		snap, err := tx.Get(key)
		if err != nil {
			return err
		}
		if attempts == 1 {
			first = snap.Version
			require.NoError(t, s.Delete(ctx, key))
			require.NoError(t, s.Set(ctx, key, docstore.Document{"code": "WH-002"}))
		}
		return tx.Update(key, docstore.Document{"isDefault": true})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	snap, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.NotEqual(t, first+1, snap.Version)
	assert.Equal(t, "WH-002", snap.Data["code"])
	assert.Equal(t, true, snap.Data["isDefault"])
}

func TestDocumentStore_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	s := setupDocumentStore(t)
	key := docstore.Collection(uuid.New(), "settings").Doc("general")
	require.NoError(t, s.Set(ctx, key, docstore.Document{"next": 1}))

	const workers = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var issued int
			err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
				snap, err := tx.Get(key)
				if err != nil {
					return err
				}
				issued = int(snap.Data["next"].(float64))
				return tx.Update(key, docstore.Document{"next": issued + 1})
			})
			assert.NoError(t, err)
			mu.Lock()
			got = append(got, issued)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(got)
	for i, n := range got {
		assert.Equal(t, i+1, n)
	}
}

func TestDocumentStore_BackendErrorIsWrapped(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	s := NewDocumentStore(db.DB, testRetryPolicy())

	tenantID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "documents"`).
		WillReturnError(errors.New("connection reset"))

	_, err := s.Get(context.Background(), docstore.Collection(tenantID, "stock").Doc("s1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "organizations/"+tenantID.String()+"/stock/s1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_CommitConditionalUpdate(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	s := NewDocumentStore(db.DB, docstore.RetryPolicy{MaxAttempts: 1})

	tenantID := uuid.New()
	key := docstore.Collection(tenantID, "stock").Doc("s1")
	cols := []string{"tenant_id", "collection", "doc_id", "data", "version", "created_at", "updated_at"}
	row := func() *sqlmock.Rows {
		return sqlmock.NewRows(cols).AddRow(tenantID.String(), "stock", "s1", []byte(`{"quantity":"5"}`), 3, time.Now(), time.Now())
	}

	// transactional read
	mock.ExpectQuery(`SELECT \* FROM "documents"`).WillReturnRows(row())
	mock.ExpectBegin()
	// version check under lock
	mock.ExpectQuery(`SELECT \* FROM "documents" .* FOR UPDATE`).WillReturnRows(row())
	// another writer bumped the version: the conditional update touches nothing
	mock.ExpectExec(`UPDATE "documents" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		if _, err := tx.Get(key); err != nil {
			return err
		}
		return tx.Update(key, docstore.Document{"quantity": "4"})
	})

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
