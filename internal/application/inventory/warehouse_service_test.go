package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWarehouseService() (*WarehouseService, *docstore.MemoryStore) {
	store := newTestStore()
	return NewWarehouseService(store, newNumbers(store)), store
}

func countDefaults(t *testing.T, svc *WarehouseService, scope identity.Scope) []inventory.Warehouse {
	t.Helper()
	defaults, err := svc.warehouses.GetWhere(context.Background(), scope, inventory.FieldIsDefault, shared.OpEqual, true)
	require.NoError(t, err)
	return defaults
}

func TestWarehouseService_Create(t *testing.T) {
	svc, _ := newWarehouseService()
	scope := newTestScope()
	ctx := context.Background()

	wh, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: " main ", Name: "Main Warehouse"})
	require.NoError(t, err)
	assert.NotEmpty(t, wh.ID)
	assert.Equal(t, "MAIN", wh.Code)
	assert.True(t, wh.IsActive)
	assert.False(t, wh.IsDefault)

	_, err = svc.Create(ctx, scope, CreateWarehouseRequest{Code: "MAIN", Name: "Again"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// codes are unique per tenant only
	_, err = svc.Create(ctx, newTestScope(), CreateWarehouseRequest{Code: "MAIN", Name: "Elsewhere"})
	assert.NoError(t, err)
}

func TestWarehouseService_Create_GeneratesCode(t *testing.T) {
	svc, _ := newWarehouseService()
	scope := newTestScope()

	first, err := svc.Create(context.Background(), scope, CreateWarehouseRequest{Name: "North"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), scope, CreateWarehouseRequest{Name: "South"})
	require.NoError(t, err)
	assert.Equal(t, "WH-001", first.Code)
	assert.Equal(t, "WH-002", second.Code)
}

func TestWarehouseService_Create_Validation(t *testing.T) {
	svc, store := newWarehouseService()
	scope := newTestScope()

	_, err := svc.Create(context.Background(), scope, CreateWarehouseRequest{Code: "X", Name: "  "})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.Create(context.Background(), identity.Scope{TenantID: scope.TenantID}, CreateWarehouseRequest{Code: "X", Name: "X"})
	assert.ErrorIs(t, err, shared.ErrActorRequired)
	assert.Equal(t, 0, store.Len())
}

func TestWarehouseService_DefaultIsUnique(t *testing.T) {
	svc, store := newWarehouseService()
	scope := newTestScope()
	ctx := context.Background()

	a, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: "A", Name: "A", IsDefault: true})
	require.NoError(t, err)
	assert.True(t, a.IsDefault)
	b, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: "B", Name: "B", IsDefault: true})
	require.NoError(t, err)

	defaults := countDefaults(t, svc, scope)
	require.Len(t, defaults, 1)
	assert.Equal(t, b.ID, defaults[0].ID)

	require.NoError(t, svc.SetDefault(ctx, scope, a.ID))
	def, found, err := svc.GetDefault(ctx, scope)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, a.ID, def.ID)
	assert.Len(t, countDefaults(t, svc, scope), 1)

	marker, err := store.Get(ctx, markerKey(scope))
	require.NoError(t, err)
	assert.Equal(t, a.ID, marker.Data[inventory.FieldWarehouseID])
}

func TestWarehouseService_ConcurrentSetDefault(t *testing.T) {
	svc, _ := newWarehouseService()
	scope := newTestScope()
	ctx := context.Background()

	var ids []string
	for _, code := range []string{"A", "B", "C", "D", "E", "F"} {
		wh, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: code, Name: code})
		require.NoError(t, err)
		ids = append(ids, wh.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, svc.SetDefault(ctx, scope, id))
		}(id)
	}
	wg.Wait()

	assert.Len(t, countDefaults(t, svc, scope), 1)
}

func TestWarehouseService_SetDefault_Missing(t *testing.T) {
	svc, _ := newWarehouseService()
	scope := newTestScope()

	err := svc.SetDefault(context.Background(), scope, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, found, err := svc.GetDefault(context.Background(), scope)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWarehouseService_Update(t *testing.T) {
	svc, _ := newWarehouseService()
	scope := newTestScope()
	ctx := context.Background()

	a, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: "A", Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, scope, CreateWarehouseRequest{Code: "B", Name: "B"})
	require.NoError(t, err)

	taken := "b"
	_, err = svc.Update(ctx, scope, a.ID, UpdateWarehouseRequest{Code: &taken})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	name := "Alpha"
	isDefault := true
	updated, err := svc.Update(ctx, scope, a.ID, UpdateWarehouseRequest{Name: &name, IsDefault: &isDefault})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", updated.Name)
	assert.Equal(t, "A", updated.Code)
	assert.True(t, updated.IsDefault)

	isDefault = false
	updated, err = svc.Update(ctx, scope, a.ID, UpdateWarehouseRequest{IsDefault: &isDefault})
	require.NoError(t, err)
	assert.False(t, updated.IsDefault)
	assert.Empty(t, countDefaults(t, svc, scope))

	_, err = svc.Update(ctx, scope, "missing", UpdateWarehouseRequest{Name: &name})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestWarehouseService_DeleteAndActive(t *testing.T) {
	svc, _ := newWarehouseService()
	scope := newTestScope()
	ctx := context.Background()

	a, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: "A", Name: "Zulu"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, scope, CreateWarehouseRequest{Code: "B", Name: "Bravo"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, scope, a.ID))
	active, err := svc.ListActive(ctx, scope)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Bravo", active[0].Name)

	all, err := svc.List(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	deleted, err := svc.GetByID(ctx, scope, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted.IsActive)

	byCode, err := svc.GetByCode(ctx, scope, "b")
	require.NoError(t, err)
	assert.Equal(t, "Bravo", byCode.Name)
}

func TestWarehouseService_DeleteDefault(t *testing.T) {
	svc, store := newWarehouseService()
	scope := newTestScope()
	ctx := context.Background()

	a, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: "A", Name: "A", IsDefault: true})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, scope, a.ID))

	_, found, err := svc.GetDefault(ctx, scope)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, countDefaults(t, svc, scope))

	deleted, err := svc.GetByID(ctx, scope, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted.IsActive)
	assert.False(t, deleted.IsDefault)

	marker, err := store.Get(ctx, markerKey(scope))
	require.NoError(t, err)
	assert.False(t, marker.Exists)

	assert.ErrorIs(t, svc.Delete(ctx, scope, "missing"), shared.ErrNotFound)
}

func TestWarehouseService_DeactivateDefault(t *testing.T) {
	svc, store := newWarehouseService()
	scope := newTestScope()
	ctx := context.Background()

	a, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: "A", Name: "A", IsDefault: true})
	require.NoError(t, err)

	inactive, isDefault := false, true
	_, err = svc.Update(ctx, scope, a.ID, UpdateWarehouseRequest{IsActive: &inactive, IsDefault: &isDefault})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	updated, err := svc.Update(ctx, scope, a.ID, UpdateWarehouseRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.False(t, updated.IsDefault)

	_, found, err := svc.GetDefault(ctx, scope)
	require.NoError(t, err)
	assert.False(t, found)

	marker, err := store.Get(ctx, markerKey(scope))
	require.NoError(t, err)
	assert.False(t, marker.Exists)
}

func TestWarehouseService_CheckCodeExists(t *testing.T) {
	svc, _ := newWarehouseService()
	scope := newTestScope()
	ctx := context.Background()

	a, err := svc.Create(ctx, scope, CreateWarehouseRequest{Code: "A", Name: "A"})
	require.NoError(t, err)

	assert.True(t, svc.CheckCodeExists(ctx, scope, "a", ""))
	assert.False(t, svc.CheckCodeExists(ctx, scope, "A", a.ID))
	assert.False(t, svc.CheckCodeExists(ctx, scope, "Z", ""))
	// a lookup failure reads as false
	assert.False(t, svc.CheckCodeExists(ctx, identity.Scope{}, "A", ""))
}

// failingNumbers fails every number request
type failingNumbers struct{}

func (failingNumbers) GenerateNumber(context.Context, identity.Scope, numbering.DocumentType) (string, error) {
	return "", errors.New("sequence unavailable")
}

func TestWarehouseService_Create_NumberFailure(t *testing.T) {
	store := newTestStore()
	svc := NewWarehouseService(store, failingNumbers{})

	_, err := svc.Create(context.Background(), newTestScope(), CreateWarehouseRequest{Name: "North"})
	assert.EqualError(t, err, "sequence unavailable")
	assert.Equal(t, 0, store.Len())
}
