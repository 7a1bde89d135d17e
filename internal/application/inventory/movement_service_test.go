package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMovementService() *MovementService {
	store := newTestStore()
	svc := NewMovementService(store, newNumbers(store))
	svc.now = func() time.Time { return testNow }
	return svc
}

func day(d int) *time.Time {
	t := time.Date(2025, time.April, d, 9, 0, 0, 0, time.UTC)
	return &t
}

func TestMovementService_Create(t *testing.T) {
	svc := newMovementService()
	scope := newTestScope()
	ctx := context.Background()

	m, err := svc.Create(ctx, scope, CreateMovementRequest{
		Type:          inventory.MovementTypeIn,
		ProductID:     "p1",
		ToWarehouseID: "w1",
		Quantity:      dec("4"),
		UnitCost:      dec("2.25"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "STM-202504-0001", m.MovementNumber)
	assert.Equal(t, testNow, m.Date)
	assert.Equal(t, inventory.DefaultUnit, m.Unit)
	assertDecimal(t, "9", m.TotalCost)

	second, err := svc.Create(ctx, scope, CreateMovementRequest{
		Type:            inventory.MovementTypeOut,
		ProductID:       "p1",
		FromWarehouseID: "w1",
		Quantity:        dec("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "STM-202504-0002", second.MovementNumber)
}

func TestMovementService_Create_Invalid(t *testing.T) {
	svc := newMovementService()
	scope := newTestScope()

	tests := []struct {
		name string
		req  CreateMovementRequest
	}{
		{"unknown type", CreateMovementRequest{Type: "teleport", ProductID: "p1", Quantity: dec("1")}},
		{"zero quantity", CreateMovementRequest{Type: inventory.MovementTypeIn, ProductID: "p1", ToWarehouseID: "w1"}},
		{"in without destination", CreateMovementRequest{Type: inventory.MovementTypeIn, ProductID: "p1", Quantity: dec("1")}},
		{"transfer to itself", CreateMovementRequest{Type: inventory.MovementTypeTransfer, ProductID: "p1", FromWarehouseID: "w1", ToWarehouseID: "w1", Quantity: dec("1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), scope, tt.req)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}

	// rejected movements do not consume numbers
	m, err := svc.Create(context.Background(), scope, CreateMovementRequest{
		Type: inventory.MovementTypeAdjustment, ProductID: "p1", Quantity: dec("1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "STM-202504-0001", m.MovementNumber)
}

func seedMovements(t *testing.T, svc *MovementService, scope identity.Scope) []*inventory.StockMovement {
	t.Helper()
	reqs := []CreateMovementRequest{
		{Date: day(1), Type: inventory.MovementTypeIn, ProductID: "p1", ToWarehouseID: "w1", Quantity: dec("10")},
		{Date: day(2), Type: inventory.MovementTypeTransfer, ProductID: "p1", FromWarehouseID: "w1", ToWarehouseID: "w2", Quantity: dec("4")},
		{Date: day(3), Type: inventory.MovementTypeOut, ProductID: "p2", FromWarehouseID: "w2", Quantity: dec("1")},
		{Date: day(4), Type: inventory.MovementTypeIn, ProductID: "p2", ToWarehouseID: "w3", Quantity: dec("7")},
		{Date: day(5), Type: inventory.MovementTypeAdjustment, ProductID: "p1", ToWarehouseID: "w1", Quantity: dec("2")},
	}
	out := make([]*inventory.StockMovement, 0, len(reqs))
	for _, req := range reqs {
		m, err := svc.Create(context.Background(), scope, req)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func ids(movements []inventory.StockMovement) []string {
	out := make([]string, len(movements))
	for i := range movements {
		out[i] = movements[i].ID
	}
	return out
}

func TestMovementService_Queries(t *testing.T) {
	svc := newMovementService()
	scope := newTestScope()
	ctx := context.Background()
	seeded := seedMovements(t, svc, scope)

	byProduct, err := svc.GetByProduct(ctx, scope, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[4].ID, seeded[1].ID, seeded[0].ID}, ids(byProduct))

	// w2 is the destination of the transfer and the source of the issue
	byWarehouse, err := svc.GetByWarehouse(ctx, scope, "w2")
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[2].ID, seeded[1].ID}, ids(byWarehouse))

	byWarehouse, err = svc.GetByWarehouse(ctx, scope, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[4].ID, seeded[1].ID, seeded[0].ID}, ids(byWarehouse))

	ins, err := svc.GetByType(ctx, scope, inventory.MovementTypeIn)
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[3].ID, seeded[0].ID}, ids(ins))
	_, err = svc.GetByType(ctx, scope, "bogus")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	ranged, err := svc.GetByDateRange(ctx, scope, *day(2), *day(4))
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[3].ID, seeded[2].ID, seeded[1].ID}, ids(ranged))
	_, err = svc.GetByDateRange(ctx, scope, *day(4), *day(2))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	recent, err := svc.GetRecent(ctx, scope, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[4].ID, seeded[3].ID}, ids(recent))

	counts, err := svc.CountByType(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, map[inventory.MovementType]int{
		inventory.MovementTypeIn:         2,
		inventory.MovementTypeOut:        1,
		inventory.MovementTypeTransfer:   1,
		inventory.MovementTypeAdjustment: 1,
	}, counts)

	filtered, err := svc.List(ctx, scope, MovementListFilter{WarehouseID: "w1", Type: string(inventory.MovementTypeIn)})
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[0].ID}, ids(filtered))
}

func TestMovementService_TenantIsolation(t *testing.T) {
	svc := newMovementService()
	scope := newTestScope()
	seedMovements(t, svc, scope)

	other, err := svc.GetRecent(context.Background(), newTestScope(), 0)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = svc.GetRecent(context.Background(), identity.Scope{}, 5)
	assert.ErrorIs(t, err, shared.ErrTenantRequired)
}
