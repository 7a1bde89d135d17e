package inventory

import (
	"testing"
	"time"

	numberingapp "github.com/erp/backoffice/internal/application/numbering"
	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, time.April, 10, 8, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestStore() *docstore.MemoryStore {
	return docstore.NewMemoryStore(docstore.RetryPolicy{
		MaxAttempts:     500,
		InitialInterval: time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
	})
}

func newTestScope() identity.Scope {
	return identity.NewScope(uuid.New(), identity.Actor{ID: "clerk-1", Name: "Clerk"})
}

func newNumbers(store docstore.Store) *numberingapp.Service {
	return numberingapp.NewService(store, numberingapp.WithClock(func() time.Time { return testNow }))
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !dec(want).Equal(got) {
		t.Errorf("expected %s, got %s %v", want, got.String(), msgAndArgs)
	}
}
