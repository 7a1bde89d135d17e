// Package docstore defines the tenant-partitioned document store used by the
// application services, its optimistic transaction model and an in-memory implementation.
package docstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// Document is a schemaless JSON-compatible record
type Document map[string]any

// Clone returns a deep copy of the document
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case Document:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// CollectionRef names a collection within one tenant
type CollectionRef struct {
	TenantID   uuid.UUID
	Collection string
}

// Collection creates a collection reference
func Collection(tenantID uuid.UUID, name string) CollectionRef {
	return CollectionRef{TenantID: tenantID, Collection: name}
}

// Doc returns the key of a document in the collection
func (c CollectionRef) Doc(id string) Key {
	return Key{TenantID: c.TenantID, Collection: c.Collection, ID: id}
}

// Path renders organizations/{tenant}/{collection}
func (c CollectionRef) Path() string {
	return fmt.Sprintf("organizations/%s/%s", c.TenantID, c.Collection)
}

// Validate checks that the reference names a tenant and a collection
func (c CollectionRef) Validate() error {
	if c.TenantID == uuid.Nil {
		return shared.ErrTenantRequired
	}
	if c.Collection == "" {
		return fmt.Errorf("docstore: collection name is required")
	}
	return nil
}

// Key identifies one document. Documents of different tenants never share a key.
type Key struct {
	TenantID   uuid.UUID
	Collection string
	ID         string
}

// Ref returns the collection holding the key
func (k Key) Ref() CollectionRef {
	return CollectionRef{TenantID: k.TenantID, Collection: k.Collection}
}

// Path renders organizations/{tenant}/{collection}/{id}
func (k Key) Path() string {
	return k.Ref().Path() + "/" + k.ID
}

// String implements fmt.Stringer
func (k Key) String() string {
	return k.Path()
}

// Validate checks that every key component is present
func (k Key) Validate() error {
	if err := k.Ref().Validate(); err != nil {
		return err
	}
	if k.ID == "" {
		return fmt.Errorf("docstore: document id is required")
	}
	return nil
}

// Snapshot is a document as read from the store. Version is 0 when the document does not exist.
type Snapshot struct {
	Key     Key
	Data    Document
	Version int64
	Exists  bool
}

// Store is a document store partitioned by tenant
type Store interface {
	// Get reads one document. A missing document is returned with Exists=false and no error.
	Get(ctx context.Context, key Key) (*Snapshot, error)
	// List returns the documents of a collection matching q
	List(ctx context.Context, ref CollectionRef, q shared.Query) ([]Snapshot, error)
	// Add creates a document under a generated id
	Add(ctx context.Context, ref CollectionRef, data Document) (string, error)
	// Set creates or replaces a document
	Set(ctx context.Context, key Key, data Document) error
	// Update merges patch into an existing document; fails with NOT_FOUND when absent.
	// Dotted patch keys address nested fields.
	Update(ctx context.Context, key Key, patch Document) error
	// Delete removes a document; deleting a missing document is not an error
	Delete(ctx context.Context, key Key) error
	// RunTransaction runs fn with optimistic concurrency control. fn is re-run when the
	// commit conflicts with a concurrent writer, so it must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the store inside a transaction. Reads must precede writes.
// Writes are buffered and applied atomically on commit.
type Tx interface {
	Get(key Key) (*Snapshot, error)
	Set(key Key, data Document) error
	Update(key Key, patch Document) error
	Delete(key Key) error
}

var (
	// ErrConflict signals that a commit lost an optimistic race and the transaction may be retried
	ErrConflict = errors.New("docstore: transaction conflict")

	// ErrReadAfterWrite is returned when a transaction reads after it has written
	ErrReadAfterWrite = errors.New("docstore: transaction reads must precede writes")
)

// NotFound builds the NOT_FOUND domain error for a key
func NotFound(key Key) error {
	return fmt.Errorf("%w: %s", shared.ErrNotFound, key.Path())
}

// NewID returns a fresh document id
func NewID() string {
	return uuid.NewString()
}

// InitialVersion returns the version of a newly created document. Each creation
// starts from a random base, so a document deleted and recreated under the same
// id never repeats a version a concurrent transaction may have read.
// The base stays below 2^52 to leave room for increments.
func InitialVersion() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[:8])>>12) + 1
}
