// Package scoped provides the tenant-scoped data access guard shared by every
// entity collection.
package scoped

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/identity"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Repository mediates reads and writes of one collection. Every call names the
// tenant through an explicit scope and every write is audit-stamped here; audit
// values supplied by callers are discarded.
type Repository[T any] struct {
	store      docstore.Store
	collection string
	now        func() time.Time
}

// NewRepository creates a repository for collection
func NewRepository[T any](store docstore.Store, collection string) *Repository[T] {
	return &Repository[T]{store: store, collection: collection, now: time.Now}
}

// Collection returns the collection name
func (r *Repository[T]) Collection() string {
	return r.collection
}

// Ref returns the collection reference within the scope's tenant
func (r *Repository[T]) Ref(scope identity.Scope) docstore.CollectionRef {
	return docstore.Collection(scope.TenantID, r.collection)
}

// Key returns the key of document id within the scope's tenant
func (r *Repository[T]) Key(scope identity.Scope, id string) docstore.Key {
	return r.Ref(scope).Doc(id)
}

// Create stamps the audit fields, stores entity under a new id and returns the id.
// entity is refreshed with the stored id and audit fields.
func (r *Repository[T]) Create(ctx context.Context, scope identity.Scope, entity *T) (string, error) {
	if err := scope.RequireActor(); err != nil {
		return "", err
	}
	doc, err := r.createDocument(scope, entity)
	if err != nil {
		return "", err
	}
	id, err := r.store.Add(ctx, r.Ref(scope), doc)
	if err != nil {
		logger.L(ctx).Error("failed to create document", zap.String("collection", r.collection), zap.Error(err))
		return "", err
	}
	return id, r.refresh(entity, id, doc)
}

// CreateWithID stores entity under a caller-chosen id, replacing any document there
func (r *Repository[T]) CreateWithID(ctx context.Context, scope identity.Scope, id string, entity *T) error {
	if err := scope.RequireActor(); err != nil {
		return err
	}
	doc, err := r.createDocument(scope, entity)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.Key(scope, id), doc); err != nil {
		logger.L(ctx).Error("failed to create document", zap.String("collection", r.collection), zap.String("id", id), zap.Error(err))
		return err
	}
	return r.refresh(entity, id, doc)
}

// CreateDocument builds the stored form of a new entity; transactional writers use
// it to create documents inside a store transaction.
func (r *Repository[T]) CreateDocument(scope identity.Scope, entity *T) (docstore.Document, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	return r.createDocument(scope, entity)
}

func (r *Repository[T]) createDocument(scope identity.Scope, entity *T) (docstore.Document, error) {
	doc, err := docstore.Encode(entity)
	if err != nil {
		return nil, err
	}
	delete(doc, shared.FieldID)
	now := r.now().UTC()
	doc[shared.FieldCreatedAt] = now
	doc[shared.FieldUpdatedAt] = now
	doc[shared.FieldCreatedBy] = scope.Actor.ID
	doc[shared.FieldUpdatedBy] = scope.Actor.ID
	return docstore.NormalizeDocument(doc)
}

func (r *Repository[T]) refresh(entity *T, id string, doc docstore.Document) error {
	withID := doc.Clone()
	withID[shared.FieldID] = id
	return docstore.Decode(withID, entity)
}

// GetByID returns the document with id in the scope's tenant. found is false,
// with a nil error, when no such document exists.
func (r *Repository[T]) GetByID(ctx context.Context, scope identity.Scope, id string) (*T, bool, error) {
	if err := scope.RequireTenant(); err != nil {
		return nil, false, err
	}
	snap, err := r.store.Get(ctx, r.Key(scope, id))
	if err != nil {
		return nil, false, err
	}
	if !snap.Exists {
		return nil, false, nil
	}
	entity, err := r.Decode(*snap)
	if err != nil {
		return nil, false, err
	}
	return entity, true, nil
}

// MustGet is GetByID with absence reported as NOT_FOUND
func (r *Repository[T]) MustGet(ctx context.Context, scope identity.Scope, id string) (*T, error) {
	entity, found, err := r.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, docstore.NotFound(r.Key(scope, id))
	}
	return entity, nil
}

// GetAll returns the documents matching q
func (r *Repository[T]) GetAll(ctx context.Context, scope identity.Scope, q shared.Query) ([]T, error) {
	snaps, err := r.list(ctx, scope, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(snaps))
	for i := range snaps {
		entity, err := r.Decode(snaps[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *entity)
	}
	return out, nil
}

// GetWhere returns the documents whose field satisfies op value
func (r *Repository[T]) GetWhere(ctx context.Context, scope identity.Scope, field string, op shared.Operator, value any) ([]T, error) {
	return r.GetAll(ctx, scope, shared.NewQuery().Where(field, op, value))
}

// Count returns the number of documents matching q
func (r *Repository[T]) Count(ctx context.Context, scope identity.Scope, q shared.Query) (int, error) {
	snaps, err := r.list(ctx, scope, q)
	if err != nil {
		return 0, err
	}
	return len(snaps), nil
}

func (r *Repository[T]) list(ctx context.Context, scope identity.Scope, q shared.Query) ([]docstore.Snapshot, error) {
	if err := scope.RequireTenant(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return r.store.List(ctx, r.Ref(scope), q)
}

// Update merges patch into the document and re-stamps updatedAt and updatedBy.
// It fails with NOT_FOUND when the document does not exist in the scope's tenant.
func (r *Repository[T]) Update(ctx context.Context, scope identity.Scope, id string, patch docstore.Document) error {
	stamped, err := r.UpdatePatch(scope, patch)
	if err != nil {
		return err
	}
	if err := r.store.Update(ctx, r.Key(scope, id), stamped); err != nil {
		logger.L(ctx).Warn("failed to update document", zap.String("collection", r.collection), zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// UpdatePatch strips identity and audit fields from patch and adds the update stamp.
// Transactional writers use it to update documents inside a store transaction.
func (r *Repository[T]) UpdatePatch(scope identity.Scope, patch docstore.Document) (docstore.Document, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	out := make(docstore.Document, len(patch)+2)
	for k, v := range patch {
		if isProtectedField(k) {
			continue
		}
		out[k] = v
	}
	out[shared.FieldUpdatedAt] = r.now().UTC()
	out[shared.FieldUpdatedBy] = scope.Actor.ID
	return docstore.NormalizeDocument(out)
}

// isProtectedField reports whether a patch key targets the id or an audit field.
// Dotted keys are nested paths, so only the first segment counts.
func isProtectedField(key string) bool {
	head, _, _ := strings.Cut(key, ".")
	switch head {
	case shared.FieldID, shared.FieldCreatedAt, shared.FieldCreatedBy, shared.FieldUpdatedAt, shared.FieldUpdatedBy:
		return true
	}
	return false
}

// SoftDelete marks the document inactive
func (r *Repository[T]) SoftDelete(ctx context.Context, scope identity.Scope, id string) error {
	return r.Update(ctx, scope, id, docstore.Document{shared.FieldIsActive: false})
}

// Remove physically deletes the document
func (r *Repository[T]) Remove(ctx context.Context, scope identity.Scope, id string) error {
	if err := scope.RequireTenant(); err != nil {
		return err
	}
	return r.store.Delete(ctx, r.Key(scope, id))
}

// BulkError reports the item at which a bulk operation stopped. Items before
// Index were committed.
type BulkError struct {
	Index int
	Err   error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk operation failed at item %d: %v", e.Index, e.Err)
}

func (e *BulkError) Unwrap() error {
	return e.Err
}

// BulkCreate creates entities one after another and returns the ids created.
// It stops at the first failure; earlier items stay committed.
func (r *Repository[T]) BulkCreate(ctx context.Context, scope identity.Scope, entities []*T) ([]string, error) {
	if err := scope.RequireActor(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entities))
	for i, entity := range entities {
		id, err := r.Create(ctx, scope, entity)
		if err != nil {
			return ids, &BulkError{Index: i, Err: err}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Patch is one item of a bulk update
type Patch struct {
	ID   string
	Data docstore.Document
}

// BulkUpdate applies patches one after another, stopping at the first failure
func (r *Repository[T]) BulkUpdate(ctx context.Context, scope identity.Scope, patches []Patch) error {
	if err := scope.RequireActor(); err != nil {
		return err
	}
	for i, p := range patches {
		if err := r.Update(ctx, scope, p.ID, p.Data); err != nil {
			return &BulkError{Index: i, Err: err}
		}
	}
	return nil
}

// Exists reports whether the document exists. Lookup failures are logged and read as false.
func (r *Repository[T]) Exists(ctx context.Context, scope identity.Scope, id string) bool {
	_, found, err := r.GetByID(ctx, scope, id)
	if err != nil {
		logger.L(ctx).Warn("existence check failed", zap.String("collection", r.collection), zap.String("id", id), zap.Error(err))
		return false
	}
	return found
}

// Decode converts a snapshot into an entity, filling in its id
func (r *Repository[T]) Decode(snap docstore.Snapshot) (*T, error) {
	doc := snap.Data.Clone()
	if doc == nil {
		doc = docstore.Document{}
	}
	doc[shared.FieldID] = snap.Key.ID
	var entity T
	if err := docstore.Decode(doc, &entity); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", snap.Key, err)
	}
	return &entity, nil
}
