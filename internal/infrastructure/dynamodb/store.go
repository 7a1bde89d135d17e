package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
)

const (
	attrPK      = "pk"
	attrSK      = "sk"
	attrData    = "data"
	attrVersion = "version"
	attrUpdated = "updated_at"

	// maxTransactItems is the DynamoDB limit for one TransactWriteItems call
	maxTransactItems = 100
)

// item is the stored shape of one document. The partition key groups one
// tenant collection so List is a single Query.
type item struct {
	PK        string         `dynamodbav:"pk"`
	SK        string         `dynamodbav:"sk"`
	Data      map[string]any `dynamodbav:"data"`
	Version   int64          `dynamodbav:"version"`
	UpdatedAt time.Time      `dynamodbav:"updated_at"`
}

func partitionKey(ref docstore.CollectionRef) string {
	return ref.TenantID.String() + "#" + ref.Collection
}

func keyAttrs(key docstore.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: partitionKey(key.Ref())},
		attrSK: &types.AttributeValueMemberS{Value: key.ID},
	}
}

// Store implements docstore.Store on a DynamoDB table with (pk, sk) keys.
// Transactions commit through TransactWriteItems with a version condition per item.
// Versions are per item; a recreated item starts from a fresh random base version.
type Store struct {
	api    API
	table  string
	policy docstore.RetryPolicy
}

// NewStore creates a DynamoDB-backed document store
func NewStore(api API, table string, policy docstore.RetryPolicy) *Store {
	return &Store{api: api, table: table, policy: policy}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) decode(key docstore.Key, raw map[string]types.AttributeValue) (*docstore.Snapshot, error) {
	if len(raw) == 0 {
		return &docstore.Snapshot{Key: key}, nil
	}
	var it item
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item %s: %w", key, err)
	}
	data, err := docstore.NormalizeDocument(it.Data)
	if err != nil {
		return nil, err
	}
	return &docstore.Snapshot{Key: key, Data: data, Version: it.Version, Exists: true}, nil
}

// Get reads one document with a strongly consistent read
func (s *Store) Get(ctx context.Context, key docstore.Key) (*docstore.Snapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            keyAttrs(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", key, err)
	}
	return s.decode(key, out.Item)
}

// List queries the tenant collection partition and applies q to the result
func (s *Store) List(ctx context.Context, ref docstore.CollectionRef, q shared.Query) ([]docstore.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	snaps := make([]docstore.Snapshot, 0)
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: partitionKey(ref)},
			},
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", ref.Path(), err)
		}
		for _, raw := range out.Items {
			var id string
			if sk, ok := raw[attrSK].(*types.AttributeValueMemberS); ok {
				id = sk.Value
			}
			snap, err := s.decode(ref.Doc(id), raw)
			if err != nil {
				return nil, err
			}
			snaps = append(snaps, *snap)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return docstore.Apply(snaps, q)
}

// Add creates a document under a generated id
func (s *Store) Add(ctx context.Context, ref docstore.CollectionRef, data docstore.Document) (string, error) {
	id := docstore.NewID()
	if err := s.Set(ctx, ref.Doc(id), data); err != nil {
		return "", err
	}
	return id, nil
}

// Set creates or replaces a document
func (s *Store) Set(ctx context.Context, key docstore.Key, data docstore.Document) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Set(key, data)
	})
}

// Update merges patch into an existing document
func (s *Store) Update(ctx context.Context, key docstore.Key, patch docstore.Document) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Update(key, patch)
	})
}

// Delete removes a document
func (s *Store) Delete(ctx context.Context, key docstore.Key) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Delete(key)
	})
}

// RunTransaction runs fn and commits its writes atomically, retrying on conflicts
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
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

func (s *Store) commit(ctx context.Context, t *docstore.Transaction) error {
	// current state of written keys that the transaction did not read; the
	// observed version becomes the commit condition
	observed := make(map[docstore.Key]int64)
	staged, keys, err := t.Stage(func(key docstore.Key) (*docstore.Snapshot, error) {
		snap, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if v, read := t.ReadVersion(key); read && v != snap.Version {
			return nil, docstore.ErrConflict
		}
		observed[key] = snap.Version
		return snap, nil
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	items := make([]types.TransactWriteItem, 0, len(keys)+len(t.Reads()))
	for _, key := range keys {
		it, err := s.writeItem(key, observed[key], staged[key], now)
		if err != nil {
			return err
		}
		if it != nil {
			items = append(items, *it)
		}
	}
	for _, r := range t.Reads() {
		if _, written := staged[r.Key]; written {
			continue
		}
		cond, values := versionCondition(r.Version)
		items = append(items, types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
			TableName:                 aws.String(s.table),
			Key:                       keyAttrs(r.Key),
			ConditionExpression:       aws.String(cond),
			ExpressionAttributeValues: values,
		}})
	}
	if len(items) == 0 {
		return nil
	}
	if len(items) > maxTransactItems {
		return fmt.Errorf("transaction touches %d items, DynamoDB allows %d", len(items), maxTransactItems)
	}

	_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if isConflict(err) {
			return docstore.ErrConflict
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) writeItem(key docstore.Key, version int64, next *docstore.Snapshot, now time.Time) (*types.TransactWriteItem, error) {
	cond, values := versionCondition(version)
	if !next.Exists {
		if version == 0 {
			return nil, nil
		}
		return &types.TransactWriteItem{Delete: &types.Delete{
			TableName:                 aws.String(s.table),
			Key:                       keyAttrs(key),
			ConditionExpression:       aws.String(cond),
			ExpressionAttributeValues: values,
		}}, nil
	}

	nextVersion := version + 1
	if version == 0 {
		nextVersion = docstore.InitialVersion()
	}
	av, err := attributevalue.MarshalMap(item{
		PK:        partitionKey(key.Ref()),
		SK:        key.ID,
		Data:      next.Data,
		Version:   nextVersion,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item %s: %w", key, err)
	}
	return &types.TransactWriteItem{Put: &types.Put{
		TableName:                 aws.String(s.table),
		Item:                      av,
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeValues: values,
	}}, nil
}

// versionCondition requires the item to be absent (version 0) or at the given version
func versionCondition(version int64) (string, map[string]types.AttributeValue) {
	if version == 0 {
		return "attribute_not_exists(pk)", nil
	}
	return "version = :v", map[string]types.AttributeValue{
		":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
	}
}

func isConflict(err error) bool {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, r := range canceled.CancellationReasons {
			if code := aws.ToString(r.Code); code == "ConditionalCheckFailed" || code == "TransactionConflict" {
				return true
			}
		}
		return false
	}
	var conflict *types.TransactionConflictException
	return errors.As(err, &conflict)
}
