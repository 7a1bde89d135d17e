package docstore

import (
	"context"
	"fmt"
)

// WriteOp is the kind of a buffered transaction write
type WriteOp int

const (
	OpSet WriteOp = iota + 1
	OpUpdate
	OpDelete
)

// Write is one buffered mutation
type Write struct {
	Op   WriteOp
	Key  Key
	Data Document
}

// Read records the version a transaction observed for a key
type Read struct {
	Key     Key
	Version int64
}

// ReadFunc loads the committed state of a key
type ReadFunc func(ctx context.Context, key Key) (*Snapshot, error)

// Transaction buffers reads and writes for an optimistic commit.
// Backends create one per attempt and validate Reads before applying Writes.
type Transaction struct {
	ctx    context.Context
	read   ReadFunc
	reads  map[Key]Read
	order  []Key
	writes []Write
}

// NewTransaction creates a transaction reading through read
func NewTransaction(ctx context.Context, read ReadFunc) *Transaction {
	return &Transaction{ctx: ctx, read: read, reads: make(map[Key]Read)}
}

// Get reads a document and records its version
func (t *Transaction) Get(key Key) (*Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	snap, err := t.read(t.ctx, key)
	if err != nil {
		return nil, err
	}
	if prev, seen := t.reads[key]; seen && prev.Version != snap.Version {
		return nil, ErrConflict
	}
	if _, seen := t.reads[key]; !seen {
		t.order = append(t.order, key)
	}
	t.reads[key] = Read{Key: key, Version: snap.Version}
	return snap, nil
}

// Set buffers a create-or-replace
func (t *Transaction) Set(key Key, data Document) error {
	return t.buffer(OpSet, key, data)
}

// Update buffers a merge; the document must exist at commit time
func (t *Transaction) Update(key Key, patch Document) error {
	return t.buffer(OpUpdate, key, patch)
}

// Delete buffers a removal
func (t *Transaction) Delete(key Key) error {
	return t.buffer(OpDelete, key, nil)
}

func (t *Transaction) buffer(op WriteOp, key Key, data Document) error {
	if err := key.Validate(); err != nil {
		return err
	}
	norm, err := NormalizeDocument(data)
	if err != nil {
		return err
	}
	if op == OpDelete {
		norm = nil
	}
	t.writes = append(t.writes, Write{Op: op, Key: key, Data: norm})
	return nil
}

// Reads returns the observed versions in read order
func (t *Transaction) Reads() []Read {
	out := make([]Read, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.reads[k])
	}
	return out
}

// Writes returns the buffered writes in call order
func (t *Transaction) Writes() []Write {
	return t.writes
}

// ReadVersion returns the version observed for key, if it was read
func (t *Transaction) ReadVersion(key Key) (int64, bool) {
	r, ok := t.reads[key]
	return r.Version, ok
}

// Stage folds the buffered writes over the current state of each touched key and
// returns the final state per key (nil data means deleted). current supplies the
// committed snapshot of a key.
func (t *Transaction) Stage(current func(Key) (*Snapshot, error)) (map[Key]*Snapshot, []Key, error) {
	staged := make(map[Key]*Snapshot)
	var keys []Key
	for _, w := range t.writes {
		cur, ok := staged[w.Key]
		if !ok {
			snap, err := current(w.Key)
			if err != nil {
				return nil, nil, err
			}
			cp := *snap
			cp.Data = snap.Data.Clone()
			cur = &cp
			staged[w.Key] = cur
			keys = append(keys, w.Key)
		}
		switch w.Op {
		case OpSet:
			cur.Data = w.Data.Clone()
			cur.Exists = true
		case OpUpdate:
			if !cur.Exists {
				return nil, nil, NotFound(w.Key)
			}
			cur.Data = Merge(cur.Data, w.Data)
		case OpDelete:
			cur.Data = nil
			cur.Exists = false
		default:
			return nil, nil, fmt.Errorf("docstore: unknown write op %d", w.Op)
		}
	}
	return staged, keys, nil
}
