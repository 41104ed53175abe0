package documents

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
)

type docKey struct {
	owner, collection, id string
}

// MemoryRepository keeps encoded documents in a map. It is used by the
// memory storage mode of the server and by tests.
type MemoryRepository struct {
	mu   sync.Mutex
	docs map[docKey]string
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[docKey]string)}
}

// WithinTx runs fn against a private copy of the documents and publishes
// the copy only when fn succeeds. Other calls wait until fn returns.
func (r *MemoryRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &MemoryRepository{docs: maps.Clone(r.docs)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.docs = tx.docs
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, owner, collection, id string) (remote.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.docs[docKey{owner, collection, id}]
	if !ok {
		return remote.Document{}, fmt.Errorf("%w: %s/%s", common.ErrNotFound, collection, id)
	}
	fields, err := decodeFields([]byte(raw))
	if err != nil {
		return remote.Document{}, err
	}
	return remote.Document{ID: id, Fields: fields}, nil
}

func (r *MemoryRepository) Find(ctx context.Context, owner, collection, field string, value any) ([]remote.Document, error) {
	want, err := remote.NormalizeValue(value)
	if err != nil {
		return nil, err
	}
	return r.selectDocuments(owner, collection, func(f remote.Fields) bool {
		got, ok := f[field]
		return ok && reflect.DeepEqual(got, want)
	})
}

func (r *MemoryRepository) List(ctx context.Context, owner, collection string) ([]remote.Document, error) {
	return r.selectDocuments(owner, collection, nil)
}

func (r *MemoryRepository) selectDocuments(owner, collection string, keep func(remote.Fields) bool) ([]remote.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []remote.Document{}
	for k, raw := range r.docs {
		if k.owner != owner || k.collection != collection {
			continue
		}
		fields, err := decodeFields([]byte(raw))
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(fields) {
			result = append(result, remote.Document{ID: k.id, Fields: fields})
		}
	}
	slices.SortFunc(result, func(a, b remote.Document) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

func (r *MemoryRepository) Put(ctx context.Context, owner, collection, id string, fields remote.Fields) error {
	raw, err := encodeFields(fields)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[docKey{owner, collection, id}] = raw
	return nil
}

func (r *MemoryRepository) Merge(ctx context.Context, owner, collection, id string, fields remote.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := docKey{owner, collection, id}
	raw, ok := r.docs[k]
	if !ok {
		return fmt.Errorf("%w: %s/%s", common.ErrNotFound, collection, id)
	}
	current, err := decodeFields([]byte(raw))
	if err != nil {
		return err
	}
	maps.Copy(current, fields)
	merged, err := encodeFields(current)
	if err != nil {
		return err
	}
	r.docs[k] = merged
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, owner, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, docKey{owner, collection, id})
	return nil
}
