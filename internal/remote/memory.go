package remote

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/dmitrijs2005/phototimeline/internal/common"
)

// Call describes one request received by a MemoryStore.
type Call struct {
	Method     string
	Collection string
	ID         string
}

// Method names recorded in Call.Method.
const (
	MethodPing   = "ping"
	MethodGet    = "get"
	MethodQuery  = "query"
	MethodList   = "list"
	MethodSet    = "set"
	MethodUpdate = "update"
	MethodDelete = "delete"
	MethodCommit = "commit"
)

// MemoryStore is an in-process Store. It stores normalized documents, so
// callers observe the same value shapes as over the network, and it can
// record calls and inject failures for tests.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string]map[string]Fields
	calls []Call
	fault func(Call) error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]Fields)}
}

// InjectFault installs fn, which runs before every call; a non-nil result
// fails the call without touching data. Pass nil to remove it.
func (m *MemoryStore) InjectFault(fn func(Call) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

// Calls returns the calls received so far, in order.
func (m *MemoryStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// ResetCalls forgets recorded calls.
func (m *MemoryStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// begin records c and evaluates the fault hook. The caller holds m.mu.
func (m *MemoryStore) begin(c Call) error {
	m.calls = append(m.calls, c)
	if m.fault != nil {
		if err := m.fault(c); err != nil {
			return common.NewRemoteError(c.Method, c.Collection, err)
		}
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return common.NewRemoteError(MethodPing, "", err)
	}
	return m.begin(Call{Method: MethodPing})
}

func (m *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: m, name: name}
}

func (m *MemoryStore) Batch() Batch {
	return NewBuffer(m.commit)
}

func (m *MemoryStore) commit(ctx context.Context, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return common.NewRemoteError(MethodCommit, "", err)
	}
	if err := m.begin(Call{Method: MethodCommit}); err != nil {
		return err
	}

	staged := make([]Op, len(ops))
	for i, op := range ops {
		if op.Collection == "" || op.ID == "" {
			return common.NewRemoteError(MethodCommit, op.Collection, fmt.Errorf("%w: op %d lacks collection or id", common.ErrBadRequest, i))
		}
		staged[i] = op
		if op.Kind == OpSet {
			f, err := Normalize(op.Fields)
			if err != nil {
				return common.NewRemoteError(MethodCommit, op.Collection, err)
			}
			staged[i].Fields = f
		} else if op.Kind != OpDelete {
			return common.NewRemoteError(MethodCommit, op.Collection, fmt.Errorf("%w: unknown op %q", common.ErrBadRequest, op.Kind))
		}
	}

	for _, op := range staged {
		switch op.Kind {
		case OpSet:
			m.bucket(op.Collection)[op.ID] = op.Fields
		case OpDelete:
			delete(m.bucket(op.Collection), op.ID)
		}
	}
	return nil
}

func (m *MemoryStore) bucket(name string) map[string]Fields {
	b, ok := m.data[name]
	if !ok {
		b = make(map[string]Fields)
		m.data[name] = b
	}
	return b
}

func (m *MemoryStore) sorted(name string, keep func(Fields) bool) []Document {
	b := m.data[name]
	ids := slices.Sorted(maps.Keys(b))
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		if keep == nil || keep(b[id]) {
			out = append(out, Document{ID: id, Fields: maps.Clone(b[id])})
		}
	}
	return out
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) start(ctx context.Context, method, id string) error {
	if err := ctx.Err(); err != nil {
		return common.NewRemoteError(method, c.name, err)
	}
	return c.store.begin(Call{Method: method, Collection: c.name, ID: id})
}

func (c *memoryCollection) Get(ctx context.Context, id string) (Document, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.start(ctx, MethodGet, id); err != nil {
		return Document{}, err
	}
	f, ok := c.store.data[c.name][id]
	if !ok {
		return Document{}, common.NewRemoteError(MethodGet, c.name, common.ErrNotFound)
	}
	return Document{ID: id, Fields: maps.Clone(f)}, nil
}

func (c *memoryCollection) Query(ctx context.Context, field string, value any) ([]Document, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.start(ctx, MethodQuery, ""); err != nil {
		return nil, err
	}
	want, err := NormalizeValue(value)
	if err != nil {
		return nil, common.NewRemoteError(MethodQuery, c.name, err)
	}
	return c.store.sorted(c.name, func(f Fields) bool {
		got, ok := f[field]
		return ok && reflect.DeepEqual(got, want)
	}), nil
}

func (c *memoryCollection) List(ctx context.Context) ([]Document, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.start(ctx, MethodList, ""); err != nil {
		return nil, err
	}
	return c.store.sorted(c.name, nil), nil
}

func (c *memoryCollection) Set(ctx context.Context, id string, fields map[string]any) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.start(ctx, MethodSet, id); err != nil {
		return err
	}
	f, err := Normalize(fields)
	if err != nil {
		return common.NewRemoteError(MethodSet, c.name, err)
	}
	c.store.bucket(c.name)[id] = f
	return nil
}

func (c *memoryCollection) Update(ctx context.Context, id string, fields map[string]any) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.start(ctx, MethodUpdate, id); err != nil {
		return err
	}
	existing, ok := c.store.data[c.name][id]
	if !ok {
		return common.NewRemoteError(MethodUpdate, c.name, common.ErrNotFound)
	}
	f, err := Normalize(fields)
	if err != nil {
		return common.NewRemoteError(MethodUpdate, c.name, err)
	}
	merged := maps.Clone(existing)
	maps.Copy(merged, f)
	c.store.data[c.name][id] = merged
	return nil
}

func (c *memoryCollection) Delete(ctx context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.start(ctx, MethodDelete, id); err != nil {
		return err
	}
	delete(c.store.data[c.name], id)
	return nil
}
