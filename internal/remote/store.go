// Package remote defines the contract of the remote document store: named
// collections of schemaless documents with single-document writes,
// equality queries and batched commits.
//
// A batch is applied entirely or not at all, but only within itself: there
// is no atomicity across batches, across independent calls, or across
// collections touched by separate calls. Every failure is reported as a
// *common.RemoteError carrying the cause.
package remote

import (
	"context"
)

// Store is a remote document database.
type Store interface {
	// Collection returns a handle to the named collection. It never fails;
	// errors surface on the first call.
	Collection(name string) Collection

	// Batch starts an empty batch. Nothing is sent before Commit.
	Batch() Batch

	// Ping checks that the store is reachable and the caller authorized.
	Ping(ctx context.Context) error
}

// Collection is one named set of documents.
type Collection interface {
	Name() string

	// Get returns the document or an error wrapping common.ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Query returns documents whose field equals value, ordered by ID.
	Query(ctx context.Context, field string, value any) ([]Document, error)

	// List returns all documents ordered by ID.
	List(ctx context.Context) ([]Document, error)

	// Set overwrites the whole document, creating it if needed.
	Set(ctx context.Context, id string, fields map[string]any) error

	// Update merges fields into an existing document. A missing document
	// fails with common.ErrNotFound.
	Update(ctx context.Context, id string, fields map[string]any) error

	// Delete removes the document. Deleting a missing document succeeds.
	Delete(ctx context.Context, id string) error
}

// Batch accumulates writes and deletes that commit as one request.
type Batch interface {
	Set(collection, id string, fields map[string]any)
	Delete(collection, id string)
	Len() int

	// Commit applies every accumulated op or none of them. Committing an
	// empty batch succeeds without contacting the store.
	Commit(ctx context.Context) error
}

// OpKind is the kind of a batched operation.
type OpKind string

const (
	OpSet    OpKind = "set"
	OpDelete OpKind = "delete"
)

// Op is one batched operation.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     map[string]any
}

// CommitFunc sends a list of ops as one request.
type CommitFunc func(ctx context.Context, ops []Op) error

// Buffer is a Batch that hands its ops to a CommitFunc. Store
// implementations embed it to get accumulation for free.
type Buffer struct {
	ops    []Op
	commit CommitFunc
}

func NewBuffer(commit CommitFunc) *Buffer {
	return &Buffer{commit: commit}
}

func (b *Buffer) Set(collection, id string, fields map[string]any) {
	b.ops = append(b.ops, Op{Kind: OpSet, Collection: collection, ID: id, Fields: fields})
}

func (b *Buffer) Delete(collection, id string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: collection, ID: id})
}

func (b *Buffer) Len() int { return len(b.ops) }

// Ops returns the accumulated ops.
func (b *Buffer) Ops() []Op { return b.ops }

func (b *Buffer) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.commit(ctx, b.ops)
}
