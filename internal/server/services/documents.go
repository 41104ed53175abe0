// Package services implements the document service behind the gRPC
// transport: per-owner document access with large photo payloads kept in a
// blob store.
package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/logging"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"github.com/dmitrijs2005/phototimeline/internal/server/blobstore"
	"github.com/dmitrijs2005/phototimeline/internal/server/repositories/documents"
	"github.com/dmitrijs2005/phototimeline/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// BlobRefPrefix marks a stored field that holds a blob key instead of the
// payload of the field named by the rest of the key.
const BlobRefPrefix = "_blob."

// offloadFields are the string fields that move to the blob store once
// they exceed the threshold.
var offloadFields = []string{"image"}

// DocumentService serves documents for many owners out of one repository.
type DocumentService struct {
	repos     repomanager.RepositoryManager
	blobs     blobstore.Store
	threshold int
	logger    logging.Logger
}

// NewDocumentService builds the service. Payloads longer than threshold
// bytes are offloaded; a threshold of zero or less keeps everything inline.
func NewDocumentService(repos repomanager.RepositoryManager, blobs blobstore.Store, threshold int, logger logging.Logger) *DocumentService {
	return &DocumentService{
		repos:     repos,
		blobs:     blobs,
		threshold: threshold,
		logger:    logger.With("module", "documents"),
	}
}

// Ping reports whether the repository is reachable.
func (s *DocumentService) Ping(ctx context.Context) error {
	if err := s.repos.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return nil
}

// ForOwner returns a remote.Store that sees only the owner's documents.
func (s *DocumentService) ForOwner(owner string) remote.Store {
	return &ownerStore{svc: s, owner: owner}
}

// write is the staged form of one document write.
type write struct {
	collection string
	id         string
	fields     remote.Fields
	blobs      []string
}

// prepare validates and normalizes fields and uploads oversized payloads.
// On error nothing stays uploaded.
func (s *DocumentService) prepare(ctx context.Context, owner, collection, id string, fields map[string]any) (w write, err error) {
	if collection == "" || id == "" {
		return write{}, fmt.Errorf("%w: collection and id are required", common.ErrBadRequest)
	}
	normalized, err := remote.Normalize(fields)
	if err != nil {
		return write{}, err
	}
	for k := range normalized {
		if strings.HasPrefix(k, BlobRefPrefix) {
			return write{}, fmt.Errorf("%w: field %q is reserved", common.ErrBadRequest, k)
		}
	}

	w = write{collection: collection, id: id, fields: normalized}
	defer func() {
		if err != nil {
			s.removeBlobs(ctx, w.blobs)
		}
	}()

	if s.threshold <= 0 {
		return w, nil
	}
	for _, f := range offloadFields {
		payload, ok := normalized[f].(string)
		if !ok || len(payload) <= s.threshold {
			continue
		}
		key := fmt.Sprintf("users/%s/%s/%s/%s", owner, collection, id, uuid.NewString())
		if err := s.blobs.Put(ctx, key, []byte(payload)); err != nil {
			return w, fmt.Errorf("offload %s of %s/%s: %w", f, collection, id, err)
		}
		w.blobs = append(w.blobs, key)
		delete(w.fields, f)
		w.fields[BlobRefPrefix+f] = key
	}
	return w, nil
}

// hydrate replaces blob references with their payloads.
func (s *DocumentService) hydrate(ctx context.Context, doc remote.Document) (remote.Document, error) {
	for k, v := range doc.Fields {
		field, ok := strings.CutPrefix(k, BlobRefPrefix)
		if !ok {
			continue
		}
		key, _ := v.(string)
		payload, err := s.blobs.Get(ctx, key)
		if err != nil {
			return remote.Document{}, fmt.Errorf("load %s of %s: %v", field, doc.ID, err)
		}
		delete(doc.Fields, k)
		doc.Fields[field] = string(payload)
	}
	return doc, nil
}

func (s *DocumentService) hydrateAll(ctx context.Context, docs []remote.Document) ([]remote.Document, error) {
	for i := range docs {
		d, err := s.hydrate(ctx, docs[i])
		if err != nil {
			return nil, err
		}
		docs[i] = d
	}
	return docs, nil
}

// blobRefs lists the blob keys referenced by stored fields.
func blobRefs(fields remote.Fields) []string {
	var keys []string
	for k, v := range fields {
		if key, ok := v.(string); ok && strings.HasPrefix(k, BlobRefPrefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

// existingRefs returns the blob keys of the stored document, if any.
func existingRefs(ctx context.Context, repo documents.Repository, owner, collection, id string) (remote.Fields, []string, error) {
	doc, err := repo.Get(ctx, owner, collection, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return doc.Fields, blobRefs(doc.Fields), nil
}

// put stores w and returns the blob keys it made stale.
func put(ctx context.Context, repo documents.Repository, owner string, w write) ([]string, error) {
	_, stale, err := existingRefs(ctx, repo, owner, w.collection, w.id)
	if err != nil {
		return nil, err
	}
	if err := repo.Put(ctx, owner, w.collection, w.id, w.fields); err != nil {
		return nil, err
	}
	return stale, nil
}

// remove deletes a document and returns the blob keys it held.
func remove(ctx context.Context, repo documents.Repository, owner, collection, id string) ([]string, error) {
	_, stale, err := existingRefs(ctx, repo, owner, collection, id)
	if err != nil {
		return nil, err
	}
	if err := repo.Delete(ctx, owner, collection, id); err != nil {
		return nil, err
	}
	return stale, nil
}

// merge overlays w onto an existing document. Updates that touch an
// offloadable field are rewritten as a whole-document put so a stale
// reference never shadows the new value.
func merge(ctx context.Context, repo documents.Repository, owner string, w write) ([]string, error) {
	touchesBlob := len(w.blobs) > 0
	for _, f := range offloadFields {
		if w.fields.Has(f) {
			touchesBlob = true
		}
	}
	if !touchesBlob {
		return nil, repo.Merge(ctx, owner, w.collection, w.id, w.fields)
	}

	current, err := repo.Get(ctx, owner, w.collection, w.id)
	if err != nil {
		return nil, err
	}
	var stale []string
	merged := maps.Clone(current.Fields)
	for _, f := range offloadFields {
		if !w.fields.Has(f) && !w.fields.Has(BlobRefPrefix+f) {
			continue
		}
		delete(merged, f)
		if key, ok := merged[BlobRefPrefix+f].(string); ok {
			stale = append(stale, key)
			delete(merged, BlobRefPrefix+f)
		}
	}
	maps.Copy(merged, w.fields)
	if err := repo.Put(ctx, owner, w.collection, w.id, merged); err != nil {
		return nil, err
	}
	return stale, nil
}

func (s *DocumentService) removeBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "failed to remove blob", "key", key, "error", err)
		}
	}
}

// apply runs fn in one transaction. Blobs uploaded for the writes are
// removed when it fails; blobs it made stale are removed when it commits.
func (s *DocumentService) apply(ctx context.Context, uploaded []string, fn func(ctx context.Context, repo documents.Repository) ([]string, error)) error {
	var stale []string
	err := s.repos.WithinTx(ctx, func(ctx context.Context, repo documents.Repository) error {
		keys, err := fn(ctx, repo)
		stale = keys
		return err
	})
	if err != nil {
		s.removeBlobs(context.WithoutCancel(ctx), uploaded)
		return err
	}
	s.removeBlobs(context.WithoutCancel(ctx), stale)
	return nil
}

type ownerStore struct {
	svc   *DocumentService
	owner string
}

var _ remote.Store = (*ownerStore)(nil)

func (o *ownerStore) Collection(name string) remote.Collection {
	return &ownerCollection{store: o, name: name}
}

func (o *ownerStore) Batch() remote.Batch {
	return remote.NewBuffer(o.commit)
}

func (o *ownerStore) Ping(ctx context.Context) error {
	return common.NewRemoteError(remote.MethodPing, "", o.svc.Ping(ctx))
}

func (o *ownerStore) commit(ctx context.Context, ops []remote.Op) error {
	svc := o.svc
	writes := make([]write, len(ops))
	var uploaded []string
	for i, op := range ops {
		switch op.Kind {
		case remote.OpSet:
			w, err := svc.prepare(ctx, o.owner, op.Collection, op.ID, op.Fields)
			if err != nil {
				svc.removeBlobs(ctx, uploaded)
				return common.NewRemoteError(remote.MethodCommit, op.Collection, fmt.Errorf("op %d: %w", i, err))
			}
			writes[i] = w
			uploaded = append(uploaded, w.blobs...)
		case remote.OpDelete:
			if op.Collection == "" || op.ID == "" {
				svc.removeBlobs(ctx, uploaded)
				return common.NewRemoteError(remote.MethodCommit, op.Collection, fmt.Errorf("%w: op %d lacks collection or id", common.ErrBadRequest, i))
			}
			writes[i] = write{collection: op.Collection, id: op.ID}
		default:
			svc.removeBlobs(ctx, uploaded)
			return common.NewRemoteError(remote.MethodCommit, "", fmt.Errorf("%w: unknown op %q", common.ErrBadRequest, op.Kind))
		}
	}

	err := svc.apply(ctx, uploaded, func(ctx context.Context, repo documents.Repository) ([]string, error) {
		var stale []string
		for i, op := range ops {
			var (
				keys []string
				err  error
			)
			if op.Kind == remote.OpSet {
				keys, err = put(ctx, repo, o.owner, writes[i])
			} else {
				keys, err = remove(ctx, repo, o.owner, op.Collection, op.ID)
			}
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
			stale = append(stale, keys...)
		}
		return stale, nil
	})
	return common.NewRemoteError(remote.MethodCommit, "", err)
}

type ownerCollection struct {
	store *ownerStore
	name  string
}

func (c *ownerCollection) Name() string { return c.name }

func (c *ownerCollection) fail(method string, err error) error {
	return common.NewRemoteError(method, c.name, err)
}

func (c *ownerCollection) Get(ctx context.Context, id string) (remote.Document, error) {
	svc := c.store.svc
	doc, err := svc.repos.Documents().Get(ctx, c.store.owner, c.name, id)
	if err != nil {
		return remote.Document{}, c.fail(remote.MethodGet, err)
	}
	doc, err = svc.hydrate(ctx, doc)
	return doc, c.fail(remote.MethodGet, err)
}

func (c *ownerCollection) Query(ctx context.Context, field string, value any) ([]remote.Document, error) {
	svc := c.store.svc
	docs, err := svc.repos.Documents().Find(ctx, c.store.owner, c.name, field, value)
	if err != nil {
		return nil, c.fail(remote.MethodQuery, err)
	}
	docs, err = svc.hydrateAll(ctx, docs)
	return docs, c.fail(remote.MethodQuery, err)
}

func (c *ownerCollection) List(ctx context.Context) ([]remote.Document, error) {
	svc := c.store.svc
	docs, err := svc.repos.Documents().List(ctx, c.store.owner, c.name)
	if err != nil {
		return nil, c.fail(remote.MethodList, err)
	}
	docs, err = svc.hydrateAll(ctx, docs)
	return docs, c.fail(remote.MethodList, err)
}

func (c *ownerCollection) Set(ctx context.Context, id string, fields map[string]any) error {
	svc, owner := c.store.svc, c.store.owner
	w, err := svc.prepare(ctx, owner, c.name, id, fields)
	if err != nil {
		return c.fail(remote.MethodSet, err)
	}
	err = svc.apply(ctx, w.blobs, func(ctx context.Context, repo documents.Repository) ([]string, error) {
		return put(ctx, repo, owner, w)
	})
	return c.fail(remote.MethodSet, err)
}

func (c *ownerCollection) Update(ctx context.Context, id string, fields map[string]any) error {
	svc, owner := c.store.svc, c.store.owner
	w, err := svc.prepare(ctx, owner, c.name, id, fields)
	if err != nil {
		return c.fail(remote.MethodUpdate, err)
	}
	err = svc.apply(ctx, w.blobs, func(ctx context.Context, repo documents.Repository) ([]string, error) {
		return merge(ctx, repo, owner, w)
	})
	return c.fail(remote.MethodUpdate, err)
}

func (c *ownerCollection) Delete(ctx context.Context, id string) error {
	svc, owner := c.store.svc, c.store.owner
	if c.name == "" || id == "" {
		return c.fail(remote.MethodDelete, fmt.Errorf("%w: collection and id are required", common.ErrBadRequest))
	}
	err := svc.apply(ctx, nil, func(ctx context.Context, repo documents.Repository) ([]string, error) {
		return remove(ctx, repo, owner, c.name, id)
	})
	return c.fail(remote.MethodDelete, err)
}
