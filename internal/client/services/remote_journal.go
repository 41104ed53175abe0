package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/client/imaging"
	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/dmitrijs2005/phototimeline/internal/client/photofs"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/cryptox"
	"github.com/dmitrijs2005/phototimeline/internal/logging"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"github.com/dmitrijs2005/phototimeline/internal/saga"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Saga names, as reported in *saga.StageError.
const (
	SagaDeleteRoot   = "delete-root"
	SagaRemoveEntry  = "remove-entry"
	SagaReplaceEntry = "replace-entry"
)

// RemoteJournal runs the remote halves of journal mutations. Every
// multi-step operation is a saga: stages run in order, the first failure
// stops it, and committed stages are not undone.
type RemoteJournal struct {
	store   remote.Store
	codec   cryptox.Codec
	imager  imaging.Imager
	logger  logging.Logger
	now     func() time.Time
	newName func() string
}

func NewRemoteJournal(store remote.Store, codec cryptox.Codec, imager imaging.Imager, l logging.Logger) *RemoteJournal {
	return &RemoteJournal{
		store:   store,
		codec:   codec,
		imager:  imager,
		logger:  l.With("module", "remote_journal"),
		now:     time.Now,
		newName: uuid.NewString,
	}
}

func (j *RemoteJournal) roots() remote.Collection   { return j.store.Collection(common.CollectionRoots) }
func (j *RemoteJournal) entries() remote.Collection { return j.store.Collection(common.CollectionEntries) }
func (j *RemoteJournal) photos() remote.Collection  { return j.store.Collection(common.CollectionPhotos) }

// AddRoot writes the whole root document.
func (j *RemoteJournal) AddRoot(ctx context.Context, root models.JournalRoot) error {
	return j.roots().Set(ctx, root.ID, rootFields(root))
}

func (j *RemoteJournal) RootExists(ctx context.Context, id string) (bool, error) {
	_, err := j.roots().Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// GetRoot returns the root document without entries.
func (j *RemoteJournal) GetRoot(ctx context.Context, id string) (models.JournalRoot, error) {
	doc, err := j.roots().Get(ctx, id)
	if err != nil {
		return models.JournalRoot{}, err
	}
	return rootFromDocument(doc), nil
}

// ListRoots rebuilds every root from its scalar fields, oldest first.
func (j *RemoteJournal) ListRoots(ctx context.Context) ([]models.JournalRoot, error) {
	docs, err := j.roots().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.JournalRoot, 0, len(docs))
	for _, d := range docs {
		out = append(out, rootFromDocument(d))
	}
	slices.SortStableFunc(out, func(a, b models.JournalRoot) int {
		return a.CreationDate.Compare(b.CreationDate)
	})
	return out, nil
}

// ChangeRootFields sends exactly the remote-visible fields of patch.
func (j *RemoteJournal) ChangeRootFields(ctx context.Context, id string, patch models.RootPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	return j.roots().Update(ctx, id, fields)
}

// ListEntries returns the root's entries, oldest first.
func (j *RemoteJournal) ListEntries(ctx context.Context, rootID string) ([]models.JournalEntry, error) {
	docs, err := j.entries().Query(ctx, models.FieldJournalRootRef, rootID)
	if err != nil {
		return nil, err
	}
	out := make([]models.JournalEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, entryFromDocument(d))
	}
	slices.SortStableFunc(out, func(a, b models.JournalEntry) int {
		return a.CreationDate.Compare(b.CreationDate)
	})
	return out, nil
}

// deleteWhere queries coll by field and deletes every match in one batch.
// No match means an empty batch, which commits without a request.
func (j *RemoteJournal) deleteWhere(ctx context.Context, coll remote.Collection, field, value string) error {
	docs, err := coll.Query(ctx, field, value)
	if err != nil {
		return err
	}
	b := j.store.Batch()
	for _, d := range docs {
		b.Delete(coll.Name(), d.ID)
	}
	return b.Commit(ctx)
}

// DeleteRootCascade deletes the root document, then its entries, then its
// photos. Running it again on a deleted root succeeds.
func (j *RemoteJournal) DeleteRootCascade(ctx context.Context, rootID string) error {
	return saga.Run(ctx, j.logger.With("id", rootID), SagaDeleteRoot,
		saga.Stage{Name: "delete-root-document", Run: func(ctx context.Context) error {
			return j.roots().Delete(ctx, rootID)
		}},
		saga.Stage{Name: "delete-entries", Run: func(ctx context.Context) error {
			return j.deleteWhere(ctx, j.entries(), models.FieldJournalRootRef, rootID)
		}},
		saga.Stage{Name: "delete-photos", Run: func(ctx context.Context) error {
			return j.deleteWhere(ctx, j.photos(), models.FieldJournalRootRef, rootID)
		}},
	)
}

// RemoveEntry deletes the entry document and its photos. Both run
// concurrently and the call returns after both finished. Updating the
// root's roll-up is left to the caller.
func (j *RemoteJournal) RemoveEntry(ctx context.Context, entryID string) error {
	return saga.Run(ctx, j.logger.With("id", entryID), SagaRemoveEntry,
		saga.Stage{Name: "delete-entry-and-photos", Run: func(ctx context.Context) error {
			var g errgroup.Group
			g.Go(func() error {
				return j.entries().Delete(ctx, entryID)
			})
			g.Go(func() error {
				return j.deleteWhere(ctx, j.photos(), models.FieldJournalEntryRef, entryID)
			})
			return g.Wait()
		}},
	)
}

// ReplaceEntry overwrites the remote entry and swaps its photo set for
// images. The password is checked before any remote call. All images are
// encrypted before anything new is written, so an encryption failure
// leaves no new photo documents and the old entry document in place.
// It returns the entry's new modification time.
func (j *RemoteJournal) ReplaceEntry(ctx context.Context, entry models.JournalEntry, images []image.Image, password []byte) (time.Time, error) {
	if len(password) == 0 {
		return time.Time{}, common.ErrEmptyPassword
	}

	type payload struct {
		name string
		data string
	}
	var (
		payloads []payload
		modified time.Time
	)

	err := saga.Run(ctx, j.logger.With("id", entry.ID), SagaReplaceEntry,
		saga.Stage{Name: "delete-stale-photos", Run: func(ctx context.Context) error {
			return j.deleteWhere(ctx, j.photos(), models.FieldJournalEntryRef, entry.ID)
		}},
		saga.Stage{Name: "encrypt-photos", Run: func(ctx context.Context) error {
			payloads = make([]payload, 0, len(images))
			for i, img := range images {
				jpg, err := j.imager.EncodeJPEG(img, imaging.RemoteQuality)
				if err != nil {
					return fmt.Errorf("%w: photo %d: %v", common.ErrEncryption, i, err)
				}
				ct, err := j.codec.Encrypt(jpg, password)
				if err != nil {
					return fmt.Errorf("%w: photo %d: %v", common.ErrEncryption, i, err)
				}
				payloads = append(payloads, payload{name: j.newName(), data: cryptox.EncodeField(ct)})
			}
			return nil
		}},
		saga.Stage{Name: "write-photos", Run: func(ctx context.Context) error {
			b := j.store.Batch()
			for _, p := range payloads {
				b.Set(common.CollectionPhotos, p.name, photoFields(entry.RootID, entry.ID, p.name, p.data))
			}
			return b.Commit(ctx)
		}},
		saga.Stage{Name: "write-entry", Run: func(ctx context.Context) error {
			names := make([]string, len(payloads))
			for i, p := range payloads {
				names[i] = p.name
			}
			e := entry
			e.LastModifiedDate = j.now().UTC()
			if err := j.entries().Set(ctx, e.ID, entryFields(e, names)); err != nil {
				return err
			}
			modified = e.LastModifiedDate
			return nil
		}},
	)
	return modified, err
}

// LoadEntryPhotos downloads and decrypts the entry's photos in image0..N
// order and stores them in files under fresh local names. Every photo is
// decrypted before the first file is written, so a failed load leaves the
// files already on disk untouched; a failed write removes only the files
// this load created.
func (j *RemoteJournal) LoadEntryPhotos(ctx context.Context, entryID string, password []byte, files *photofs.Store) ([]models.Photo, error) {
	if len(password) == 0 {
		return nil, common.ErrEmptyPassword
	}

	doc, err := j.entries().Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	docs, err := j.photos().Query(ctx, models.FieldJournalEntryRef, entryID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]remote.Document, len(docs))
	for _, d := range docs {
		byName[d.Fields.String(models.FieldImageName)] = d
	}

	names := photoNames(doc.Fields)
	jpegs := make([][]byte, 0, len(names))
	for _, name := range names {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("photo %s of entry %s: %w", name, entryID, common.ErrNotFound)
		}
		ct, err := cryptox.DecodeField(d.Fields.String(models.FieldImage))
		if err != nil {
			return nil, fmt.Errorf("photo %s: %w", name, err)
		}
		jpg, err := j.codec.Decrypt(ct, password)
		if err != nil {
			return nil, fmt.Errorf("photo %s: %w", name, err)
		}
		jpegs = append(jpegs, jpg)
	}

	photos := make([]models.Photo, 0, len(jpegs))
	for i, jpg := range jpegs {
		p, err := files.Import(jpg)
		if err != nil {
			if rmErr := files.Remove(photos...); rmErr != nil {
				j.logger.Warn(ctx, "failed to clean up partial photo load", "id", entryID, "error", rmErr)
			}
			return nil, fmt.Errorf("photo %s: %w", names[i], err)
		}
		photos = append(photos, p)
	}
	return photos, nil
}
