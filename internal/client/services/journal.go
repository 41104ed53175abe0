// Package services holds the client use cases. JournalService coordinates
// the local store, the remote store and photo files for every journal
// mutation; PasswordService manages the photo encryption password.
package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/client/gate"
	"github.com/dmitrijs2005/phototimeline/internal/client/imaging"
	"github.com/dmitrijs2005/phototimeline/internal/client/localstore"
	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/dmitrijs2005/phototimeline/internal/client/photofs"
	"github.com/dmitrijs2005/phototimeline/internal/client/repositories/tombstones"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/logging"
	"github.com/google/uuid"
)

// ErrUnsynced is returned when remote data would overwrite local changes
// that have not been pushed yet.
var ErrUnsynced = errors.New("local changes not synced")

// Gate decides whether the remote half of a mutation runs now.
type Gate interface {
	Decide(ctx context.Context) gate.Decision
}

// JournalService applies every mutation locally first, in its own
// transaction, and only then runs the remote saga if the gate allows it.
// A remote failure never undoes the local change; the entity stays
// SyncPendingRemote until Retry succeeds. Methods that change photos take
// the encryption password as an argument.
type JournalService struct {
	local  *localstore.Store
	remote *RemoteJournal
	gate   Gate
	files  *photofs.Store
	logger logging.Logger
	now    func() time.Time
	newID  func() string
}

func NewJournalService(local *localstore.Store, remote *RemoteJournal, g Gate, files *photofs.Store, l logging.Logger) *JournalService {
	return &JournalService{
		local:  local,
		remote: remote,
		gate:   g,
		files:  files,
		logger: l.With("module", "journal"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *JournalService) attempt(ctx context.Context) bool {
	d := s.gate.Decide(ctx)
	if d.Deferred() {
		s.logger.Info(ctx, "remote stage deferred", "reason", d.String())
		return false
	}
	return true
}

func childState(root models.SyncState) models.SyncState {
	if root == models.SyncLocalOnly {
		return models.SyncLocalOnly
	}
	return models.SyncPendingRemote
}

func (s *JournalService) markRootSynced(ctx context.Context, root *models.JournalRoot) error {
	synced := models.SyncSynced
	if err := s.local.MutateRootFields(ctx, root.ID, models.RootPatch{SyncState: &synced}); err != nil {
		return err
	}
	root.SyncState = synced
	return nil
}

func (s *JournalService) markEntrySynced(ctx context.Context, e *models.JournalEntry, modified time.Time) error {
	synced := models.SyncSynced
	err := s.local.MutateEntryFields(ctx, e.ID, models.EntryPatch{SyncState: &synced, LastModifiedDate: &modified})
	if err != nil {
		return err
	}
	e.SyncState = synced
	e.LastModifiedDate = modified
	return nil
}

// ListRoots returns the local roots with their entries.
func (s *JournalService) ListRoots(ctx context.Context) ([]models.JournalRoot, error) {
	return s.local.ListRoots(ctx)
}

func (s *JournalService) GetRoot(ctx context.Context, id string) (*models.JournalRoot, error) {
	return s.local.GetRoot(ctx, id)
}

// CreateRoot creates an empty journal. A localOnly journal and its entries
// stay on this device until Retry pushes them.
func (s *JournalService) CreateRoot(ctx context.Context, title string, localOnly bool) (*models.JournalRoot, error) {
	now := s.now().UTC()
	root := &models.JournalRoot{
		ID:               s.newID(),
		Title:            title,
		CreationDate:     now,
		LastModifiedDate: now,
		SyncState:        models.SyncPendingRemote,
	}
	if localOnly {
		root.SyncState = models.SyncLocalOnly
	}
	if err := s.local.CreateRoot(ctx, root); err != nil {
		return nil, err
	}

	if localOnly || !s.attempt(ctx) {
		return root, nil
	}
	if err := s.remote.AddRoot(ctx, *root); err != nil {
		return root, err
	}
	return root, s.markRootSynced(ctx, root)
}

// RenameRoot changes the title locally and, when possible, remotely with
// the same partial patch.
func (s *JournalService) RenameRoot(ctx context.Context, id, title string) error {
	root, err := s.local.GetRoot(ctx, id)
	if err != nil {
		return err
	}
	patch := models.RootPatch{Title: &title, LastModifiedDate: models.Ptr(s.now().UTC())}
	if root.SyncState == models.SyncSynced {
		patch.SyncState = models.Ptr(models.SyncPendingRemote)
	}
	if err := s.local.MutateRootFields(ctx, id, patch); err != nil {
		return err
	}
	patch.Apply(root)

	if root.SyncState == models.SyncLocalOnly || !s.attempt(ctx) {
		return nil
	}
	return s.pushRootChange(ctx, root, patch, patch.SyncState != nil)
}

// pushRootChange sends patch when the remote document already exists and
// the whole root otherwise.
func (s *JournalService) pushRootChange(ctx context.Context, root *models.JournalRoot, patch models.RootPatch, existsRemotely bool) error {
	var err error
	if existsRemotely {
		err = s.remote.ChangeRootFields(ctx, root.ID, patch)
	} else {
		current, gerr := s.local.GetRoot(ctx, root.ID)
		if gerr != nil {
			return gerr
		}
		err = s.remote.AddRoot(ctx, *current)
	}
	if err != nil {
		return err
	}
	return s.markRootSynced(ctx, root)
}

// refreshRollup recomputes and stores the root's roll-up. A synced root
// becomes pending until the new values reach the remote store.
func (s *JournalService) refreshRollup(ctx context.Context, root *models.JournalRoot, now time.Time) (models.RootPatch, error) {
	r, err := s.local.Rollup(ctx, root.ID)
	if err != nil {
		return models.RootPatch{}, err
	}
	patch := r.Patch(now)
	if root.SyncState == models.SyncSynced {
		patch.SyncState = models.Ptr(models.SyncPendingRemote)
	}
	if err := s.local.MutateRootFields(ctx, root.ID, patch); err != nil {
		return models.RootPatch{}, err
	}
	return patch, nil
}

// DeleteRoot removes the journal locally, then runs the remote cascade. A
// root that is already gone locally still gets the remote cascade, which
// is idempotent. Deferred or failed cascades are remembered for Retry.
func (s *JournalService) DeleteRoot(ctx context.Context, id string) error {
	root, err := s.local.GetRoot(ctx, id)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if root != nil {
		if err := s.local.DeleteRoot(ctx, id); err != nil {
			return err
		}
		for _, e := range root.Entries {
			s.removeFiles(ctx, e.Photos)
		}
		if root.SyncState == models.SyncLocalOnly {
			return nil
		}
	}

	tomb := tombstones.Tombstone{ID: id, Kind: tombstones.KindRoot, DeletedAt: s.now().UTC()}
	if !s.attempt(ctx) {
		return s.local.AddTombstone(ctx, tomb)
	}
	if err := s.remote.DeleteRootCascade(ctx, id); err != nil {
		return errors.Join(err, s.local.AddTombstone(ctx, tomb))
	}
	return nil
}

func (s *JournalService) removeFiles(ctx context.Context, photos []models.Photo) {
	if err := s.files.Remove(photos...); err != nil {
		s.logger.Warn(ctx, "failed to remove photo files", "error", err)
	}
}

// storeImages writes every image to disk. On failure the files written so
// far are removed.
func (s *JournalService) storeImages(ctx context.Context, images []image.Image) ([]models.Photo, error) {
	photos := make([]models.Photo, 0, len(images))
	for i, img := range images {
		p, err := s.files.Save(img)
		if err != nil {
			s.removeFiles(ctx, photos)
			return nil, fmt.Errorf("store photo %d: %w", i, err)
		}
		photos = append(photos, p)
	}
	return photos, nil
}

// loadImages reads the full-size files of photos back into images.
func (s *JournalService) loadImages(photos []models.Photo) ([]image.Image, error) {
	images := make([]image.Image, 0, len(photos))
	for _, p := range photos {
		b, err := s.files.Read(p)
		if err != nil {
			return nil, fmt.Errorf("read photo %s: %w", p.FullName, err)
		}
		img, err := imaging.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("photo %s: %w", p.FullName, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// AddEntry appends a new entry with images to the root.
func (s *JournalService) AddEntry(ctx context.Context, rootID string, draft models.JournalEntry, images []image.Image, password []byte) (*models.JournalEntry, error) {
	root, err := s.local.GetRoot(ctx, rootID)
	if err != nil {
		return nil, err
	}
	photos, err := s.storeImages(ctx, images)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := draft
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.CreationDate.IsZero() {
		e.CreationDate = now
	}
	e.LastModifiedDate = now
	e.Photos = photos
	e.SyncState = childState(root.SyncState)

	if _, err := s.local.AppendChild(ctx, rootID, &e); err != nil {
		s.removeFiles(ctx, photos)
		return nil, err
	}
	patch, err := s.refreshRollup(ctx, root, now)
	if err != nil {
		return &e, err
	}
	return &e, s.pushEntry(ctx, &e, images, password, root, patch, "")
}

// SaveEntry replaces the entry oldID with edited and the photo set images.
// New photo files are written first; the old entry's files are removed
// once the local replace committed.
func (s *JournalService) SaveEntry(ctx context.Context, rootID, oldID string, edited models.JournalEntry, images []image.Image, password []byte) (*models.JournalEntry, error) {
	root, err := s.local.GetRoot(ctx, rootID)
	if err != nil {
		return nil, err
	}
	old, err := s.local.GetEntry(ctx, oldID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	photos, err := s.storeImages(ctx, images)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := edited
	if e.ID == "" {
		e.ID = oldID
	}
	if e.CreationDate.IsZero() && old != nil {
		e.CreationDate = old.CreationDate
	}
	e.LastModifiedDate = now
	e.Photos = photos
	e.SyncState = childState(root.SyncState)
	if old != nil && old.SyncState == models.SyncLocalOnly {
		e.SyncState = models.SyncLocalOnly
	}

	if ok, err := s.local.ReplaceChild(ctx, rootID, oldID, &e); !ok {
		s.removeFiles(ctx, photos)
		return nil, err
	}
	if old != nil {
		s.removeFiles(ctx, old.Photos)
	}
	replaced := ""
	if old != nil && old.ID != e.ID && old.SyncState != models.SyncLocalOnly {
		replaced = old.ID
		tomb := tombstones.Tombstone{ID: old.ID, Kind: tombstones.KindEntry, RootID: rootID, DeletedAt: now}
		if err := s.local.AddTombstone(ctx, tomb); err != nil {
			return &e, err
		}
	}

	patch, err := s.refreshRollup(ctx, root, now)
	if err != nil {
		return &e, err
	}
	return &e, s.pushEntry(ctx, &e, images, password, root, patch, replaced)
}

// pushEntry runs the remote half of an add or save. rootBefore is the root
// as it was before the local change; replacedID names a remote entry the
// save superseded under a different identity.
func (s *JournalService) pushEntry(ctx context.Context, e *models.JournalEntry, images []image.Image, password []byte,
	rootBefore *models.JournalRoot, patch models.RootPatch, replacedID string) error {
	if e.SyncState == models.SyncLocalOnly {
		return nil
	}
	if len(password) == 0 {
		return common.ErrEmptyPassword
	}
	if !s.attempt(ctx) {
		return nil
	}

	rootExists := rootBefore.SyncState == models.SyncSynced
	if !rootExists {
		if err := s.pushRootChange(ctx, rootBefore, patch, false); err != nil {
			return err
		}
	}
	if replacedID != "" {
		if err := s.remote.RemoveEntry(ctx, replacedID); err != nil {
			return err
		}
		if err := s.local.ClearTombstone(ctx, replacedID); err != nil {
			return err
		}
	}

	modified, err := s.remote.ReplaceEntry(ctx, *e, images, password)
	if err != nil {
		return err
	}
	if err := s.markEntrySynced(ctx, e, modified); err != nil {
		return err
	}
	if rootExists {
		return s.pushRootChange(ctx, rootBefore, patch, true)
	}
	return nil
}

// DeleteEntry removes the entry and its files locally, then its remote
// documents, then updates the root's roll-up remotely.
func (s *JournalService) DeleteEntry(ctx context.Context, rootID, entryID string) error {
	root, err := s.local.GetRoot(ctx, rootID)
	if err != nil {
		return err
	}
	old, err := s.local.GetEntry(ctx, entryID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if err := s.local.RemoveChild(ctx, rootID, entryID); err != nil {
		return err
	}
	if old != nil {
		s.removeFiles(ctx, old.Photos)
	}

	patch, err := s.refreshRollup(ctx, root, s.now().UTC())
	if err != nil {
		return err
	}
	if root.SyncState == models.SyncLocalOnly {
		return nil
	}

	remoteEntry := old != nil && old.SyncState != models.SyncLocalOnly
	tomb := tombstones.Tombstone{ID: entryID, Kind: tombstones.KindEntry, RootID: rootID, DeletedAt: s.now().UTC()}
	if !s.attempt(ctx) {
		if remoteEntry {
			return s.local.AddTombstone(ctx, tomb)
		}
		return nil
	}
	if remoteEntry {
		if err := s.remote.RemoveEntry(ctx, entryID); err != nil {
			return errors.Join(err, s.local.AddTombstone(ctx, tomb))
		}
	}
	return s.pushRootChange(ctx, root, patch, root.SyncState == models.SyncSynced)
}

// ListRemoteRoots lists the journals stored remotely.
func (s *JournalService) ListRemoteRoots(ctx context.Context) ([]models.JournalRoot, error) {
	return s.remote.ListRoots(ctx)
}

// PullRoot replaces the local copy of a root with the remote one. An entry
// whose remote modification time and photo count match the local copy
// keeps its local photo files; every other entry is stored without photos
// until PullEntryPhotos fetches them, and the files it referenced are
// removed. A root that no longer exists remotely is removed locally and
// ErrNotFound is returned.
func (s *JournalService) PullRoot(ctx context.Context, rootID string) (*models.JournalRoot, error) {
	local, err := s.local.GetRoot(ctx, rootID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if local != nil && local.SyncState != models.SyncSynced {
		return nil, fmt.Errorf("pull %s: %w", rootID, ErrUnsynced)
	}
	current := make(map[string]models.JournalEntry)
	if local != nil {
		for _, e := range local.Entries {
			if e.SyncState != models.SyncSynced {
				return nil, fmt.Errorf("pull %s: entry %s: %w", rootID, e.ID, ErrUnsynced)
			}
			current[e.ID] = e
		}
	}

	exists, err := s.remote.RootExists(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if !exists {
		if local != nil {
			if err := s.local.DeleteRoot(ctx, rootID); err != nil {
				return nil, err
			}
			for _, e := range local.Entries {
				s.removeFiles(ctx, e.Photos)
			}
			s.logger.Info(ctx, "removed root deleted remotely", "id", rootID)
		}
		return nil, fmt.Errorf("pull %s: %w", rootID, common.ErrNotFound)
	}

	root, err := s.remote.GetRoot(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root.Entries, err = s.remote.ListEntries(ctx, rootID); err != nil {
		return nil, err
	}

	kept := make(map[string]bool)
	for i := range root.Entries {
		e := &root.Entries[i]
		old, ok := current[e.ID]
		if ok && old.LastModifiedDate.Equal(e.LastModifiedDate) && len(old.Photos) == len(e.Photos) {
			e.Photos = old.Photos
			for _, p := range old.Photos {
				kept[p.FullName] = true
			}
			continue
		}
		e.Photos = nil
	}
	if err := s.local.PutRoot(ctx, &root); err != nil {
		return nil, err
	}

	for _, e := range current {
		for _, p := range e.Photos {
			if !kept[p.FullName] {
				s.removeFiles(ctx, []models.Photo{p})
			}
		}
	}
	return &root, nil
}

// PullEntryPhotos downloads and decrypts the entry's photos into local
// files. Decryption failure of any photo fails the whole pull.
func (s *JournalService) PullEntryPhotos(ctx context.Context, entryID string, password []byte) ([]models.Photo, error) {
	e, err := s.local.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e.SyncState != models.SyncSynced {
		return nil, fmt.Errorf("pull photos of %s: %w", entryID, ErrUnsynced)
	}

	photos, err := s.remote.LoadEntryPhotos(ctx, entryID, password, s.files)
	if err != nil {
		return nil, err
	}

	if !samePhotos(e.Photos, photos) {
		updated := *e
		updated.Photos = photos
		if _, err := s.local.ReplaceChild(ctx, e.RootID, e.ID, &updated); err != nil {
			s.removeFiles(ctx, photos)
			return nil, err
		}
		stale := make([]models.Photo, 0, len(e.Photos))
		for _, p := range e.Photos {
			if !containsPhoto(photos, p) {
				stale = append(stale, p)
			}
		}
		s.removeFiles(ctx, stale)
	}
	return photos, nil
}

func samePhotos(a, b []models.Photo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsPhoto(list []models.Photo, p models.Photo) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}

// RetryReport counts what Retry pushed.
type RetryReport struct {
	Deletions int
	Roots     int
	Entries   int
}

// Retry pushes everything the remote store has not seen: recorded
// deletions, then roots, then entries, local-only ones included. One
// failing entity does not stop the others; all failures are joined.
func (s *JournalService) Retry(ctx context.Context, password []byte) (RetryReport, error) {
	var report RetryReport
	if d := s.gate.Decide(ctx); d.Deferred() {
		return report, fmt.Errorf("retry: %w (%s)", common.ErrUnavailable, d)
	}

	var errs []error

	tombs, err := s.local.Tombstones(ctx)
	if err != nil {
		return report, err
	}
	for _, t := range tombs {
		switch t.Kind {
		case tombstones.KindRoot:
			err = s.remote.DeleteRootCascade(ctx, t.ID)
		default:
			err = s.remote.RemoveEntry(ctx, t.ID)
		}
		if err == nil {
			err = s.local.ClearTombstone(ctx, t.ID)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report.Deletions++
	}

	roots, err := s.local.ListRoots(ctx)
	if err != nil {
		return report, errors.Join(append(errs, err)...)
	}
	failedRoots := make(map[string]bool)
	for i := range roots {
		root := &roots[i]
		if !root.SyncState.NeedsRetry() {
			continue
		}
		if err := s.remote.AddRoot(ctx, *root); err != nil {
			failedRoots[root.ID] = true
			errs = append(errs, err)
			continue
		}
		if err := s.markRootSynced(ctx, root); err != nil {
			errs = append(errs, err)
			continue
		}
		report.Roots++
	}

	pending, err := s.local.PendingEntries(ctx)
	if err != nil {
		return report, errors.Join(append(errs, err)...)
	}
	if len(pending) > 0 && len(password) == 0 {
		return report, errors.Join(append(errs, common.ErrEmptyPassword)...)
	}
	for i := range pending {
		e := &pending[i]
		if failedRoots[e.RootID] {
			continue
		}
		images, err := s.loadImages(e.Photos)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		modified, err := s.remote.ReplaceEntry(ctx, *e, images, password)
		if err == nil {
			err = s.markEntrySynced(ctx, e, modified)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		report.Entries++
	}

	return report, errors.Join(errs...)
}
