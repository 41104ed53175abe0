package services

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/client/imaging"
	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/dmitrijs2005/phototimeline/internal/client/photofs"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/cryptox"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"github.com/dmitrijs2005/phototimeline/internal/saga"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedR1 builds root R1 with entry E1 (photos P1, P2) and entry E2 without
// photos, plus an unrelated root R2 with one entry and photo.
func seedR1(t *testing.T, mem *remote.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	b := mem.Batch()
	b.Set(common.CollectionRoots, "R1", rootFields(models.JournalRoot{ID: "R1", Title: "Alps", CreationDate: t0, LastModifiedDate: t0, NumberOfEntries: 2}))
	b.Set(common.CollectionRoots, "R2", rootFields(models.JournalRoot{ID: "R2", Title: "Coast", CreationDate: t0, LastModifiedDate: t0, NumberOfEntries: 1}))
	b.Set(common.CollectionEntries, "E1", entryFields(models.JournalEntry{ID: "E1", RootID: "R1"}, []string{"P1", "P2"}))
	b.Set(common.CollectionEntries, "E2", entryFields(models.JournalEntry{ID: "E2", RootID: "R1"}, nil))
	b.Set(common.CollectionEntries, "E3", entryFields(models.JournalEntry{ID: "E3", RootID: "R2"}, []string{"P3"}))
	b.Set(common.CollectionPhotos, "P1", photoFields("R1", "E1", "P1", "x"))
	b.Set(common.CollectionPhotos, "P2", photoFields("R1", "E1", "P2", "y"))
	b.Set(common.CollectionPhotos, "P3", photoFields("R2", "E3", "P3", "z"))
	require.NoError(t, b.Commit(ctx))
	mem.ResetCalls()
}

func TestDeleteRootCascade_RemovesSubtree(t *testing.T) {
	mem := remote.NewMemoryStore()
	seedR1(t, mem)
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()

	require.NoError(t, j.DeleteRootCascade(ctx, "R1"))

	assert.Empty(t, docIDs(t, mem, common.CollectionEntries, models.FieldJournalRootRef, "R1"))
	assert.Empty(t, docIDs(t, mem, common.CollectionPhotos, models.FieldJournalRootRef, "R1"))
	exists, err := j.RootExists(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, exists)

	// the sibling root is untouched
	assert.Equal(t, []string{"E3"}, docIDs(t, mem, common.CollectionEntries, models.FieldJournalRootRef, "R2"))
	assert.Equal(t, []string{"P3"}, docIDs(t, mem, common.CollectionPhotos, models.FieldJournalRootRef, "R2"))
}

func TestDeleteRootCascade_StageOrderAndIdempotence(t *testing.T) {
	mem := remote.NewMemoryStore()
	seedR1(t, mem)
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()

	require.NoError(t, j.DeleteRootCascade(ctx, "R1"))
	assert.Equal(t, []remote.Call{
		{Method: remote.MethodDelete, Collection: common.CollectionRoots, ID: "R1"},
		{Method: remote.MethodQuery, Collection: common.CollectionEntries},
		{Method: remote.MethodCommit},
		{Method: remote.MethodQuery, Collection: common.CollectionPhotos},
		{Method: remote.MethodCommit},
	}, mem.Calls())

	mem.ResetCalls()
	require.NoError(t, j.DeleteRootCascade(ctx, "R1"))
	// empty batches never reach the store
	assert.Equal(t, []remote.Call{
		{Method: remote.MethodDelete, Collection: common.CollectionRoots, ID: "R1"},
		{Method: remote.MethodQuery, Collection: common.CollectionEntries},
		{Method: remote.MethodQuery, Collection: common.CollectionPhotos},
	}, mem.Calls())
}

func TestDeleteRootCascade_HaltsWithoutRollback(t *testing.T) {
	mem := remote.NewMemoryStore()
	seedR1(t, mem)
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()

	outage := errors.New("connection reset")
	mem.InjectFault(func(c remote.Call) error {
		if c.Method == remote.MethodQuery && c.Collection == common.CollectionEntries {
			return outage
		}
		return nil
	})

	err := j.DeleteRootCascade(ctx, "R1")
	require.ErrorIs(t, err, outage)
	require.ErrorIs(t, err, common.ErrRemote)
	var se *saga.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, SagaDeleteRoot, se.Saga)
	assert.Equal(t, "delete-entries", se.Stage)
	assert.Equal(t, []string{"delete-root-document"}, se.Committed)

	mem.InjectFault(nil)
	exists, err := j.RootExists(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, exists, "committed stage is not rolled back")
	assert.Equal(t, []string{"E1", "E2"}, docIDs(t, mem, common.CollectionEntries, models.FieldJournalRootRef, "R1"))
	assert.Equal(t, []string{"P1", "P2"}, docIDs(t, mem, common.CollectionPhotos, models.FieldJournalRootRef, "R1"))

	// a retry finishes the job
	require.NoError(t, j.DeleteRootCascade(ctx, "R1"))
	assert.Empty(t, docIDs(t, mem, common.CollectionEntries, models.FieldJournalRootRef, "R1"))
	assert.Empty(t, docIDs(t, mem, common.CollectionPhotos, models.FieldJournalRootRef, "R1"))
}

func TestRemoveEntry_BothHalvesRunEvenIfOneFails(t *testing.T) {
	mem := remote.NewMemoryStore()
	seedR1(t, mem)
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()

	outage := errors.New("deadline")
	mem.InjectFault(func(c remote.Call) error {
		if c.Method == remote.MethodDelete && c.Collection == common.CollectionEntries {
			return outage
		}
		return nil
	})

	err := j.RemoveEntry(ctx, "E1")
	require.ErrorIs(t, err, outage)

	mem.InjectFault(nil)
	assert.Empty(t, docIDs(t, mem, common.CollectionPhotos, models.FieldJournalEntryRef, "E1"))
	assert.Equal(t, []string{"E1", "E2"}, docIDs(t, mem, common.CollectionEntries, models.FieldJournalRootRef, "R1"))

	require.NoError(t, j.RemoveEntry(ctx, "E1"))
	assert.Equal(t, []string{"E2"}, docIDs(t, mem, common.CollectionEntries, models.FieldJournalRootRef, "R1"))
}

func photoPayloads(t *testing.T, mem *remote.MemoryStore, entryID string) map[string][]byte {
	t.Helper()
	docs, err := mem.Collection(common.CollectionPhotos).Query(context.Background(), models.FieldJournalEntryRef, entryID)
	require.NoError(t, err)
	out := make(map[string][]byte, len(docs))
	for _, d := range docs {
		ct, err := cryptox.DecodeField(d.Fields.String(models.FieldImage))
		require.NoError(t, err)
		pt, err := testCodec().Decrypt(ct, password)
		require.NoError(t, err)
		out[d.ID] = pt
	}
	return out
}

func TestReplaceEntry_ResaveLeavesOnlySecondPhoto(t *testing.T) {
	mem := remote.NewMemoryStore()
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()
	e1 := models.JournalEntry{ID: "E1", RootID: "R1", DescriptionText: "day one", CreationDate: t0}

	_, err := j.ReplaceEntry(ctx, e1, []image.Image{imgA}, password)
	require.NoError(t, err)
	modified, err := j.ReplaceEntry(ctx, e1, []image.Image{imgB}, password)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(1*time.Hour), modified)

	payloads := photoPayloads(t, mem, "E1")
	require.Len(t, payloads, 1)
	wantB, err := imaging.Default{}.EncodeJPEG(imgB, imaging.RemoteQuality)
	require.NoError(t, err)
	for name, pt := range payloads {
		assert.Equal(t, wantB, pt)

		doc, err := mem.Collection(common.CollectionEntries).Get(ctx, "E1")
		require.NoError(t, err)
		assert.Equal(t, []string{name}, photoNames(doc.Fields))
	}
}

func TestReplaceEntry_PhotoDocsMatchEntryImages(t *testing.T) {
	mem := remote.NewMemoryStore()
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()
	e := models.JournalEntry{ID: "E9", RootID: "R9", Location: models.Location{Name: "Oslo", Latitude: 59.9, Longitude: 10.7}}

	_, err := j.ReplaceEntry(ctx, e, []image.Image{imgA, imgB, imgA}, password)
	require.NoError(t, err)

	doc, err := mem.Collection(common.CollectionEntries).Get(ctx, "E9")
	require.NoError(t, err)
	names := photoNames(doc.Fields)
	require.Len(t, names, 3)

	ids := docIDs(t, mem, common.CollectionPhotos, models.FieldJournalEntryRef, "E9")
	assert.ElementsMatch(t, names, ids)

	got, err := j.ListEntries(ctx, "R9")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.SyncSynced, got[0].SyncState)
	assert.Equal(t, len(got[0].Photos), len(names))
	assert.Equal(t, e.Location, got[0].Location)
	for i, p := range got[0].Photos {
		assert.Equal(t, photofs.PhotoFor(names[i]), p)
	}
}

func TestReplaceEntry_EmptyPasswordMakesNoCalls(t *testing.T) {
	mem := remote.NewMemoryStore()
	j := newRemoteJournal(mem, testCodec())

	_, err := j.ReplaceEntry(context.Background(), models.JournalEntry{ID: "E1", RootID: "R1"}, []image.Image{imgA}, nil)
	require.ErrorIs(t, err, common.ErrEmptyPassword)
	assert.Empty(t, mem.Calls())
}

type flakyCodec struct {
	cryptox.Codec
	failAt int
	calls  int
}

func (f *flakyCodec) Encrypt(plaintext, password []byte) ([]byte, error) {
	f.calls++
	if f.calls == f.failAt {
		return nil, errors.New("entropy exhausted")
	}
	return f.Codec.Encrypt(plaintext, password)
}

func TestReplaceEntry_EncryptionFailureWritesNothingNew(t *testing.T) {
	mem := remote.NewMemoryStore()
	ctx := context.Background()
	e1 := models.JournalEntry{ID: "E1", RootID: "R1", DescriptionText: "before"}

	_, err := newRemoteJournal(mem, testCodec()).ReplaceEntry(ctx, e1, []image.Image{imgA}, password)
	require.NoError(t, err)
	before, err := mem.Collection(common.CollectionEntries).Get(ctx, "E1")
	require.NoError(t, err)

	codec := &flakyCodec{Codec: testCodec(), failAt: 2}
	j := newRemoteJournal(mem, codec)
	e1.DescriptionText = "after"
	_, err = j.ReplaceEntry(ctx, e1, []image.Image{imgA, imgB, imgA}, password)
	require.ErrorIs(t, err, common.ErrEncryption)
	var se *saga.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "encrypt-photos", se.Stage)
	assert.Equal(t, 2, codec.calls, "encryption stops at the first failure")

	after, err := mem.Collection(common.CollectionEntries).Get(ctx, "E1")
	require.NoError(t, err)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("entry document changed (-before +after):\n%s", diff)
	}
	assert.Empty(t, docIDs(t, mem, common.CollectionPhotos, models.FieldJournalEntryRef, "E1"))
}

func TestChangeRootFields_PartialPatch(t *testing.T) {
	mem := remote.NewMemoryStore()
	seedR1(t, mem)
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()

	require.NoError(t, j.ChangeRootFields(ctx, "R1", models.RootPatch{NumberOfCountries: models.Ptr(3)}))
	roots, err := j.ListRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "R1", roots[0].ID)
	assert.Equal(t, "Alps", roots[0].Title)
	assert.Equal(t, 3, roots[0].NumberOfCountries)
	assert.Equal(t, 2, roots[0].NumberOfEntries)
	assert.Equal(t, t0, roots[0].CreationDate)

	mem.ResetCalls()
	require.NoError(t, j.ChangeRootFields(ctx, "R1", models.RootPatch{SyncState: models.Ptr(models.SyncSynced)}))
	assert.Empty(t, mem.Calls(), "local-only fields are never sent")

	err = j.ChangeRootFields(ctx, "missing", models.RootPatch{Title: models.Ptr("x")})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPhotoNames_StopAtFirstGap(t *testing.T) {
	f := remote.Fields{"image0": "a", "image1": "b", "image3": "d"}
	assert.Equal(t, []string{"a", "b"}, photoNames(f))
	assert.Nil(t, photoNames(remote.Fields{}))
}

func TestLoadEntryPhotos(t *testing.T) {
	mem := remote.NewMemoryStore()
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()
	_, err := j.ReplaceEntry(ctx, models.JournalEntry{ID: "E1", RootID: "R1"}, []image.Image{imgA, imgB}, password)
	require.NoError(t, err)

	files, err := photofs.New(filepath.Join(t.TempDir(), "p"), imaging.Default{})
	require.NoError(t, err)

	t.Run("wrong password fails whole load", func(t *testing.T) {
		photos, err := j.LoadEntryPhotos(ctx, "E1", []byte("nope"), files)
		require.ErrorIs(t, err, common.ErrDecryption)
		assert.Nil(t, photos)
		entries, err := os.ReadDir(files.Dir())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("corrupt second photo writes nothing", func(t *testing.T) {
		doc, err := mem.Collection(common.CollectionEntries).Get(ctx, "E1")
		require.NoError(t, err)
		second := photoNames(doc.Fields)[1]
		require.NoError(t, mem.Collection(common.CollectionPhotos).Update(ctx, second, map[string]any{models.FieldImage: "AAAA"}))

		_, err = j.LoadEntryPhotos(ctx, "E1", password, files)
		require.ErrorIs(t, err, common.ErrDecryption)
		entries, err := os.ReadDir(files.Dir())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestLoadEntryPhotos_RoundTrip(t *testing.T) {
	mem := remote.NewMemoryStore()
	j := newRemoteJournal(mem, testCodec())
	ctx := context.Background()
	_, err := j.ReplaceEntry(ctx, models.JournalEntry{ID: "E1", RootID: "R1"}, []image.Image{imgA, imgB}, password)
	require.NoError(t, err)

	files, err := photofs.New(filepath.Join(t.TempDir(), "p"), imaging.Default{})
	require.NoError(t, err)

	photos, err := j.LoadEntryPhotos(ctx, "E1", password, files)
	require.NoError(t, err)
	require.Len(t, photos, 2)

	doc, err := mem.Collection(common.CollectionEntries).Get(ctx, "E1")
	require.NoError(t, err)
	for _, name := range (models.JournalEntry{Photos: photos}).PhotoNames() {
		assert.NotContains(t, photoNames(doc.Fields), name, "local files get their own names")
	}

	want, err := imaging.Default{}.EncodeJPEG(imgB, imaging.RemoteQuality)
	require.NoError(t, err)
	got, err := files.Read(photos[1])
	require.NoError(t, err)
	assert.Equal(t, want, got)

	t.Run("reload keeps earlier files", func(t *testing.T) {
		again, err := j.LoadEntryPhotos(ctx, "E1", password, files)
		require.NoError(t, err)
		assert.NotEqual(t, photos, again)
		for _, p := range append(photos, again...) {
			_, err := files.Read(p)
			require.NoError(t, err)
		}
	})
}
