package services

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/client/gate"
	"github.com/dmitrijs2005/phototimeline/internal/client/imaging"
	"github.com/dmitrijs2005/phototimeline/internal/client/localstore"
	"github.com/dmitrijs2005/phototimeline/internal/client/photofs"
	"github.com/dmitrijs2005/phototimeline/internal/client/storage"
	"github.com/dmitrijs2005/phototimeline/internal/cryptox"
	"github.com/dmitrijs2005/phototimeline/internal/logging"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"github.com/stretchr/testify/require"
)

var (
	t0       = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	password = []byte("correct horse")
)

func testCodec() cryptox.Codec {
	return cryptox.NewAESGCMCodecWithParams(cryptox.KDFParams{Time: 1, Memory: 8 * 1024, Threads: 1})
}

func picture(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

var (
	imgA = picture(color.RGBA{R: 255, A: 255})
	imgB = picture(color.RGBA{B: 255, A: 255})
)

type fixedGate struct {
	decision gate.Decision
	calls    int
}

func (g *fixedGate) Decide(context.Context) gate.Decision {
	g.calls++
	return g.decision
}

type env struct {
	mem     *remote.MemoryStore
	remote  *RemoteJournal
	local   *localstore.Store
	files   *photofs.Store
	gate    *fixedGate
	journal *JournalService
	clock   time.Time
}

func newRemoteJournal(mem *remote.MemoryStore, codec cryptox.Codec) *RemoteJournal {
	j := NewRemoteJournal(mem, codec, imaging.Default{}, logging.NopLogger{})
	j.now = func() time.Time { return t0.Add(time.Hour) }
	return j
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvOn(t, remote.NewMemoryStore())
}

// newEnvOn builds a second device sharing the remote store mem.
func newEnvOn(t *testing.T, mem *remote.MemoryStore) *env {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	files, err := photofs.New(filepath.Join(t.TempDir(), "photos"), imaging.Default{})
	require.NoError(t, err)

	e := &env{
		mem:   mem,
		local: localstore.New(db),
		files: files,
		gate:  &fixedGate{decision: gate.Attempt},
		clock: t0,
	}
	e.remote = newRemoteJournal(e.mem, testCodec())
	e.journal = NewJournalService(e.local, e.remote, e.gate, files, logging.NopLogger{})
	e.journal.now = func() time.Time {
		e.clock = e.clock.Add(time.Minute)
		return e.clock
	}
	return e
}

// docIDs returns the ids of the documents in coll whose field equals value.
func docIDs(t *testing.T, mem *remote.MemoryStore, coll, field, value string) []string {
	t.Helper()
	docs, err := mem.Collection(coll).Query(context.Background(), field, value)
	require.NoError(t, err)
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}
