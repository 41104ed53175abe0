package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeRollup(t *testing.T) {
	entries := []JournalEntry{
		{ID: "a", Location: Location{Latitude: 48.85, Longitude: 2.35}},
		{ID: "b", Location: Location{Latitude: 0, Longitude: 2.35}},
		{ID: "c", Location: Location{Latitude: 51.5, Longitude: 0}},
		{ID: "d"},
		{ID: "e", Location: Location{Latitude: -33.9, Longitude: 151.2}},
	}

	r := ComputeRollup(entries)
	assert.Equal(t, Rollup{Countries: 2, Entries: 5}, r)
	assert.Equal(t, Rollup{}, ComputeRollup(nil))
}

func TestRollupPatch(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := Rollup{Countries: 1, Entries: 3}.Patch(now)

	assert.Nil(t, p.Title)
	assert.Equal(t, map[string]any{
		FieldNumberOfCountries: 1,
		FieldNumberOfEntries:   3,
		FieldLastModifiedDate:  now,
	}, p.Fields())
}

func TestRootPatch_FieldsOnlyNonNil(t *testing.T) {
	assert.Empty(t, RootPatch{}.Fields())
	assert.True(t, RootPatch{}.IsEmpty())

	p := RootPatch{Title: Ptr("Japan"), SyncState: Ptr(SyncSynced)}
	assert.False(t, p.IsEmpty())
	assert.Equal(t, map[string]any{FieldTitle: "Japan"}, p.Fields())
}

func TestRootPatch_Apply(t *testing.T) {
	r := JournalRoot{ID: "r", Title: "old", NumberOfEntries: 4, NumberOfCountries: 2}
	RootPatch{Title: Ptr("new"), NumberOfCountries: Ptr(0)}.Apply(&r)

	assert.Equal(t, "new", r.Title)
	assert.Equal(t, 0, r.NumberOfCountries)
	assert.Equal(t, 4, r.NumberOfEntries)
}

func TestSyncState(t *testing.T) {
	assert.Equal(t, "local-only", SyncLocalOnly.String())
	assert.Equal(t, "pending-remote", SyncPendingRemote.String())
	assert.Equal(t, "synced", SyncSynced.String())
	assert.Equal(t, "SyncState(9)", SyncState(9).String())

	assert.True(t, SyncLocalOnly.NeedsRetry())
	assert.True(t, SyncPendingRemote.NeedsRetry())
	assert.False(t, SyncSynced.NeedsRetry())
}

func TestPhotoNames(t *testing.T) {
	e := JournalEntry{Photos: []Photo{{FullName: "a", ThumbName: "thumb_a"}, {FullName: "b", ThumbName: "thumb_b"}}}
	assert.Equal(t, []string{"a", "b"}, e.PhotoNames())
}
