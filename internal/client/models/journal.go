// Package models defines the client-side journal hierarchy: roots own an
// ordered list of entries, entries own an ordered list of photos.
package models

import "time"

// Photo is one locally stored picture: the full image file and its
// thumbnail, both named by the same opaque identifier.
type Photo struct {
	FullName  string
	ThumbName string
}

// Location is where an entry was written.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
	RegionID  string
}

// HasCoordinates reports whether both coordinates are set. Only such
// entries count towards a root's number of countries.
func (l Location) HasCoordinates() bool {
	return l.Latitude != 0 && l.Longitude != 0
}

// JournalEntry is a single dated note with photos. RootID is a
// back-reference used for remote queries only.
type JournalEntry struct {
	ID               string
	RootID           string
	DescriptionText  string
	CreationDate     time.Time
	LastModifiedDate time.Time
	Location         Location
	Photos           []Photo
	SyncState        SyncState
}

// PhotoNames returns the opaque names of the entry's photos in order.
func (e JournalEntry) PhotoNames() []string {
	names := make([]string, len(e.Photos))
	for i, p := range e.Photos {
		names[i] = p.FullName
	}
	return names
}

// JournalRoot is a journal. NumberOfCountries and NumberOfEntries are
// roll-up fields recomputed after every structural change to Entries.
type JournalRoot struct {
	ID                string
	Title             string
	CreationDate      time.Time
	LastModifiedDate  time.Time
	NumberOfCountries int
	NumberOfEntries   int
	SyncState         SyncState
	Entries           []JournalEntry
}

// Rollup holds the aggregate values a root derives from its entries.
type Rollup struct {
	Countries int
	Entries   int
}

// ComputeRollup counts entries and the entries that carry both coordinates.
func ComputeRollup(entries []JournalEntry) Rollup {
	r := Rollup{Entries: len(entries)}
	for _, e := range entries {
		if e.Location.HasCoordinates() {
			r.Countries++
		}
	}
	return r
}

// Patch builds the root patch that persists r together with a new
// modification time.
func (r Rollup) Patch(modified time.Time) RootPatch {
	return RootPatch{
		NumberOfCountries: Ptr(r.Countries),
		NumberOfEntries:   Ptr(r.Entries),
		LastModifiedDate:  Ptr(modified),
	}
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T { return &v }
