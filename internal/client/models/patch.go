package models

import "time"

// Remote document field names shared by the local patch mapping and the
// remote document codec.
const (
	FieldTitle             = "title"
	FieldCreationDate      = "creationDate"
	FieldLastModifiedDate  = "lastModifiedDate"
	FieldNumberOfCountries = "numberOfCountries"
	FieldNumberOfEntries   = "numberOfEntries"
	FieldEntryID           = "entryID"
	FieldJournalRootRef    = "journalRootRef"
	FieldJournalEntryRef   = "journalEntryRef"
	FieldDescriptionText   = "descriptionText"
	FieldLocationName      = "locationName"
	FieldLocationLatitude  = "locationLatitude"
	FieldLocationLongitude = "locationLongitude"
	FieldLocationRegionID  = "locationRegionID"
	FieldImage             = "image"
	FieldImageName         = "imageName"
	FieldImagePrefix       = "image"
)

// RootPatch is a partial update of a root. Nil fields are left untouched
// both locally and remotely.
type RootPatch struct {
	Title             *string
	LastModifiedDate  *time.Time
	NumberOfCountries *int
	NumberOfEntries   *int

	// SyncState is local bookkeeping and never sent to the remote store.
	SyncState *SyncState
}

// IsEmpty reports whether the patch touches nothing.
func (p RootPatch) IsEmpty() bool {
	return p.Title == nil && p.LastModifiedDate == nil && p.NumberOfCountries == nil &&
		p.NumberOfEntries == nil && p.SyncState == nil
}

// Fields returns the remote document fields for exactly the non-nil
// remote-visible members.
func (p RootPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.Title != nil {
		f[FieldTitle] = *p.Title
	}
	if p.LastModifiedDate != nil {
		f[FieldLastModifiedDate] = p.LastModifiedDate.UTC()
	}
	if p.NumberOfCountries != nil {
		f[FieldNumberOfCountries] = *p.NumberOfCountries
	}
	if p.NumberOfEntries != nil {
		f[FieldNumberOfEntries] = *p.NumberOfEntries
	}
	return f
}

// Apply copies the non-nil members onto r.
func (p RootPatch) Apply(r *JournalRoot) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.LastModifiedDate != nil {
		r.LastModifiedDate = *p.LastModifiedDate
	}
	if p.NumberOfCountries != nil {
		r.NumberOfCountries = *p.NumberOfCountries
	}
	if p.NumberOfEntries != nil {
		r.NumberOfEntries = *p.NumberOfEntries
	}
	if p.SyncState != nil {
		r.SyncState = *p.SyncState
	}
}

// EntryPatch is a partial update of an entry's scalar fields. Photos are
// only ever changed by replacing the entry.
type EntryPatch struct {
	DescriptionText  *string
	LastModifiedDate *time.Time
	Location         *Location
	SyncState        *SyncState
}

// IsEmpty reports whether the patch touches nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.DescriptionText == nil && p.LastModifiedDate == nil && p.Location == nil && p.SyncState == nil
}
