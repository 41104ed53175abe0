package services

import (
	"strconv"

	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/dmitrijs2005/phototimeline/internal/client/photofs"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
)

func rootFields(r models.JournalRoot) map[string]any {
	return map[string]any{
		models.FieldEntryID:           r.ID,
		models.FieldTitle:             r.Title,
		models.FieldCreationDate:      r.CreationDate.UTC(),
		models.FieldLastModifiedDate:  r.LastModifiedDate.UTC(),
		models.FieldNumberOfCountries: r.NumberOfCountries,
		models.FieldNumberOfEntries:   r.NumberOfEntries,
	}
}

func rootFromDocument(d remote.Document) models.JournalRoot {
	return models.JournalRoot{
		ID:                d.ID,
		Title:             d.Fields.String(models.FieldTitle),
		CreationDate:      d.Fields.Time(models.FieldCreationDate),
		LastModifiedDate:  d.Fields.Time(models.FieldLastModifiedDate),
		NumberOfCountries: d.Fields.Int(models.FieldNumberOfCountries),
		NumberOfEntries:   d.Fields.Int(models.FieldNumberOfEntries),
		SyncState:         models.SyncSynced,
	}
}

func imageField(i int) string {
	return models.FieldImagePrefix + strconv.Itoa(i)
}

// entryFields builds the full entry document. names are the remote photo
// names stored as image0..imageN.
func entryFields(e models.JournalEntry, names []string) map[string]any {
	f := map[string]any{
		models.FieldEntryID:           e.ID,
		models.FieldJournalRootRef:    e.RootID,
		models.FieldDescriptionText:   e.DescriptionText,
		models.FieldCreationDate:      e.CreationDate.UTC(),
		models.FieldLastModifiedDate:  e.LastModifiedDate.UTC(),
		models.FieldLocationName:      e.Location.Name,
		models.FieldLocationLatitude:  e.Location.Latitude,
		models.FieldLocationLongitude: e.Location.Longitude,
		models.FieldLocationRegionID:  e.Location.RegionID,
	}
	for i, name := range names {
		f[imageField(i)] = name
	}
	return f
}

// photoNames reads image0, image1, ... up to the first missing index.
func photoNames(f remote.Fields) []string {
	var names []string
	for i := 0; ; i++ {
		name := f.String(imageField(i))
		if name == "" {
			return names
		}
		names = append(names, name)
	}
}

func entryFromDocument(d remote.Document) models.JournalEntry {
	e := models.JournalEntry{
		ID:               d.ID,
		RootID:           d.Fields.String(models.FieldJournalRootRef),
		DescriptionText:  d.Fields.String(models.FieldDescriptionText),
		CreationDate:     d.Fields.Time(models.FieldCreationDate),
		LastModifiedDate: d.Fields.Time(models.FieldLastModifiedDate),
		Location: models.Location{
			Name:      d.Fields.String(models.FieldLocationName),
			Latitude:  d.Fields.Float(models.FieldLocationLatitude),
			Longitude: d.Fields.Float(models.FieldLocationLongitude),
			RegionID:  d.Fields.String(models.FieldLocationRegionID),
		},
		SyncState: models.SyncSynced,
	}
	for _, name := range photoNames(d.Fields) {
		e.Photos = append(e.Photos, photofs.PhotoFor(name))
	}
	return e
}

func photoFields(rootID, entryID, name, payload string) map[string]any {
	return map[string]any{
		models.FieldJournalRootRef:  rootID,
		models.FieldJournalEntryRef: entryID,
		models.FieldImage:           payload,
		models.FieldImageName:       name,
	}
}
