package cli

import (
	"context"
	"fmt"
	"image"
	"os"
	"text/tabwriter"

	"github.com/dmitrijs2005/phototimeline/internal/client/imaging"
	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/spf13/cobra"
)

// entryFlags are shared by add and save.
type entryFlags struct {
	text      string
	location  string
	latitude  float64
	longitude float64
	region    string
	photos    []string
	newID     string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "entry text (prompted when empty)")
	cmd.Flags().StringVar(&f.location, "location", "", "place name")
	cmd.Flags().Float64Var(&f.latitude, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&f.longitude, "lon", 0, "longitude")
	cmd.Flags().StringVar(&f.region, "region", "", "region identifier")
	cmd.Flags().StringArrayVarP(&f.photos, "photo", "p", nil, "JPEG or PNG file, repeatable, kept in order")
}

// apply copies every flag the user set onto e.
func (f *entryFlags) apply(cmd *cobra.Command, e *models.JournalEntry) {
	changed := cmd.Flags().Changed
	if changed("text") {
		e.DescriptionText = f.text
	}
	if changed("location") {
		e.Location.Name = f.location
	}
	if changed("lat") {
		e.Location.Latitude = f.latitude
	}
	if changed("lon") {
		e.Location.Longitude = f.longitude
	}
	if changed("region") {
		e.Location.RegionID = f.region
	}
}

func readImages(paths []string) ([]image.Image, error) {
	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		img, err := imaging.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// currentImages decodes the photos an entry already has on disk.
func (a *App) currentImages(e models.JournalEntry) ([]image.Image, error) {
	images := make([]image.Image, 0, len(e.Photos))
	for _, p := range e.Photos {
		b, err := a.files.Read(p)
		if err != nil {
			return nil, fmt.Errorf("photo %s is not on this device, run 'entry photos' first: %w", p.FullName, err)
		}
		img, err := imaging.Decode(b)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (a *App) findEntry(ctx context.Context, rootID, entryID string) (*models.JournalRoot, models.JournalEntry, error) {
	root, err := a.journal.GetRoot(ctx, rootID)
	if err != nil {
		return nil, models.JournalEntry{}, err
	}
	for _, e := range root.Entries {
		if e.ID == entryID {
			return root, e, nil
		}
	}
	return root, models.JournalEntry{}, fmt.Errorf("entry %s in journal %s: %w", entryID, rootID, common.ErrNotFound)
}

// passwordFor prompts only when the journal's changes leave the device.
func (a *App) passwordFor(ctx context.Context, root *models.JournalRoot) ([]byte, error) {
	if root.SyncState == models.SyncLocalOnly {
		return nil, nil
	}
	return a.password(ctx)
}

func (a *App) entryCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "entry", Aliases: []string{"e"}, Short: "Manage journal entries"}

	var addFlags entryFlags
	add := &cobra.Command{
		Use:   "add <journal-id>",
		Short: "Append an entry to a journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := a.journal.GetRoot(ctx, args[0])
			if err != nil {
				return err
			}
			var draft models.JournalEntry
			addFlags.apply(cmd, &draft)
			if !cmd.Flags().Changed("text") {
				if draft.DescriptionText, err = GetMultiline(a.in, "Entry text", a.out); err != nil {
					return err
				}
			}
			images, err := readImages(addFlags.photos)
			if err != nil {
				return err
			}
			pw, err := a.passwordFor(ctx, root)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			e, err := a.journal.AddEntry(ctx, root.ID, draft, images, pw)
			if e != nil {
				a.printf("%s\t%s\n", e.ID, e.SyncState)
			}
			return err
		},
	}
	addFlags.register(add)

	var saveFlags entryFlags
	save := &cobra.Command{
		Use:   "save <journal-id> <entry-id>",
		Short: "Edit an entry; --photo replaces the whole photo set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, old, err := a.findEntry(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			edited := old
			saveFlags.apply(cmd, &edited)
			if saveFlags.newID != "" {
				edited.ID = saveFlags.newID
			}

			var images []image.Image
			if cmd.Flags().Changed("photo") {
				images, err = readImages(saveFlags.photos)
			} else {
				images, err = a.currentImages(old)
			}
			if err != nil {
				return err
			}
			pw, err := a.passwordFor(ctx, root)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			e, err := a.journal.SaveEntry(ctx, root.ID, old.ID, edited, images, pw)
			if e != nil {
				a.printf("%s\t%s\n", e.ID, e.SyncState)
			}
			return err
		},
	}
	saveFlags.register(save)
	save.Flags().StringVar(&saveFlags.newID, "new-id", "", "store the edited entry under a new identifier")

	remove := &cobra.Command{
		Use:   "remove <journal-id> <entry-id>",
		Short: "Delete an entry and its photos",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.journal.DeleteEntry(cmd.Context(), args[0], args[1])
		},
	}

	list := &cobra.Command{
		Use:   "list <journal-id>",
		Short: "List a journal's entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.journal.GetRoot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tLOCATION\tPHOTOS\tSTATE")
			for _, e := range root.Entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.CreationDate.Local().Format("2006-01-02 15:04"),
					e.Location.Name, len(e.Photos), e.SyncState)
			}
			return w.Flush()
		},
	}

	photos := &cobra.Command{
		Use:   "photos <entry-id>",
		Short: "Download and decrypt an entry's photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pw, err := a.password(ctx)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			list, err := a.journal.PullEntryPhotos(ctx, args[0], pw)
			if err != nil {
				return err
			}
			for _, p := range list {
				path, err := a.files.Path(p.FullName)
				if err != nil {
					return err
				}
				a.printf("%s\n", path)
			}
			return nil
		},
	}

	cmd.AddCommand(add, save, remove, list, photos)
	return cmd
}
