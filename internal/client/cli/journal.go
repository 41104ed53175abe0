package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/phototimeline/internal/client/models"
	"github.com/spf13/cobra"
)

func (a *App) journalCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "journal", Aliases: []string{"j"}, Short: "Manage journals"}

	var localOnly bool
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create an empty journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.journal.CreateRoot(cmd.Context(), args[0], localOnly)
			if root != nil {
				a.printf("%s\t%s\n", root.ID, root.SyncState)
			}
			return err
		},
	}
	create.Flags().BoolVar(&localOnly, "local-only", false, "keep the journal on this device until 'sync retry'")

	var fromRemote bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List journals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				roots []models.JournalRoot
				err   error
			)
			if fromRemote {
				roots, err = a.journal.ListRemoteRoots(cmd.Context())
			} else {
				roots, err = a.journal.ListRoots(cmd.Context())
			}
			if err != nil {
				return err
			}
			a.printRoots(roots)
			return nil
		},
	}
	list.Flags().BoolVar(&fromRemote, "remote", false, "list the journals stored on the server")

	rename := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change a journal's title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.journal.RenameRoot(cmd.Context(), args[0], args[1])
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a journal with all its entries and photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.journal.DeleteRoot(cmd.Context(), args[0])
		},
	}

	pull := &cobra.Command{
		Use:   "pull <id>",
		Short: "Replace the local copy of a journal with the server's",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.journal.PullRoot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("pulled %q with %d entries; fetch photos with 'entry photos'\n", root.Title, len(root.Entries))
			return nil
		},
	}

	cmd.AddCommand(create, list, rename, del, pull)
	return cmd
}

func (a *App) printRoots(roots []models.JournalRoot) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tENTRIES\tCOUNTRIES\tMODIFIED\tSTATE")
	for _, r := range roots {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", r.ID, r.Title, r.NumberOfEntries, r.NumberOfCountries,
			r.LastModifiedDate.Local().Format("2006-01-02 15:04"), r.SyncState)
	}
	_ = w.Flush()
}
