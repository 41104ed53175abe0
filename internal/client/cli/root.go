package cli

import (
	"context"
	"io"

	"github.com/dmitrijs2005/phototimeline/internal/client/config"
	"github.com/spf13/cobra"
)

// command returns the command tree bound to a. The first command that
// runs opens a.
func (a *App) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "phototimeline",
		Short:         "Photo journals kept locally and mirrored to a document server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.Open(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.AddCommand(
		a.passwordCommand(),
		a.signInCommand(),
		a.signOutCommand(),
		a.statusCommand(),
		a.journalCommand(),
		a.entryCommand(),
		a.syncCommand(),
	)
	return root
}

// Execute runs the CLI for args. Config file values are read before flags
// are registered, so flags override the file.
func Execute(ctx context.Context, args []string, in io.Reader, out io.Writer) (err error) {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	app := NewApp(cfg, in, out)
	defer func() {
		if cerr := app.Close(); err == nil {
			err = cerr
		}
	}()

	root := app.command()
	config.RegisterFlags(root.PersistentFlags(), cfg)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
