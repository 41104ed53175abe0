package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/phototimeline/internal/server/auth"
	"github.com/dmitrijs2005/phototimeline/internal/server/config"
	"github.com/spf13/cobra"
)

func newRootCommand(cfg *config.Config, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "phototimeline-server",
		Short:         "Document server for phototimeline journals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	config.RegisterFlags(root.PersistentFlags(), cfg)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC document server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := NewApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}

	var userID string
	token := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("user id must not be empty")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			tok, err := auth.GenerateToken(userID, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	token.Flags().StringVar(&userID, "user", "", "user id the token is issued to")
	_ = token.MarkFlagRequired("user")

	root.AddCommand(serve, token)
	return root
}

// Execute runs the server command line. Flags override the environment,
// which overrides the config file.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	root := newRootCommand(cfg, out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
