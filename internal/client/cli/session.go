package cli

import (
	"bytes"
	"errors"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/spf13/cobra"
)

func (a *App) passwordCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "password", Short: "Manage the photo encryption password"}
	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Set the password photos are encrypted with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := GetPassword(a.out, "New photo password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			again, err := GetPassword(a.out, "Repeat password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(again)
			if !bytes.Equal(pw, again) {
				return errors.New("passwords do not match")
			}
			if err := a.passwords.Set(cmd.Context(), pw); err != nil {
				return err
			}
			a.printf("Password set. Photos already uploaded keep their old password.\n")
			return nil
		},
	})
	return cmd
}

func (a *App) signInCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signin <token>",
		Short: "Store an access token issued by the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.SignIn(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Signed in.\n")
			return nil
		},
	}
}

func (a *App) signOutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the access token; changes stay local until the next sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.SignOut(cmd.Context()); err != nil {
				return err
			}
			a.printf("Signed out.\n")
			return nil
		},
	}
}

func (a *App) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether remote changes would be attempted now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			uid, err := a.session.UserID(ctx)
			if err != nil {
				uid = "-"
			}
			pw, err := a.passwords.IsSet(ctx)
			if err != nil {
				return err
			}
			a.printf("user: %s\nremote: %s\npassword set: %t\n", uid, a.gate.Decide(ctx), pw)
			return nil
		},
	}
}
