package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFolderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage custom folders",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add EMAIL NAME",
			Short: "Create a custom folder",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, err := a.account(args[0])
				if err != nil {
					return err
				}
				folder, err := a.coord.AddFolder(cmd.Context(), account, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Created %s in %s\n", folder.Name, account.Email)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename EMAIL NAME NEW_NAME",
			Short: "Rename a custom folder",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, err := a.account(args[0])
				if err != nil {
					return err
				}
				folder, err := a.folder(account, args[1])
				if err != nil {
					return err
				}
				return a.coord.RenameFolder(cmd.Context(), account, folder, args[2])
			},
		},
		&cobra.Command{
			Use:   "remove EMAIL NAME",
			Short: "Delete a custom folder and its messages",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, err := a.account(args[0])
				if err != nil {
					return err
				}
				folder, err := a.folder(account, args[1])
				if err != nil {
					return err
				}
				return a.coord.DeleteFolder(cmd.Context(), account, folder)
			},
		},
	)

	return cmd
}
