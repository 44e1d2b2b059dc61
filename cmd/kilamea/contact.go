package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/kilamea/internal/model"
)

func newContactCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Manage the address book",
	}

	var first, last string
	add := &cobra.Command{
		Use:   "add EMAIL",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contact, err := a.coord.AddContact(cmd.Context(), model.NewContact(args[0], first, last))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Contact %s\n", contact.Email)
			return nil
		},
	}
	add.Flags().StringVar(&first, "first", "", "First name")
	add.Flags().StringVar(&last, "last", "", "Last name")

	cmd.AddCommand(
		add,
		&cobra.Command{
			Use:   "list",
			Short: "List contacts in the configured order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				contacts := append([]*model.Contact(nil), a.bag.Contacts...)
				model.SortContacts(contacts, a.bag.Options.ContactSortField, a.bag.Options.ContactSortOrder)
				renderContacts(a.out, contacts)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove EMAIL",
			Short: "Remove a contact",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				contact := a.bag.ContactByEmail(args[0])
				if contact == nil {
					return fmt.Errorf("no contact %s", args[0])
				}
				return a.coord.DeleteContact(cmd.Context(), contact)
			},
		},
	)

	return cmd
}
