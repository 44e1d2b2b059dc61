package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/kilamea/internal/model"
)

// optionSetters maps option keys to parsers that update the options.
var optionSetters = map[string]func(o *model.Options, value string) error{
	"mail-sort-field": func(o *model.Options, v string) error {
		f, err := model.ParseSortField(v)
		o.MailSortField = f
		return err
	},
	"mail-sort-order": func(o *model.Options, v string) error {
		ord, err := model.ParseSortOrder(v)
		o.MailSortOrder = ord
		return err
	},
	"contact-sort-field": func(o *model.Options, v string) error {
		f, err := model.ParseSortField(v)
		o.ContactSortField = f
		return err
	},
	"contact-sort-order": func(o *model.Options, v string) error {
		ord, err := model.ParseSortOrder(v)
		o.ContactSortOrder = ord
		return err
	},
	"retrieve-on-start": func(o *model.Options, v string) error {
		b, err := strconv.ParseBool(v)
		o.RetrieveOnStart = b
		return err
	},
	"delete-from-server": func(o *model.Options, v string) error {
		b, err := strconv.ParseBool(v)
		o.DeleteFromServer = b
		return err
	},
}

func newOptionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show or change preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderOptions(a.out, a.bag.Options)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := optionSetters[args[0]]
			if !ok {
				return fmt.Errorf("unknown option %q", args[0])
			}
			opts := a.bag.Options
			if err := set(&opts, args[1]); err != nil {
				return err
			}
			a.bag.Options = opts
			return a.store.SaveOptions(cmd.Context(), a.bag)
		},
	})

	return cmd
}
