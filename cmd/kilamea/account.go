package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/kilamea/internal/credential"
	"github.com/nhle/kilamea/internal/model"
)

type accountOptions struct {
	name         string
	user         string
	password     string
	useKeyring   bool
	protocol     string
	noSSL        bool
	incomingHost string
	incomingPort int
	outgoingHost string
	outgoingPort int
}

func (o *accountOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.name, "name", "", "Display name")
	cmd.Flags().StringVar(&o.user, "user", "", "Login user (defaults to the address)")
	cmd.Flags().StringVar(&o.password, "password", "", "Login password")
	cmd.Flags().BoolVar(&o.useKeyring, "keyring", false, "Keep the password in the system keyring instead of the database")
	cmd.Flags().StringVar(&o.protocol, "protocol", "imap", "Incoming protocol: imap, pop3 or smtp (send only)")
	cmd.Flags().BoolVar(&o.noSSL, "no-ssl", false, "Disable TLS")
	cmd.Flags().StringVar(&o.incomingHost, "incoming-host", "", "Incoming mail server")
	cmd.Flags().IntVar(&o.incomingPort, "incoming-port", 0, "Incoming port (0 picks the protocol default)")
	cmd.Flags().StringVar(&o.outgoingHost, "outgoing-host", "", "SMTP server")
	cmd.Flags().IntVar(&o.outgoingPort, "outgoing-port", 0, "SMTP port (0 picks the default)")
}

// apply copies the flags that were set onto account.
func (o *accountOptions) apply(cmd *cobra.Command, account *model.Account) error {
	changed := cmd.Flags().Changed

	if changed("name") {
		account.DisplayName = o.name
	}
	if changed("user") {
		account.User = o.user
	}
	if changed("protocol") {
		p, err := model.ParseProtocol(o.protocol)
		if err != nil {
			return err
		}
		account.Protocol = p
	}
	if changed("no-ssl") {
		account.SSLActive = !o.noSSL
	}
	if changed("incoming-host") {
		account.IncomingHost = o.incomingHost
	}
	if changed("incoming-port") {
		account.IncomingPort = o.incomingPort
	}
	if changed("outgoing-host") {
		account.OutgoingHost = o.outgoingHost
	}
	if changed("outgoing-port") {
		account.OutgoingPort = o.outgoingPort
	}

	if account.IncomingPort == 0 {
		account.IncomingPort = account.Protocol.Port(account.SSLActive)
	}
	if account.OutgoingPort == 0 {
		account.OutgoingPort = model.ProtocolSMTP.Port(account.SSLActive)
	}
	return nil
}

// storePassword routes the password to the keyring or to the account
// row, which the store encrypts.
func (o *accountOptions) storePassword(cmd *cobra.Command, account *model.Account) error {
	if !cmd.Flags().Changed("password") {
		return nil
	}
	if o.useKeyring {
		if err := credential.SetPassword(account.Email, o.password); err != nil {
			return err
		}
		account.Password = ""
		return nil
	}
	account.Password = o.password
	return nil
}

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage mail accounts",
	}

	cmd.AddCommand(
		newAccountAddCmd(a),
		newAccountSetCmd(a),
		newAccountTokensCmd(a),
		&cobra.Command{
			Use:   "list",
			Short: "List accounts and their folders",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				renderAccounts(a.out, a.bag.Accounts)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove EMAIL",
			Short: "Remove an account with all its folders and messages",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, err := a.account(args[0])
				if err != nil {
					return err
				}
				if err := a.coord.DeleteAccount(cmd.Context(), account); err != nil {
					return err
				}
				if err := credential.DeletePassword(account.Email); err != nil {
					a.logger.Warn("removing keyring password failed", "account", account.Email, "error", err)
				}
				fmt.Fprintf(a.out, "Removed %s\n", account.Email)
				return nil
			},
		},
	)

	return cmd
}

func newAccountAddCmd(a *app) *cobra.Command {
	o := &accountOptions{}
	cmd := &cobra.Command{
		Use:   "add EMAIL",
		Short: "Add an account with its default folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account := model.NewAccount(args[0])
			if err := o.apply(cmd, account); err != nil {
				return err
			}
			if err := o.storePassword(cmd, account); err != nil {
				return err
			}
			account.InitFolders()

			if err := a.coord.AddAccount(cmd.Context(), account); err != nil {
				return err
			}
			a.bag.Options.LastMailboxEntry = account.ID

			fmt.Fprintf(a.out, "Added %s\n", account.DisplayNameAndEmail())
			return nil
		},
	}
	o.bind(cmd)
	return cmd
}

func newAccountSetCmd(a *app) *cobra.Command {
	o := &accountOptions{}
	cmd := &cobra.Command{
		Use:   "set EMAIL",
		Short: "Change account settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := a.account(args[0])
			if err != nil {
				return err
			}
			if err := o.apply(cmd, account); err != nil {
				return err
			}
			if err := o.storePassword(cmd, account); err != nil {
				return err
			}
			if err := a.coord.UpdateAccount(cmd.Context(), account); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %s\n", account.Email)
			return nil
		},
	}
	o.bind(cmd)
	return cmd
}

func newAccountTokensCmd(a *app) *cobra.Command {
	var access, refresh string
	cmd := &cobra.Command{
		Use:   "tokens EMAIL",
		Short: "Store an OAuth access and refresh token pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := a.account(args[0])
			if err != nil {
				return err
			}
			if !model.IsGmail(account.Email) {
				a.logger.Info("storing OAuth tokens for a non-Gmail account", "account", account.Email)
			}
			if err := a.coord.UpdateTokens(cmd.Context(), account, access, refresh); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated tokens of %s\n", account.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&access, "access", "", "OAuth access token")
	cmd.Flags().StringVar(&refresh, "refresh", "", "OAuth refresh token")
	return cmd
}
