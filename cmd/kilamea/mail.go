package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/kilamea/internal/model"
	ksync "github.com/nhle/kilamea/internal/sync"
)

func newReceiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "receive [EMAIL]",
		Short: "Retrieve unread mail into the Inbox of one or all accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				results := a.coord.ReceiveAll(cmd.Context())
				renderReceiveResults(a.out, results)
				for _, r := range results {
					if r.Err != nil {
						return errors.New("some accounts failed to receive")
					}
				}
				return nil
			}

			account, err := a.account(args[0])
			if err != nil {
				return err
			}
			res, err := a.coord.Receive(cmd.Context(), account)
			renderReceiveResults(a.out, []*ksync.ReceiveResult{res})
			return err
		},
	}
}

type composeOptions struct {
	from     string
	to       string
	cc       string
	bcc      string
	subject  string
	body     string
	bodyFile string
	attach   []string
	draft    bool
}

func (o *composeOptions) message() (*model.Message, error) {
	msg := model.NewMessage()
	msg.To = o.to
	msg.Cc = o.cc
	msg.Bcc = o.bcc
	msg.Subject = o.subject
	msg.Content = o.body

	if o.bodyFile != "" {
		data, err := os.ReadFile(o.bodyFile)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		msg.Content = string(data)
	}

	for _, path := range o.attach {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading attachment: %w", err)
		}
		msg.AddAttachment(model.NewAttachment(filepath.Base(path), data))
	}
	return msg, nil
}

func newSendCmd(a *app) *cobra.Command {
	o := &composeOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Compose and send a message, or save it as a draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := a.account(o.from)
			if err != nil {
				return err
			}
			msg, err := o.message()
			if err != nil {
				return err
			}

			if o.draft {
				if err := a.coord.SaveDraft(cmd.Context(), account, msg); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Saved draft %s\n", shortID(msg.ID))
				return nil
			}

			if err := a.coord.Send(cmd.Context(), account, msg); err != nil {
				return err
			}
			folder := a.bag.FolderByID(msg.FolderID)
			fmt.Fprintf(a.out, "Sent %s, stored in %s\n", shortID(msg.ID), folderName(folder))
			return nil
		},
	}

	cmd.Flags().StringVar(&o.from, "from", "", "Sending account (defaults to the last used one)")
	cmd.Flags().StringVar(&o.to, "to", "", "Recipients, comma separated")
	cmd.Flags().StringVar(&o.cc, "cc", "", "Cc recipients")
	cmd.Flags().StringVar(&o.bcc, "bcc", "", "Bcc recipients")
	cmd.Flags().StringVar(&o.subject, "subject", "", "Subject")
	cmd.Flags().StringVar(&o.body, "body", "", "Message text")
	cmd.Flags().StringVar(&o.bodyFile, "body-file", "", "Read the message text from a file")
	cmd.Flags().StringArrayVar(&o.attach, "attach", nil, "Attach a file (can be repeated)")
	cmd.Flags().BoolVar(&o.draft, "draft", false, "Save to Drafts instead of sending")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		email     string
		matchCase bool
	)
	cmd := &cobra.Command{
		Use:   "search FOLDER [TEXT...]",
		Short: "List a folder's messages, optionally filtered by text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := a.account(email)
			if err != nil {
				return err
			}
			folder, err := a.folder(account, args[0])
			if err != nil {
				return err
			}

			filter := model.ListFilter{
				Text:      strings.Join(args[1:], " "),
				MatchCase: matchCase,
			}

			if err := a.coord.Search(cmd.Context(), folder, filter); err != nil {
				return err
			}
			a.bag.Options.LastMailboxEntry = folder.ID

			renderMessages(a.out, account, folder)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "account", "", "Account (defaults to the last used one)")
	cmd.Flags().BoolVar(&matchCase, "match-case", false, "Match letter case")
	return cmd
}

func newMessageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Act on a stored message",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show ID",
			Short: "Print a message and mark it read",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, msg, err := a.message(args[0])
				if err != nil {
					return err
				}
				if msg.Unread {
					if err := a.coord.MarkRead(cmd.Context(), msg, true); err != nil {
						return err
					}
				}
				renderMessage(a.out, msg)
				return nil
			},
		},
		&cobra.Command{
			Use:   "unread ID",
			Short: "Mark a message unread",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, msg, err := a.message(args[0])
				if err != nil {
					return err
				}
				return a.coord.MarkRead(cmd.Context(), msg, false)
			},
		},
		&cobra.Command{
			Use:   "move ID FOLDER",
			Short: "Move a message to another folder of its account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, msg, err := a.message(args[0])
				if err != nil {
					return err
				}
				dest, err := a.folder(account, args[1])
				if err != nil {
					return err
				}
				return a.coord.MoveMessage(cmd.Context(), msg, dest)
			},
		},
		&cobra.Command{
			Use:   "copy ID FOLDER",
			Short: "Copy a message to another folder of its account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, msg, err := a.message(args[0])
				if err != nil {
					return err
				}
				dest, err := a.folder(account, args[1])
				if err != nil {
					return err
				}
				cp, err := a.coord.CopyMessage(cmd.Context(), msg, dest)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Copied as %s\n", shortID(cp.ID))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Move a message to Trash, or delete it if it is there already",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, msg, err := a.message(args[0])
				if err != nil {
					return err
				}
				return a.coord.DeleteMessage(cmd.Context(), account, msg)
			},
		},
		&cobra.Command{
			Use:   "send ID",
			Short: "Send a stored message",
			Long: "Send a stored message. A draft moves to Sent once delivered; a message\n" +
				"in any other folder stays where it is and a copy of it is sent.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				account, msg, err := a.message(args[0])
				if err != nil {
					return err
				}
				return a.coord.Send(cmd.Context(), account, msg)
			},
		},
		&cobra.Command{
			Use:   "empty-trash [EMAIL]",
			Short: "Permanently delete everything in Trash",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				email := ""
				if len(args) == 1 {
					email = args[0]
				}
				account, err := a.account(email)
				if err != nil {
					return err
				}
				return a.coord.EmptyTrash(cmd.Context(), account)
			},
		},
	)

	return cmd
}

func folderName(f *model.Folder) string {
	if f == nil {
		return "?"
	}
	return f.Name
}
