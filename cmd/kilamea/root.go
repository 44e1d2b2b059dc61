package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/kilamea/internal/credential"
	"github.com/nhle/kilamea/internal/model"
	"github.com/nhle/kilamea/internal/store"
	ksync "github.com/nhle/kilamea/internal/sync"
	"github.com/nhle/kilamea/internal/transport"
)

// app holds everything a command needs once the store is open.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	out    io.Writer
	cfg    *model.AppConfig
	logger *slog.Logger
	store  *store.SQLiteStore
	bag    *model.Bag
	coord  *ksync.Coordinator
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "kilamea",
		Short:         "Kilamea - local mail store with IMAP/SMTP sync",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", model.DefaultConfigPath(), "Path to the configuration file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Database path (overrides the configuration)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd == root {
			return nil
		}
		return a.open(cmd.Context())
	}

	root.AddCommand(
		newAccountCmd(a),
		newFolderCmd(a),
		newContactCmd(a),
		newReceiveCmd(a),
		newSendCmd(a),
		newSearchCmd(a),
		newMessageCmd(a),
		newOptionsCmd(a),
		newWatchCmd(a),
	)

	return root
}

// open loads configuration, connects the store and loads the bag.
func (a *app) open(ctx context.Context) error {
	cfg, err := model.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log)
	slog.SetDefault(a.logger)

	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}

	s := store.New(store.WithLogger(a.logger))
	if err := s.Connect(ctx, cfg.Database.Path); err != nil {
		return err
	}
	a.store = s

	bag := model.NewBag()
	if err := s.LoadAccounts(ctx, bag); err != nil {
		return err
	}
	if err := s.LoadContacts(ctx, bag); err != nil {
		return err
	}
	if err := s.LoadOptions(ctx, bag); err != nil {
		return err
	}
	a.resolvePasswords(bag)
	a.bag = bag

	client := transport.NewClient(
		transport.WithLogger(a.logger),
		transport.WithTimeout(cfg.Sync.Timeout()),
	)
	a.coord = ksync.NewCoordinator(s, client, bag,
		ksync.WithLogger(a.logger),
		ksync.WithConcurrency(cfg.Sync.Concurrency),
	)

	a.logger.Debug("store opened",
		"path", cfg.Database.Path,
		"accounts", len(bag.Accounts),
		"contacts", len(bag.Contacts),
	)
	return nil
}

// close saves options and disconnects. It is safe to call when open
// never ran.
func (a *app) close(ctx context.Context) error {
	if a.store == nil || !a.store.Connected() {
		return nil
	}
	var errs []error
	if a.bag != nil {
		errs = append(errs, a.store.SaveOptions(ctx, a.bag))
	}
	errs = append(errs, a.store.Disconnect())
	return errors.Join(errs...)
}

// resolvePasswords fills in passwords kept in the system keyring for
// accounts that have none in the database.
func (a *app) resolvePasswords(bag *model.Bag) {
	for _, account := range bag.Accounts {
		if account.Password != "" {
			continue
		}
		password, err := credential.GetPassword(account.Email)
		if err != nil {
			if !errors.Is(err, credential.ErrNotFound) {
				a.logger.Debug("keyring lookup failed", "account", account.Email, "error", err)
			}
			continue
		}
		account.Password = password
	}
}

func newLogger(cfg model.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// account resolves an account by address. An empty address selects
// the last used mailbox entry.
func (a *app) account(email string) (*model.Account, error) {
	if email == "" {
		entry := a.bag.FindLastMailboxEntry()
		if entry == nil {
			return nil, errors.New("no accounts configured")
		}
		return entry.Account, nil
	}
	account := a.bag.AccountByEmail(email)
	if account == nil {
		return nil, fmt.Errorf("no account %s", email)
	}
	return account, nil
}

func (a *app) folder(account *model.Account, name string) (*model.Folder, error) {
	folder := account.FolderByName(name)
	if folder == nil {
		return nil, fmt.Errorf("no folder %q in %s", name, account.Email)
	}
	return folder, nil
}

// message finds a message by full ID or unique ID prefix.
func (a *app) message(id string) (*model.Account, *model.Message, error) {
	var (
		foundAccount *model.Account
		found        *model.Message
	)
	for _, account := range a.bag.Accounts {
		for _, folder := range account.Folders {
			for _, msg := range folder.Messages {
				if msg.ID == id {
					return account, msg, nil
				}
				if strings.HasPrefix(msg.ID, id) {
					if found != nil {
						return nil, nil, fmt.Errorf("message id %q is ambiguous", id)
					}
					foundAccount, found = account, msg
				}
			}
		}
	}
	if found == nil {
		return nil, nil, fmt.Errorf("no message %s", id)
	}
	return foundAccount, found, nil
}
