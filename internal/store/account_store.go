package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/kilamea/internal/model"
)

// AddAccount inserts an account together with its folders. Missing
// default folders are created on the account first, so a fresh account
// is persisted with its Inbox, Drafts, Sent, Archive and Trash.
func (s *SQLiteStore) AddAccount(ctx context.Context, account *model.Account) error {
	if err := s.checkConnection(); err != nil {
		return err
	}
	if account.ID == "" {
		account.ID = model.NewID()
	}
	account.InitFolders()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErrorf(err, "adding account %s", account.Email)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, display_name, user, password, tokens,
			protocol, ssl_active,
			incoming_host, incoming_port, outgoing_host, outgoing_port
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Email, account.DisplayName, account.User,
		s.encryptPassword(account.ID, account.Password), account.Tokens,
		int(account.Protocol), boolToInt(account.SSLActive),
		account.IncomingHost, account.IncomingPort,
		account.OutgoingHost, account.OutgoingPort,
	)
	if err != nil {
		return storageErrorf(err, "adding account %s", account.Email)
	}

	for _, f := range account.Folders {
		f.AccountID = account.ID
		if err := insertFolder(ctx, tx, f); err != nil {
			return storageErrorf(err, "adding account %s", account.Email)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErrorf(err, "adding account %s", account.Email)
	}
	return nil
}

// UpdateAccount rewrites every column of an existing account row.
func (s *SQLiteStore) UpdateAccount(ctx context.Context, account *model.Account) error {
	return s.execAffectingOne(ctx, "updating account", account.ID, `
		UPDATE accounts SET
			email = ?, display_name = ?, user = ?, password = ?, tokens = ?,
			protocol = ?, ssl_active = ?,
			incoming_host = ?, incoming_port = ?,
			outgoing_host = ?, outgoing_port = ?
		WHERE id = ?`,
		account.Email, account.DisplayName, account.User,
		s.encryptPassword(account.ID, account.Password), account.Tokens,
		int(account.Protocol), boolToInt(account.SSLActive),
		account.IncomingHost, account.IncomingPort,
		account.OutgoingHost, account.OutgoingPort,
		account.ID,
	)
}

// UpdateAccountTokens stores a refreshed OAuth token pair without
// touching the rest of the account.
func (s *SQLiteStore) UpdateAccountTokens(ctx context.Context, id, tokens string) error {
	return s.execAffectingOne(ctx, "updating tokens of account", id,
		"UPDATE accounts SET tokens = ? WHERE id = ?", tokens, id,
	)
}

// DeleteAccount removes an account and everything it owns in one
// transaction: attachments, messages, folders, then the account row.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErrorf(err, "deleting account %s", id)
	}
	defer tx.Rollback()

	steps := []struct {
		what  string
		query string
	}{
		{"attachments", `
			DELETE FROM attachments WHERE message IN (
				SELECT m.id FROM messages m
				JOIN folders f ON f.id = m.folder
				WHERE f.account = ?)`},
		{"messages", `
			DELETE FROM messages WHERE folder IN (
				SELECT id FROM folders WHERE account = ?)`},
		{"folders", "DELETE FROM folders WHERE account = ?"},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
			return storageErrorf(err, "deleting %s of account %s", step.what, id)
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return storageErrorf(err, "deleting account %s", id)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storageErrorf(ErrNotFound, "deleting account %s", id)
	}

	if err := tx.Commit(); err != nil {
		return storageErrorf(err, "deleting account %s", id)
	}
	return nil
}

func insertFolder(ctx context.Context, ex sqlx.ExecerContext, f *model.Folder) error {
	if f.ID == "" {
		f.ID = model.NewID()
	}
	_, err := ex.ExecContext(ctx,
		"INSERT INTO folders (id, name, type, account) VALUES (?, ?, ?, ?)",
		f.ID, f.Name, int(f.Type), f.AccountID,
	)
	if err != nil {
		return fmt.Errorf("inserting folder %s: %w", f.Name, err)
	}
	return nil
}
