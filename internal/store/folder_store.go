package store

import (
	"context"

	"github.com/nhle/kilamea/internal/model"
)

// AddFolder inserts a folder row. The folder's messages are not written.
func (s *SQLiteStore) AddFolder(ctx context.Context, folder *model.Folder) error {
	if err := s.checkConnection(); err != nil {
		return err
	}
	if err := insertFolder(ctx, s.db, folder); err != nil {
		return storageErrorf(err, "adding folder %s", folder.Name)
	}
	return nil
}

// UpdateFolderName renames a folder.
func (s *SQLiteStore) UpdateFolderName(ctx context.Context, id, name string) error {
	return s.execAffectingOne(ctx, "renaming folder", id,
		"UPDATE folders SET name = ? WHERE id = ?", name, id,
	)
}

// DeleteFolder removes a folder with its messages and their attachments.
func (s *SQLiteStore) DeleteFolder(ctx context.Context, id string) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErrorf(err, "deleting folder %s", id)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM attachments WHERE message IN (
			SELECT id FROM messages WHERE folder = ?)`, id)
	if err != nil {
		return storageErrorf(err, "deleting attachments of folder %s", id)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE folder = ?", id); err != nil {
		return storageErrorf(err, "deleting messages of folder %s", id)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return storageErrorf(err, "deleting folder %s", id)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storageErrorf(ErrNotFound, "deleting folder %s", id)
	}

	if err := tx.Commit(); err != nil {
		return storageErrorf(err, "deleting folder %s", id)
	}
	return nil
}
