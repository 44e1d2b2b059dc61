package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/kilamea/internal/model"
)

var (
	// ErrNotConnected is returned by every operation issued before
	// Connect or after Disconnect.
	ErrNotConnected = errors.New("not connected")

	// ErrNotFound is returned when an update or delete matches no row.
	ErrNotFound = errors.New("not found")
)

// StorageError wraps a failure of the underlying database with a
// human-readable description of what was being done.
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return "storage error: " + e.Message
	}
	return fmt.Sprintf("storage error: %s: %v", e.Message, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErrorf builds a StorageError around err.
func storageErrorf(err error, format string, args ...any) error {
	return &StorageError{Message: fmt.Sprintf(format, args...), Err: err}
}

// Store defines the persistence interface for the local mail cache.
// Implementations are not safe for concurrent use by multiple writers;
// callers serialize access.
type Store interface {
	// === Accounts ===

	AddAccount(ctx context.Context, account *model.Account) error
	UpdateAccount(ctx context.Context, account *model.Account) error
	UpdateAccountTokens(ctx context.Context, id, tokens string) error
	DeleteAccount(ctx context.Context, id string) error

	// === Folders ===

	AddFolder(ctx context.Context, folder *model.Folder) error
	UpdateFolderName(ctx context.Context, id, name string) error
	DeleteFolder(ctx context.Context, id string) error

	// === Messages ===

	AddMessage(ctx context.Context, msg *model.Message) error
	UpdateMessageFolder(ctx context.Context, id, folderID string) error
	UpdateMessageUnread(ctx context.Context, id string, unread bool) error
	DeleteMessage(ctx context.Context, id string) error
	ApplyMessageFilter(ctx context.Context, folder *model.Folder) error
	MessageReferences(ctx context.Context, folderID string) (map[string]struct{}, error)

	// === Attachments ===

	AddAttachment(ctx context.Context, att *model.Attachment) error
	DeleteAttachment(ctx context.Context, id string) error

	// === Contacts ===

	AddContact(ctx context.Context, contact *model.Contact) error
	UpdateContact(ctx context.Context, contact *model.Contact) error
	DeleteContact(ctx context.Context, id string) error

	// === Bag hydration ===

	LoadAccounts(ctx context.Context, bag *model.Bag) error
	LoadContacts(ctx context.Context, bag *model.Bag) error
	LoadOptions(ctx context.Context, bag *model.Bag) error
	SaveOptions(ctx context.Context, bag *model.Bag) error
}
