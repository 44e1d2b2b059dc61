package sync

import (
	"context"
	"fmt"

	"github.com/nhle/kilamea/internal/model"
)

// AddAccount persists a new account with its default folders and adds
// it to the bag.
func (c *Coordinator) AddAccount(ctx context.Context, account *model.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bag.AccountByEmail(account.Email) != nil {
		return fmt.Errorf("account %s already exists", account.Email)
	}
	if err := c.store.AddAccount(ctx, account); err != nil {
		return err
	}
	c.bag.Accounts = append(c.bag.Accounts, account)
	return nil
}

// DeleteAccount removes an account and everything it owns.
func (c *Coordinator) DeleteAccount(ctx context.Context, account *model.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteAccount(ctx, account.ID); err != nil {
		return err
	}
	c.bag.RemoveAccount(account.ID)
	return nil
}

// UpdateAccount persists changed account settings.
func (c *Coordinator) UpdateAccount(ctx context.Context, account *model.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.UpdateAccount(ctx, account)
}

// UpdateTokens stores a refreshed OAuth token pair.
func (c *Coordinator) UpdateTokens(ctx context.Context, account *model.Account, access, refresh string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tokens := model.JoinTokens(access, refresh)
	if err := c.store.UpdateAccountTokens(ctx, account.ID, tokens); err != nil {
		return err
	}
	account.Tokens = tokens
	return nil
}

// AddFolder creates a custom folder on the account.
func (c *Coordinator) AddFolder(ctx context.Context, account *model.Account, name string) (*model.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	folder, err := account.AddCustomFolder(name)
	if err != nil {
		return nil, err
	}
	if err := c.store.AddFolder(ctx, folder); err != nil {
		account.RemoveFolder(folder.ID)
		return nil, err
	}
	return folder, nil
}

// RenameFolder renames a custom folder. Default folders keep their names.
func (c *Coordinator) RenameFolder(ctx context.Context, account *model.Account, folder *model.Folder, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !folder.IsCustom() {
		return fmt.Errorf("folder %s cannot be renamed", folder.Name)
	}
	if other := account.FolderByName(name); other != nil && other.ID != folder.ID {
		return fmt.Errorf("folder %q already exists in %s", name, account.Email)
	}
	if err := c.store.UpdateFolderName(ctx, folder.ID, name); err != nil {
		return err
	}
	folder.Name = name
	return nil
}

// DeleteFolder removes a custom folder with its messages.
func (c *Coordinator) DeleteFolder(ctx context.Context, account *model.Account, folder *model.Folder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !folder.IsCustom() {
		return fmt.Errorf("folder %s cannot be deleted", folder.Name)
	}
	if err := c.store.DeleteFolder(ctx, folder.ID); err != nil {
		return err
	}
	account.RemoveFolder(folder.ID)
	return nil
}

// AddContact stores a contact unless one with the same address exists.
// It returns the contact now in the bag.
func (c *Coordinator) AddContact(ctx context.Context, contact *model.Contact) (*model.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing := c.bag.ContactByEmail(contact.Email); existing != nil {
		return existing, nil
	}
	if err := c.store.AddContact(ctx, contact); err != nil {
		return nil, err
	}
	c.bag.Contacts = append(c.bag.Contacts, contact)
	return contact, nil
}

// DeleteContact removes a contact.
func (c *Coordinator) DeleteContact(ctx context.Context, contact *model.Contact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteContact(ctx, contact.ID); err != nil {
		return err
	}
	c.bag.RemoveContact(contact.ID)
	return nil
}
