package model

import "strings"

// Bag is the in-memory snapshot of everything the application shows.
// It is loaded once at start and its options saved at exit; whoever
// owns it passes it explicitly to the code that needs it.
type Bag struct {
	Accounts []*Account
	Contacts []*Contact
	Options  Options
}

// NewBag returns an empty bag with default options.
func NewBag() *Bag {
	return &Bag{Options: DefaultOptions()}
}

// AccountByID returns the account with the given ID, or nil.
func (b *Bag) AccountByID(id string) *Account {
	for _, a := range b.Accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// AccountByEmail returns the account with the given address, ignoring case.
func (b *Bag) AccountByEmail(email string) *Account {
	for _, a := range b.Accounts {
		if strings.EqualFold(a.Email, email) {
			return a
		}
	}
	return nil
}

// FolderByID resolves a folder ID across all accounts.
func (b *Bag) FolderByID(id string) *Folder {
	for _, a := range b.Accounts {
		if f := a.FolderByID(id); f != nil {
			return f
		}
	}
	return nil
}

// RemoveAccount drops the account from the bag.
func (b *Bag) RemoveAccount(id string) {
	for i, a := range b.Accounts {
		if a.ID == id {
			b.Accounts = append(b.Accounts[:i], b.Accounts[i+1:]...)
			return
		}
	}
}

// ContactByEmail returns the contact with the given address, ignoring case.
func (b *Bag) ContactByEmail(email string) *Contact {
	for _, c := range b.Contacts {
		if strings.EqualFold(c.Email, email) {
			return c
		}
	}
	return nil
}

// RemoveContact drops the contact from the bag.
func (b *Bag) RemoveContact(id string) {
	for i, c := range b.Contacts {
		if c.ID == id {
			b.Contacts = append(b.Contacts[:i], b.Contacts[i+1:]...)
			return
		}
	}
}

// MailboxEntry is what the last selected tree node resolves to:
// either an account or one of its folders.
type MailboxEntry struct {
	Account *Account
	Folder  *Folder
}

// FindLastMailboxEntry resolves Options.LastMailboxEntry. It falls back
// to the first account when the ID is unknown and returns nil when
// there are no accounts at all.
func (b *Bag) FindLastMailboxEntry() *MailboxEntry {
	if len(b.Accounts) == 0 {
		return nil
	}
	id := b.Options.LastMailboxEntry
	if id != "" {
		for _, a := range b.Accounts {
			if a.ID == id {
				return &MailboxEntry{Account: a}
			}
			if f := a.FolderByID(id); f != nil {
				return &MailboxEntry{Account: a, Folder: f}
			}
		}
	}
	return &MailboxEntry{Account: b.Accounts[0]}
}
