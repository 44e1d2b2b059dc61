package store

import (
	"context"

	"github.com/nhle/kilamea/internal/model"
)

// AddContact inserts a contact. Duplicate addresses are not rejected
// here; the application checks Bag.ContactByEmail first.
func (s *SQLiteStore) AddContact(ctx context.Context, contact *model.Contact) error {
	if err := s.checkConnection(); err != nil {
		return err
	}
	if contact.ID == "" {
		contact.ID = model.NewID()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO contacts (id, email, first_name, last_name) VALUES (?, ?, ?, ?)",
		contact.ID, contact.Email, contact.FirstName, contact.LastName,
	)
	if err != nil {
		return storageErrorf(err, "adding contact %s", contact.Email)
	}
	return nil
}

// UpdateContact rewrites a contact row.
func (s *SQLiteStore) UpdateContact(ctx context.Context, contact *model.Contact) error {
	return s.execAffectingOne(ctx, "updating contact", contact.ID, `
		UPDATE contacts SET email = ?, first_name = ?, last_name = ?
		WHERE id = ?`,
		contact.Email, contact.FirstName, contact.LastName, contact.ID,
	)
}

// DeleteContact removes a contact row.
func (s *SQLiteStore) DeleteContact(ctx context.Context, id string) error {
	return s.execAffectingOne(ctx, "deleting contact", id,
		"DELETE FROM contacts WHERE id = ?", id,
	)
}

// LoadContacts replaces bag.Contacts with every stored contact.
func (s *SQLiteStore) LoadContacts(ctx context.Context, bag *model.Bag) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	var contacts []*model.Contact
	err := s.db.SelectContext(ctx, &contacts,
		"SELECT id, email, first_name, last_name FROM contacts ORDER BY rowid")
	if err != nil {
		return storageErrorf(err, "loading contacts")
	}

	bag.Contacts = contacts
	return nil
}
