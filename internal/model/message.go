package model

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Message is a single mail item stored in a folder.
type Message struct {
	ID         string    `db:"id"`
	Reference  string    `db:"email_reference"`
	From       string    `db:"from_addresses"`
	To         string    `db:"recipients"`
	Cc         string    `db:"cc_addresses"`
	Bcc        string    `db:"bcc_addresses"`
	SentAt     time.Time `db:"-"`
	ReceivedAt time.Time `db:"-"`
	Subject    string    `db:"subject"`
	Content    string    `db:"content"`
	RawData    string    `db:"raw_data"`
	Unread     bool      `db:"unread"`
	FolderID   string    `db:"folder"`

	Attachments []*Attachment `db:"-"`

	// Drafted marks a message opened from Drafts in the composer.
	// It is never persisted.
	Drafted bool `db:"-"`
}

// NewMessage returns an empty message with a fresh ID.
func NewMessage() *Message {
	return &Message{ID: NewID()}
}

// AddAttachment appends att and points its message link at m.
func (m *Message) AddAttachment(att *Attachment) {
	att.MessageID = m.ID
	m.Attachments = append(m.Attachments, att)
}

// RemoveAttachment drops the attachment with the given ID.
func (m *Message) RemoveAttachment(id string) bool {
	for i, a := range m.Attachments {
		if a.ID == id {
			m.Attachments = append(m.Attachments[:i], m.Attachments[i+1:]...)
			return true
		}
	}
	return false
}

// Copy returns a new message with a fresh ID and the same content.
// Attachments are duplicated with fresh IDs. The copy has no folder.
func (m *Message) Copy() *Message {
	c := *m
	c.ID = NewID()
	c.FolderID = ""
	c.Drafted = false
	c.Attachments = make([]*Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		c.AddAttachment(&Attachment{
			ID:       NewID(),
			FileName: a.FileName,
			Content:  a.Content,
		})
	}
	return &c
}

// Attachment is a file carried by a message. Content is base64 text.
type Attachment struct {
	ID        string `db:"id"`
	FileName  string `db:"file_name"`
	Content   string `db:"content"`
	MessageID string `db:"message"`
}

// NewAttachment encodes data and returns an attachment with a fresh ID.
func NewAttachment(fileName string, data []byte) *Attachment {
	return &Attachment{
		ID:       NewID(),
		FileName: fileName,
		Content:  base64.StdEncoding.EncodeToString(data),
	}
}

// Bytes decodes the attachment payload.
func (a *Attachment) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Content)
	if err != nil {
		return nil, fmt.Errorf("decoding attachment %s: %w", a.FileName, err)
	}
	return data, nil
}

// Size returns the decoded payload size without decoding it.
func (a *Attachment) Size() int {
	n := len(a.Content) / 4 * 3
	for i := len(a.Content) - 1; i >= 0 && i >= len(a.Content)-2; i-- {
		if a.Content[i] != '=' {
			break
		}
		n--
	}
	return n
}

// Contact is an address book entry.
type Contact struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

// NewContact returns a contact with a fresh ID.
func NewContact(email, firstName, lastName string) *Contact {
	return &Contact{
		ID:        NewID(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}
}
