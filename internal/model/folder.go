package model

import (
	"fmt"
	"strings"
)

// FolderType classifies a folder. The numeric value is persisted.
type FolderType int

const (
	FolderInbox FolderType = iota
	FolderDrafts
	FolderSent
	FolderArchive
	FolderTrash
	FolderCustom
)

func (t FolderType) String() string {
	switch t {
	case FolderInbox:
		return "Inbox"
	case FolderDrafts:
		return "Drafts"
	case FolderSent:
		return "Sent"
	case FolderArchive:
		return "Archive"
	case FolderTrash:
		return "Trash"
	case FolderCustom:
		return "Custom"
	default:
		return fmt.Sprintf("FolderType(%d)", int(t))
	}
}

// ListFilter scopes a message search within a folder.
type ListFilter struct {
	Text      string
	MatchCase bool
}

// Terms splits the filter text into independent search terms.
func (f ListFilter) Terms() []string {
	return strings.Fields(f.Text)
}

// IsEmpty reports whether the filter matches everything.
func (f ListFilter) IsEmpty() bool {
	return len(f.Terms()) == 0
}

// Folder is a named message container owned by an account.
type Folder struct {
	ID        string     `db:"id"`
	Name      string     `db:"name"`
	Type      FolderType `db:"type"`
	AccountID string     `db:"account"`

	Filter   ListFilter `db:"-"`
	Messages []*Message `db:"-"`
}

// NewFolder returns a folder with a fresh ID.
func NewFolder(accountID, name string, ft FolderType) *Folder {
	return &Folder{
		ID:        NewID(),
		Name:      name,
		Type:      ft,
		AccountID: accountID,
	}
}

// IsCustom reports whether the folder is user-defined.
func (f *Folder) IsCustom() bool {
	return f.Type == FolderCustom
}

// UnreadCount returns the number of unread messages in the folder.
func (f *Folder) UnreadCount() int {
	n := 0
	for _, m := range f.Messages {
		if m.Unread {
			n++
		}
	}
	return n
}

// ContainsMessage reports whether a message with the given remote
// reference is already in the folder. Empty references never match.
func (f *Folder) ContainsMessage(reference string) bool {
	if reference == "" {
		return false
	}
	for _, m := range f.Messages {
		if m.Reference == reference {
			return true
		}
	}
	return false
}

// MessageByID returns the message with the given ID, or nil.
func (f *Folder) MessageByID(id string) *Message {
	for _, m := range f.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// AddMessage appends msg and points its folder link at f.
func (f *Folder) AddMessage(msg *Message) {
	msg.FolderID = f.ID
	f.Messages = append(f.Messages, msg)
}

// RemoveMessage drops the message with the given ID. It reports
// whether anything was removed.
func (f *Folder) RemoveMessage(id string) bool {
	for i, m := range f.Messages {
		if m.ID == id {
			f.Messages = append(f.Messages[:i], f.Messages[i+1:]...)
			return true
		}
	}
	return false
}
