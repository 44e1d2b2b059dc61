package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh random identifier for any entity.
func NewID() string {
	return uuid.NewString()
}

// Protocol identifies the mail protocol an account speaks.
// The numeric value is what gets persisted.
type Protocol int

const (
	ProtocolIMAP Protocol = iota
	ProtocolPOP3
	ProtocolSMTP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolIMAP:
		return "IMAP"
	case ProtocolPOP3:
		return "POP3"
	case ProtocolSMTP:
		return "SMTP"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// Port returns the default port of the protocol with or without TLS.
func (p Protocol) Port(ssl bool) int {
	switch p {
	case ProtocolIMAP:
		if ssl {
			return 993
		}
		return 143
	case ProtocolPOP3:
		if ssl {
			return 995
		}
		return 110
	case ProtocolSMTP:
		if ssl {
			return 587
		}
		return 25
	}
	return 0
}

// SupportsExpunge reports whether messages can be deleted from the
// server after retrieval.
func (p Protocol) SupportsExpunge() bool {
	return p == ProtocolIMAP
}

// ParseProtocol converts a protocol name (case-insensitive) to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IMAP":
		return ProtocolIMAP, nil
	case "POP3":
		return ProtocolPOP3, nil
	case "SMTP":
		return ProtocolSMTP, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}

// Account is a configured mail account and the folders it owns.
type Account struct {
	ID           string   `db:"id"`
	Email        string   `db:"email"`
	DisplayName  string   `db:"display_name"`
	User         string   `db:"user"`
	Password     string   `db:"password"`
	Tokens       string   `db:"tokens"`
	Protocol     Protocol `db:"protocol"`
	SSLActive    bool     `db:"ssl_active"`
	IncomingHost string   `db:"incoming_host"`
	IncomingPort int      `db:"incoming_port"`
	OutgoingHost string   `db:"outgoing_host"`
	OutgoingPort int      `db:"outgoing_port"`

	Folders []*Folder `db:"-"`
}

// NewAccount returns an account with a fresh ID and no folders.
// Call InitFolders before persisting it.
func NewAccount(email string) *Account {
	return &Account{
		ID:        NewID(),
		Email:     email,
		User:      email,
		SSLActive: true,
	}
}

// defaultFolders lists the mandatory folders in creation order.
var defaultFolders = []FolderType{
	FolderInbox, FolderDrafts, FolderSent, FolderArchive, FolderTrash,
}

// InitFolders creates any missing default folder. Existing folders
// are left untouched, so calling it twice is harmless.
func (a *Account) InitFolders() {
	for _, ft := range defaultFolders {
		if a.FolderByType(ft) != nil {
			continue
		}
		a.Folders = append(a.Folders, NewFolder(a.ID, ft.String(), ft))
	}
}

// FolderByType returns the first folder of the given type, or nil.
func (a *Account) FolderByType(ft FolderType) *Folder {
	for _, f := range a.Folders {
		if f.Type == ft {
			return f
		}
	}
	return nil
}

// FolderByName finds a folder by name, ignoring case.
func (a *Account) FolderByName(name string) *Folder {
	for _, f := range a.Folders {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// FolderByID returns the owned folder with the given ID, or nil.
func (a *Account) FolderByID(id string) *Folder {
	for _, f := range a.Folders {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// AddCustomFolder creates a custom folder. Folder names are unique
// within an account regardless of case.
func (a *Account) AddCustomFolder(name string) (*Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("folder name must not be empty")
	}
	if a.FolderByName(name) != nil {
		return nil, fmt.Errorf("folder %q already exists in %s", name, a.Email)
	}
	f := NewFolder(a.ID, name, FolderCustom)
	a.Folders = append(a.Folders, f)
	return f, nil
}

// RemoveFolder drops the folder from the in-memory collection.
func (a *Account) RemoveFolder(id string) {
	for i, f := range a.Folders {
		if f.ID == id {
			a.Folders = append(a.Folders[:i], a.Folders[i+1:]...)
			return
		}
	}
}

// DisplayNameAndEmail formats the account as "Name <email>".
func (a *Account) DisplayNameAndEmail() string {
	if a.DisplayName == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.DisplayName, a.Email)
}

// IsGmail reports whether the address belongs to Google's mail service.
func IsGmail(address string) bool {
	addr := strings.ToLower(strings.TrimSpace(address))
	return strings.HasSuffix(addr, "@gmail.com") ||
		strings.HasSuffix(addr, "@googlemail.com")
}

// AccessToken returns the access half of the stored OAuth token pair.
func (a *Account) AccessToken() string {
	access, _, _ := strings.Cut(a.Tokens, " ")
	return access
}

// RefreshToken returns the refresh half of the stored OAuth token pair.
func (a *Account) RefreshToken() string {
	_, refresh, _ := strings.Cut(a.Tokens, " ")
	return refresh
}

// JoinTokens builds the persisted token pair form.
func JoinTokens(access, refresh string) string {
	if access == "" && refresh == "" {
		return ""
	}
	return access + " " + refresh
}
