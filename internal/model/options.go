package model

import (
	"fmt"
	"strings"
)

// SortField names a column a list can be sorted by.
type SortField int

const (
	SortFromAddresses SortField = iota
	SortRecipients
	SortSentDate
	SortReceivedDate
	SortSubject
	SortEmail
)

var sortFieldNames = map[SortField]string{
	SortFromAddresses: "FromAddresses",
	SortRecipients:    "Recipients",
	SortSentDate:      "SentDate",
	SortReceivedDate:  "ReceivedDate",
	SortSubject:       "Subject",
	SortEmail:         "Email",
}

func (f SortField) String() string {
	if name, ok := sortFieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("SortField(%d)", int(f))
}

// ParseSortField converts a field name (case-insensitive) to a SortField.
func ParseSortField(s string) (SortField, error) {
	for f, name := range sortFieldNames {
		if strings.EqualFold(name, s) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown sort field %q", s)
}

func (f SortField) MarshalText() ([]byte, error) {
	name, ok := sortFieldNames[f]
	if !ok {
		return nil, fmt.Errorf("unknown sort field %d", int(f))
	}
	return []byte(name), nil
}

func (f *SortField) UnmarshalText(text []byte) error {
	parsed, err := ParseSortField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// SortOrder is the direction of a sort.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

func (o SortOrder) String() string {
	if o == Descending {
		return "Descending"
	}
	return "Ascending"
}

// ParseSortOrder converts "asc"/"ascending"/"desc"/"descending".
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(s) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return 0, fmt.Errorf("unknown sort order %q", s)
}

func (o SortOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *SortOrder) UnmarshalText(text []byte) error {
	parsed, err := ParseSortOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Options holds user preferences persisted as a single blob.
type Options struct {
	LastMailboxEntry string    `toml:"last_mailbox_entry"`
	MailSortField    SortField `toml:"mail_sort_field"`
	MailSortOrder    SortOrder `toml:"mail_sort_order"`
	ContactSortField SortField `toml:"contact_sort_field"`
	ContactSortOrder SortOrder `toml:"contact_sort_order"`
	RetrieveOnStart  bool      `toml:"retrieve_on_start"`
	DeleteFromServer bool      `toml:"delete_from_server"`
}

// DefaultOptions returns the preferences used before anything is saved.
func DefaultOptions() Options {
	return Options{
		MailSortField:    SortSentDate,
		MailSortOrder:    Ascending,
		ContactSortField: SortEmail,
		ContactSortOrder: Ascending,
	}
}
