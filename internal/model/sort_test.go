package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func subjects(msgs []*Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Subject
	}
	return out
}

func TestSortMessages(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(subject, from string, offset time.Duration) *Message {
		m := NewMessage()
		m.Subject = subject
		m.From = from
		m.To = "z@example.com"
		m.SentAt = base.Add(offset)
		m.ReceivedAt = base.Add(-offset)
		return m
	}

	tests := []struct {
		name  string
		field SortField
		order SortOrder
		want  []string
	}{
		{"subject asc ignores case", SortSubject, Ascending, []string{"alpha", "Beta", "gamma"}},
		{"subject desc", SortSubject, Descending, []string{"gamma", "Beta", "alpha"}},
		{"sent asc", SortSentDate, Ascending, []string{"gamma", "alpha", "Beta"}},
		{"received asc", SortReceivedDate, Ascending, []string{"Beta", "alpha", "gamma"}},
		{"from desc", SortFromAddresses, Descending, []string{"alpha", "gamma", "Beta"}},
		{"recipients equal keeps order", SortRecipients, Descending, []string{"Beta", "alpha", "gamma"}},
		{"contact field keeps order", SortEmail, Ascending, []string{"Beta", "alpha", "gamma"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := []*Message{
				mk("Beta", "a@example.com", 2*time.Hour),
				mk("alpha", "c@example.com", time.Hour),
				mk("gamma", "b@example.com", 0),
			}
			SortMessages(msgs, tt.field, tt.order)
			assert.Equal(t, tt.want, subjects(msgs))
		})
	}
}

func TestSortContacts(t *testing.T) {
	contacts := []*Contact{
		NewContact("bob@example.com", "", ""),
		NewContact("Alice@example.com", "", ""),
		NewContact("carl@example.com", "", ""),
	}

	SortContacts(contacts, SortEmail, Descending)
	assert.Equal(t, "carl@example.com", contacts[0].Email)
	assert.Equal(t, "Alice@example.com", contacts[2].Email)

	SortContacts(contacts, SortSubject, Ascending)
	assert.Equal(t, "carl@example.com", contacts[0].Email)
}
