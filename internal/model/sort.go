package model

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// messageKey maps a sort field to a comparison over two messages.
// Fields that do not apply to messages compare equal.
func messageKey(field SortField) func(a, b *Message) int {
	switch field {
	case SortFromAddresses:
		return func(a, b *Message) int { return compareFold(a.From, b.From) }
	case SortRecipients:
		return func(a, b *Message) int { return compareFold(a.To, b.To) }
	case SortSentDate:
		return func(a, b *Message) int { return compareTime(a.SentAt, b.SentAt) }
	case SortReceivedDate:
		return func(a, b *Message) int { return compareTime(a.ReceivedAt, b.ReceivedAt) }
	case SortSubject:
		return func(a, b *Message) int { return compareFold(a.Subject, b.Subject) }
	default:
		return func(a, b *Message) int { return 0 }
	}
}

func contactKey(field SortField) func(a, b *Contact) int {
	switch field {
	case SortEmail:
		return func(a, b *Contact) int { return compareFold(a.Email, b.Email) }
	default:
		return func(a, b *Contact) int { return 0 }
	}
}

// SortMessages orders msgs in place. Equal keys keep their order.
func SortMessages(msgs []*Message, field SortField, order SortOrder) {
	slices.SortStableFunc(msgs, directed(messageKey(field), order))
}

// SortContacts orders contacts in place. Equal keys keep their order.
func SortContacts(contacts []*Contact, field SortField, order SortOrder) {
	slices.SortStableFunc(contacts, directed(contactKey(field), order))
}

func directed[T any](cmpFn func(a, b T) int, order SortOrder) func(a, b T) int {
	if order == Descending {
		return func(a, b T) int { return -cmpFn(a, b) }
	}
	return cmpFn
}

func compareFold(a, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}
