package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderMessages(t *testing.T) {
	f := NewFolder("acc", "Inbox", FolderInbox)

	m1 := NewMessage()
	m1.Reference = "ref-1"
	m1.Unread = true
	m2 := NewMessage()

	f.AddMessage(m1)
	f.AddMessage(m2)

	assert.Equal(t, f.ID, m1.FolderID)
	assert.Equal(t, 1, f.UnreadCount())
	assert.True(t, f.ContainsMessage("ref-1"))
	assert.False(t, f.ContainsMessage("ref-2"))
	// m2 has no reference; an empty reference never matches.
	assert.False(t, f.ContainsMessage(""))
	assert.Same(t, m2, f.MessageByID(m2.ID))

	assert.True(t, f.RemoveMessage(m1.ID))
	assert.False(t, f.RemoveMessage(m1.ID))
	assert.Len(t, f.Messages, 1)
}

func TestListFilterTerms(t *testing.T) {
	assert.True(t, ListFilter{}.IsEmpty())
	assert.True(t, ListFilter{Text: " \t "}.IsEmpty())
	assert.Equal(t, []string{"a", "b"}, ListFilter{Text: " a  b "}.Terms())
}

func TestMessageCopy(t *testing.T) {
	m := NewMessage()
	m.FolderID = "folder"
	m.Drafted = true
	m.Subject = "orig"
	m.AddAttachment(NewAttachment("a.txt", []byte("hello")))

	c := m.Copy()
	assert.NotEqual(t, m.ID, c.ID)
	assert.Empty(t, c.FolderID)
	assert.False(t, c.Drafted)
	assert.Equal(t, "orig", c.Subject)

	require.Len(t, c.Attachments, 1)
	assert.NotEqual(t, m.Attachments[0].ID, c.Attachments[0].ID)
	assert.Equal(t, c.ID, c.Attachments[0].MessageID)
	assert.Equal(t, m.Attachments[0].Content, c.Attachments[0].Content)

	c.Attachments[0].FileName = "changed"
	assert.Equal(t, "a.txt", m.Attachments[0].FileName)
}

func TestAttachmentSize(t *testing.T) {
	for _, data := range []string{"", "a", "ab", "abc", "abcd", "hello world"} {
		att := NewAttachment("f", []byte(data))
		assert.Equal(t, len(data), att.Size(), data)

		got, err := att.Bytes()
		require.NoError(t, err)
		assert.Equal(t, data, string(got))
	}

	_, err := (&Attachment{FileName: "bad", Content: "!!"}).Bytes()
	assert.Error(t, err)
}
