package transport

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kilamea/internal/model"
)

const plainMessage = "From: Bob Builder <bob@example.com>\r\n" +
	"To: alice@example.com, Carol <carol@example.com>\r\n" +
	"Cc: dave@example.com\r\n" +
	"Subject: Status\r\n" +
	"Date: Mon, 04 Mar 2024 10:00:00 +0000\r\n" +
	"Message-ID: <abc123@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"All good.\r\n"

const multipartMessage = "From: bob@example.com\r\n" +
	"To: alice@example.com\r\n" +
	"Subject: Report\r\n" +
	"Message-ID: <multi@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Hello &amp; welcome</p><br>Bye\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Disposition: attachment; filename=\"notes.txt\"\r\n" +
	"\r\n" +
	"note body\r\n" +
	"--XYZ--\r\n"

func TestParsePlainMessage(t *testing.T) {
	nm := ParseMessage([]byte(plainMessage))

	assert.Equal(t, "abc123@example.com", nm.Reference)
	assert.Equal(t, "Bob Builder <bob@example.com>", nm.From)
	assert.Equal(t, "alice@example.com, Carol <carol@example.com>", nm.To)
	assert.Equal(t, "dave@example.com", nm.Cc)
	assert.Empty(t, nm.Bcc)
	assert.Equal(t, "Status", nm.Subject)
	assert.Equal(t, "All good.\r\n", nm.Content)
	assert.Equal(t, plainMessage, nm.RawData)
	assert.True(t, nm.SentAt.Equal(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	assert.Empty(t, nm.Attachments)
}

func TestParseMultipartMessage(t *testing.T) {
	nm := ParseMessage([]byte(multipartMessage))

	assert.Equal(t, "multi@example.com", nm.Reference)
	assert.Equal(t, "Hello & welcome\n\nBye", nm.Content)

	require.Len(t, nm.Attachments, 1)
	assert.Equal(t, "notes.txt", nm.Attachments[0].FileName)

	data, err := base64.StdEncoding.DecodeString(nm.Attachments[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "note body", strings.TrimSpace(string(data)))
}

func TestToMessageGivesFreshIdentity(t *testing.T) {
	nm := ParseMessage([]byte(multipartMessage))

	a := nm.ToMessage("folder-1")
	b := nm.ToMessage("folder-1")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "folder-1", a.FolderID)
	require.Len(t, a.Attachments, 1)
	assert.Equal(t, a.ID, a.Attachments[0].MessageID)
	assert.NotEqual(t, a.Attachments[0].ID, b.Attachments[0].ID)
}

func TestComposeThenParse(t *testing.T) {
	account := model.NewAccount("me@example.com")
	account.DisplayName = "Me"

	msg := model.NewMessage()
	msg.To = "you@example.com, Them <them@example.com>"
	msg.Cc = "cc@example.com"
	msg.Bcc = "hidden@example.com"
	msg.Subject = "Compose test"
	msg.Content = "Body text"
	msg.AddAttachment(model.NewAttachment("data.csv", []byte("a,b\n1,2\n")))

	date := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	raw, messageID, err := ComposeMessage(account, msg, date)
	require.NoError(t, err)
	require.NotEmpty(t, messageID)

	// Bcc recipients never appear in the headers.
	assert.NotContains(t, string(raw), "hidden@example.com")

	nm := ParseMessage(raw)
	assert.Equal(t, messageID, nm.Reference)
	assert.Equal(t, "Me <me@example.com>", nm.From)
	assert.Equal(t, msg.To, nm.To)
	assert.Equal(t, msg.Cc, nm.Cc)
	assert.Equal(t, msg.Subject, nm.Subject)
	assert.Equal(t, msg.Content, nm.Content)
	assert.True(t, nm.SentAt.Equal(date))

	require.Len(t, nm.Attachments, 1)
	assert.Equal(t, "data.csv", nm.Attachments[0].FileName)
	assert.Equal(t, msg.Attachments[0].Content, nm.Attachments[0].Content)
}

func TestRecipients(t *testing.T) {
	msg := model.NewMessage()
	msg.To = "A <a@example.com>"
	msg.Cc = "b@example.com, c@example.com"
	msg.Bcc = "d@example.com"

	rcpts, err := Recipients(msg)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}, rcpts)

	msg.To = "not an address"
	_, err = Recipients(msg)
	assert.Error(t, err)
}

func TestClientRejectsUnsupportedProtocols(t *testing.T) {
	ctx := context.Background()
	c := NewClient()

	pop := model.NewAccount("pop@example.com")
	pop.Protocol = model.ProtocolPOP3

	_, err := c.Receive(ctx, pop)
	var re *ReceiveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "pop@example.com", re.Account)

	err = c.Expunge(ctx, pop, []string{"x"})
	assert.ErrorAs(t, err, &re)
}

func TestSendWithoutRecipients(t *testing.T) {
	c := NewClient()
	msg := model.NewMessage()
	msg.Subject = "nobody"

	err := c.Send(context.Background(), model.NewAccount("me@example.com"), msg)
	var se *SendError
	require.ErrorAs(t, err, &se)
	assert.Empty(t, msg.Reference)
	assert.Empty(t, msg.RawData)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"<b>bold</b>", "bold"},
		{"a<br>b", "a\nb"},
		{"<p>x</p><p>y</p>", "x\ny"},
		{"&lt;tag&gt; &quot;q&quot; &#39;s&#39;", `<tag> "q" 's'`},
		{"a<br><br><br><br>b", "a\n\nb"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripHTML(tt.in), tt.in)
	}
}

func TestAuthErrorDetection(t *testing.T) {
	err := &ReceiveError{
		Account: "x@example.com",
		Message: "retrieving inbox",
		Err:     &AuthError{Account: "x@example.com", Message: "bad password"},
	}
	assert.True(t, IsAuthError(err))
	assert.False(t, IsAuthError(&ReceiveError{Account: "x", Message: "boom"}))
}
