// Package transport talks to remote mail servers. It hands received
// mail to the rest of the program as NormalizedMessage values and
// delivers composed messages.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/kilamea/internal/model"
)

// Transport receives and sends mail for an account.
type Transport interface {
	// Receive returns the unread messages currently in the remote inbox.
	Receive(ctx context.Context, account *model.Account) ([]NormalizedMessage, error)

	// Send delivers msg. On success the transport may fill in
	// msg.Reference, msg.RawData and msg.SentAt from what went on the wire.
	Send(ctx context.Context, account *model.Account, msg *model.Message) error
}

// Expunger is implemented by transports that can delete received
// messages from the server.
type Expunger interface {
	Expunge(ctx context.Context, account *model.Account, references []string) error
}

// NormalizedAttachment is an attachment as produced by the MIME mapper.
// Content is base64 text.
type NormalizedAttachment struct {
	FileName string
	Content  string
}

// NormalizedMessage carries the fields of a model.Message without
// identity or folder.
type NormalizedMessage struct {
	Reference   string
	From        string
	To          string
	Cc          string
	Bcc         string
	SentAt      time.Time
	ReceivedAt  time.Time
	Subject     string
	Content     string
	RawData     string
	Unread      bool
	Attachments []NormalizedAttachment
}

// ToMessage builds a new message with a fresh ID placed in folderID.
func (n NormalizedMessage) ToMessage(folderID string) *model.Message {
	msg := &model.Message{
		ID:         model.NewID(),
		Reference:  n.Reference,
		From:       n.From,
		To:         n.To,
		Cc:         n.Cc,
		Bcc:        n.Bcc,
		SentAt:     n.SentAt,
		ReceivedAt: n.ReceivedAt,
		Subject:    n.Subject,
		Content:    n.Content,
		RawData:    n.RawData,
		Unread:     n.Unread,
		FolderID:   folderID,
	}
	for _, a := range n.Attachments {
		msg.AddAttachment(&model.Attachment{
			ID:       model.NewID(),
			FileName: a.FileName,
			Content:  a.Content,
		})
	}
	return msg
}

// ReceiveError reports a failed receive for an account.
type ReceiveError struct {
	Account string
	Message string
	Err     error
}

func (e *ReceiveError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("receive %s: %s", e.Account, e.Message)
	}
	return fmt.Sprintf("receive %s: %s: %v", e.Account, e.Message, e.Err)
}

func (e *ReceiveError) Unwrap() error {
	return e.Err
}

// SendError reports a failed delivery.
type SendError struct {
	Account string
	Message string
	Err     error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("send %s: %s", e.Account, e.Message)
	}
	return fmt.Sprintf("send %s: %s: %v", e.Account, e.Message, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// AuthError indicates that the server rejected the account's credentials.
// It is wrapped inside a ReceiveError or SendError.
type AuthError struct {
	Account string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Account, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
