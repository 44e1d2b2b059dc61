package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/nhle/kilamea/internal/model"
)

// Client is the network Transport: IMAP for receiving, SMTP for sending.
type Client struct {
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds every receive, send and expunge.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient returns a Client. Without WithTimeout, operations are only
// bounded by the caller's context.
func NewClient(opts ...Option) *Client {
	c := &Client{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ Transport = (*Client)(nil)
	_ Expunger  = (*Client)(nil)
)

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Receive returns the unread messages in the account's inbox. Only IMAP
// accounts can receive; POP3 and send-only SMTP accounts fail.
func (c *Client) Receive(ctx context.Context, account *model.Account) ([]NormalizedMessage, error) {
	if account.Protocol != model.ProtocolIMAP {
		return nil, &ReceiveError{
			Account: account.Email,
			Message: account.Protocol.String() + " receive is not supported",
		}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	msgs, err := receiveIMAP(ctx, account)
	if err != nil {
		return nil, &ReceiveError{Account: account.Email, Message: "retrieving inbox", Err: err}
	}

	c.logger.Debug("received messages", "account", account.Email, "count", len(msgs))
	return msgs, nil
}

// Send composes msg, delivers it over SMTP and, on success, records the
// wire form on msg: Reference, RawData, From and SentAt.
func (c *Client) Send(ctx context.Context, account *model.Account, msg *model.Message) error {
	sentAt := c.now()

	raw, messageID, err := ComposeMessage(account, msg, sentAt)
	if err != nil {
		return &SendError{Account: account.Email, Message: "composing message", Err: err}
	}

	rcpts, err := Recipients(msg)
	if err != nil {
		return &SendError{Account: account.Email, Message: "reading recipients", Err: err}
	}
	if len(rcpts) == 0 {
		return &SendError{Account: account.Email, Message: "message has no recipients"}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := deliverSMTP(ctx, account, account.Email, rcpts, raw); err != nil {
		return &SendError{Account: account.Email, Message: "delivering message", Err: err}
	}

	msg.Reference = messageID
	msg.RawData = string(raw)
	msg.From = account.DisplayNameAndEmail()
	msg.SentAt = sentAt
	msg.Unread = false

	c.logger.Debug("sent message", "account", account.Email, "recipients", len(rcpts))
	return nil
}

// Expunge deletes the referenced messages from the server inbox.
func (c *Client) Expunge(ctx context.Context, account *model.Account, references []string) error {
	if !account.Protocol.SupportsExpunge() {
		return &ReceiveError{
			Account: account.Email,
			Message: account.Protocol.String() + " cannot delete from server",
		}
	}
	if len(references) == 0 {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := expungeIMAP(ctx, account, references); err != nil {
		return &ReceiveError{Account: account.Email, Message: "deleting from server", Err: err}
	}
	return nil
}
