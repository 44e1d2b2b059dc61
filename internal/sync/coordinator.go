// Package sync moves mail between the transport and the local store
// and keeps the in-memory Bag consistent with what was persisted.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/kilamea/internal/model"
	"github.com/nhle/kilamea/internal/store"
	"github.com/nhle/kilamea/internal/transport"
)

// Coordinator bridges a Transport and a Store. Network I/O may run on
// many goroutines at once; every store call and every mutation of the
// Bag happens under one mutex.
type Coordinator struct {
	store     store.Store
	transport transport.Transport
	bag       *model.Bag
	logger    *slog.Logger

	// concurrency caps ReceiveAll's parallel accounts; <= 0 means no cap.
	concurrency int

	mu gosync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithConcurrency limits how many accounts ReceiveAll works on at once.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) { c.concurrency = n }
}

// NewCoordinator returns a Coordinator operating on bag.
func NewCoordinator(s store.Store, t transport.Transport, bag *model.Bag, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     s,
		transport: t,
		bag:       bag,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReceiveResult summarizes one account's receive.
type ReceiveResult struct {
	Account  *model.Account
	Received []*model.Message
	Skipped  int
	Expunged int
	Err      error
}

// Receive pulls the account's unread remote messages into its Inbox.
// Messages whose reference is already stored in the Inbox are skipped.
// A transport failure aborts with a ReceiveError and changes nothing.
// A storage failure for one message does not stop the others; all
// such failures are joined into the returned error. When the options
// ask for it and every message was persisted, the messages are then
// deleted from the server.
func (c *Coordinator) Receive(ctx context.Context, account *model.Account) (*ReceiveResult, error) {
	res := &ReceiveResult{Account: account}

	remote, err := c.transport.Receive(ctx, account)
	if err != nil {
		var re *transport.ReceiveError
		if !errors.As(err, &re) {
			err = &transport.ReceiveError{Account: account.Email, Message: "retrieving messages", Err: err}
		}
		res.Err = err
		return res, err
	}

	persisted, expunge, err := c.persistReceived(ctx, account, remote, res)
	if err != nil {
		res.Err = err
		return res, err
	}

	if expunge && len(persisted) > 0 {
		if ex, ok := c.transport.(transport.Expunger); ok {
			if err := ex.Expunge(ctx, account, persisted); err != nil {
				res.Err = err
				return res, err
			}
			res.Expunged = len(persisted)
		}
	}

	return res, nil
}

// persistReceived stores the new messages of a receive under the lock
// and reports which references are now safely on disk, and whether the
// options ask for them to be removed from the server.
func (c *Coordinator) persistReceived(ctx context.Context, account *model.Account, remote []transport.NormalizedMessage, res *ReceiveResult) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inbox := account.FolderByType(model.FolderInbox)
	if inbox == nil {
		return nil, false, fmt.Errorf("account %s has no inbox", account.Email)
	}

	// The in-memory inbox may hold only a search's matches.
	stored, err := c.store.MessageReferences(ctx, inbox.ID)
	if err != nil {
		return nil, false, err
	}

	var (
		storeErrs []error
		persisted []string
	)
	for _, nm := range remote {
		_, onDisk := stored[nm.Reference]
		if onDisk || inbox.ContainsMessage(nm.Reference) {
			res.Skipped++
			// Already stored on an earlier pass, so safe to remove remotely.
			persisted = append(persisted, nm.Reference)
			continue
		}

		msg := nm.ToMessage(inbox.ID)
		if err := c.store.AddMessage(ctx, msg); err != nil {
			c.logger.Warn("storing received message failed",
				"account", account.Email, "reference", nm.Reference, "error", err)
			storeErrs = append(storeErrs, err)
			continue
		}

		inbox.AddMessage(msg)
		stored[nm.Reference] = struct{}{}
		res.Received = append(res.Received, msg)
		persisted = append(persisted, nm.Reference)
	}

	if err := errors.Join(storeErrs...); err != nil {
		return nil, false, err
	}

	expunge := c.bag.Options.DeleteFromServer && account.Protocol.SupportsExpunge()
	return persisted, expunge, nil
}

// ReceiveAll receives for every account in the bag, each on its own
// goroutine. Results are returned in account order; one account's
// failure does not cancel the others.
func (c *Coordinator) ReceiveAll(ctx context.Context) []*ReceiveResult {
	c.mu.Lock()
	accounts := make([]*model.Account, len(c.bag.Accounts))
	copy(accounts, c.bag.Accounts)
	c.mu.Unlock()

	results := make([]*ReceiveResult, len(accounts))

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, account := range accounts {
		if account.Protocol == model.ProtocolSMTP {
			results[i] = &ReceiveResult{Account: account}
			continue
		}
		g.Go(func() error {
			res, err := c.Receive(ctx, account)
			if err != nil {
				c.logger.Error("receive failed", "account", account.Email, "error", err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Send delivers msg. On success it is stored in the Sent folder, or in
// Drafts if storing in Sent fails. A transport failure returns a
// SendError and stores nothing. A message that came from Drafts is
// moved out of it rather than duplicated. A message already stored in
// any other folder stays where it is; a copy of it is sent and stored.
func (c *Coordinator) Send(ctx context.Context, account *model.Account, msg *model.Message) error {
	c.mu.Lock()
	drafts := account.FolderByType(model.FolderDrafts)
	isDraft := drafts != nil && drafts.MessageByID(msg.ID) != nil
	out := msg
	if !isDraft && c.bag.FolderByID(msg.FolderID) != nil {
		out = msg.Copy()
	}
	c.mu.Unlock()

	if err := c.transport.Send(ctx, account, out); err != nil {
		var se *transport.SendError
		if !errors.As(err, &se) {
			err = &transport.SendError{Account: account.Email, Message: "delivering message", Err: err}
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out.Unread = false
	sent := account.FolderByType(model.FolderSent)

	if isDraft && drafts.MessageByID(out.ID) != nil {
		return c.moveDraftLocked(ctx, out, drafts, sent)
	}

	sentErr := c.storeInLocked(ctx, out, sent)
	if sentErr == nil {
		return nil
	}

	c.logger.Warn("storing sent message failed, keeping it in drafts",
		"account", account.Email, "error", sentErr)

	if err := c.storeInLocked(ctx, out, drafts); err != nil {
		return errors.Join(sentErr, err)
	}
	return nil
}

// moveDraftLocked moves an already stored draft into Sent. If that
// update fails the message simply stays in Drafts.
func (c *Coordinator) moveDraftLocked(ctx context.Context, msg *model.Message, drafts, sent *model.Folder) error {
	msg.Drafted = false
	if sent == nil {
		return fmt.Errorf("account has no sent folder")
	}
	if err := c.store.UpdateMessageFolder(ctx, msg.ID, sent.ID); err != nil {
		c.logger.Warn("moving sent draft failed, keeping it in drafts", "error", err)
		return nil
	}
	drafts.RemoveMessage(msg.ID)
	sent.AddMessage(msg)
	return nil
}

func (c *Coordinator) storeInLocked(ctx context.Context, msg *model.Message, folder *model.Folder) error {
	if folder == nil {
		return fmt.Errorf("missing folder for message %s", msg.ID)
	}
	prev := msg.FolderID
	msg.FolderID = folder.ID
	if err := c.store.AddMessage(ctx, msg); err != nil {
		msg.FolderID = prev
		return err
	}
	folder.AddMessage(msg)
	return nil
}

// SaveDraft stores a composed message in the account's Drafts folder.
func (c *Coordinator) SaveDraft(ctx context.Context, account *model.Account, msg *model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	drafts := account.FolderByType(model.FolderDrafts)
	if err := c.storeInLocked(ctx, msg, drafts); err != nil {
		return err
	}
	msg.Drafted = true
	return nil
}

// MoveMessage moves msg from its folder to dest: one store update, then
// the in-memory collections.
func (c *Coordinator) MoveMessage(ctx context.Context, msg *model.Message, dest *model.Folder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.FolderID == dest.ID {
		return nil
	}
	if err := c.store.UpdateMessageFolder(ctx, msg.ID, dest.ID); err != nil {
		return err
	}
	if src := c.bag.FolderByID(msg.FolderID); src != nil {
		src.RemoveMessage(msg.ID)
	}
	dest.AddMessage(msg)
	return nil
}

// CopyMessage stores a copy of msg, with fresh identities, in dest.
func (c *Coordinator) CopyMessage(ctx context.Context, msg *model.Message, dest *model.Folder) (*model.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := msg.Copy()
	if err := c.storeInLocked(ctx, cp, dest); err != nil {
		return nil, err
	}
	return cp, nil
}

// DeleteMessage moves msg to Trash, or removes it for good when it is
// already in Trash.
func (c *Coordinator) DeleteMessage(ctx context.Context, account *model.Account, msg *model.Message) error {
	trash := account.FolderByType(model.FolderTrash)
	if trash != nil && msg.FolderID != trash.ID {
		return c.MoveMessage(ctx, msg, trash)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteMessage(ctx, msg.ID); err != nil {
		return err
	}
	if trash != nil {
		trash.RemoveMessage(msg.ID)
	}
	return nil
}

// EmptyTrash permanently deletes every message in the account's Trash.
// Messages that fail to delete stay in the folder.
func (c *Coordinator) EmptyTrash(ctx context.Context, account *model.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	trash := account.FolderByType(model.FolderTrash)
	if trash == nil {
		return nil
	}

	var errs []error
	for _, msg := range append([]*model.Message(nil), trash.Messages...) {
		if err := c.store.DeleteMessage(ctx, msg.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		trash.RemoveMessage(msg.ID)
	}
	return errors.Join(errs...)
}

// MarkRead sets the unread flag of msg.
func (c *Coordinator) MarkRead(ctx context.Context, msg *model.Message, read bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.UpdateMessageUnread(ctx, msg.ID, !read); err != nil {
		return err
	}
	msg.Unread = !read
	return nil
}

// Search applies filter to folder, replacing its messages with the
// matches and sorting them by the mail sort options.
func (c *Coordinator) Search(ctx context.Context, folder *model.Folder, filter model.ListFilter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	folder.Filter = filter
	if err := c.store.ApplyMessageFilter(ctx, folder); err != nil {
		return err
	}
	model.SortMessages(folder.Messages, c.bag.Options.MailSortField, c.bag.Options.MailSortOrder)
	return nil
}
