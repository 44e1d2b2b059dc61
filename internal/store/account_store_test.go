package store_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kilamea/internal/model"
	"github.com/nhle/kilamea/internal/store"
	"github.com/nhle/kilamea/tests/testutil"
)

func countRows(t *testing.T, s *store.SQLiteStore, ctx context.Context) (accounts, folders, messages, attachments int) {
	t.Helper()
	bag := model.NewBag()
	require.NoError(t, s.LoadAccounts(ctx, bag))
	accounts = len(bag.Accounts)
	for _, a := range bag.Accounts {
		folders += len(a.Folders)
		for _, f := range a.Folders {
			messages += len(f.Messages)
			for _, m := range f.Messages {
				attachments += len(m.Attachments)
			}
		}
	}
	return
}

func TestAddAccountPersistsDefaultFolders(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	account := model.NewAccount("alice@example.com")
	require.NoError(t, s.AddAccount(ctx, account))

	require.Len(t, account.Folders, 5)

	bag := model.NewBag()
	require.NoError(t, s.LoadAccounts(ctx, bag))
	require.Len(t, bag.Accounts, 1)

	loaded := bag.Accounts[0]
	assert.Equal(t, account.ID, loaded.ID)
	for _, ft := range []model.FolderType{
		model.FolderInbox, model.FolderDrafts, model.FolderSent,
		model.FolderArchive, model.FolderTrash,
	} {
		f := loaded.FolderByType(ft)
		require.NotNil(t, f, "missing %s", ft)
		assert.Equal(t, ft.String(), f.Name)
		assert.Equal(t, loaded.ID, f.AccountID)
	}
}

func TestAccountLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	account := testutil.NewTestAccount("a@example.com")
	require.NoError(t, s.AddAccount(ctx, account))

	accounts, folders, _, _ := countRows(t, s, ctx)
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 5, folders)

	inbox := account.FolderByType(model.FolderInbox)
	msg := model.NewMessage()
	msg.Reference = "msg-1"
	msg.Subject = "hello"
	inbox.AddMessage(msg)
	require.NoError(t, s.AddMessage(ctx, msg))

	assert.True(t, inbox.ContainsMessage("msg-1"))

	require.NoError(t, s.DeleteAccount(ctx, account.ID))

	accounts, folders, messages, attachments := countRows(t, s, ctx)
	assert.Zero(t, accounts)
	assert.Zero(t, folders)
	assert.Zero(t, messages)
	assert.Zero(t, attachments)
}

func TestDeleteAccountCascadesOnlyItsOwnRows(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	keep := testutil.NewTestAccount("keep@example.com")
	drop := testutil.NewTestAccount("drop@example.com")
	require.NoError(t, s.AddAccount(ctx, keep))
	require.NoError(t, s.AddAccount(ctx, drop))

	for _, a := range []*model.Account{keep, drop} {
		for _, ft := range []model.FolderType{model.FolderInbox, model.FolderSent} {
			msg := model.NewMessage()
			msg.Subject = a.Email
			msg.AddAttachment(model.NewAttachment("a.txt", []byte("payload")))
			a.FolderByType(ft).AddMessage(msg)
			require.NoError(t, s.AddMessage(ctx, msg))
		}
	}

	require.NoError(t, s.DeleteAccount(ctx, drop.ID))

	bag := model.NewBag()
	require.NoError(t, s.LoadAccounts(ctx, bag))
	require.Len(t, bag.Accounts, 1)
	assert.Equal(t, keep.ID, bag.Accounts[0].ID)

	accounts, folders, messages, attachments := countRows(t, s, ctx)
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 5, folders)
	assert.Equal(t, 2, messages)
	assert.Equal(t, 2, attachments)

	// Nothing referencing the dropped account remains.
	for _, a := range bag.Accounts {
		for _, f := range a.Folders {
			assert.NotEqual(t, drop.ID, f.AccountID)
		}
	}
}

func TestDeleteUnknownAccount(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.DeleteAccount(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var se *store.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestPasswordEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mail.db")

	s, err := store.NewSQLiteStore(dbPath, store.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)

	account := testutil.NewTestAccount("secret@example.com")
	account.Password = "correct horse battery staple"
	require.NoError(t, s.AddAccount(ctx, account))
	require.NoError(t, s.Disconnect())

	// Reopen the file and check the raw column.
	raw, err := store.NewSQLiteStore(dbPath, store.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Disconnect() })

	stored, err := raw.RawPassword(ctx, account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, account.Password, stored)
	assert.Contains(t, stored, ":")

	bag := model.NewBag()
	require.NoError(t, raw.LoadAccounts(ctx, bag))
	require.Len(t, bag.Accounts, 1)
	assert.Equal(t, account.Password, bag.Accounts[0].Password)
}

func TestCorruptPasswordLoadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	good := testutil.NewTestAccount("good@example.com")
	bad := testutil.NewTestAccount("bad@example.com")
	require.NoError(t, s.AddAccount(ctx, good))
	require.NoError(t, s.AddAccount(ctx, bad))
	require.NoError(t, s.SetRawPassword(ctx, bad.ID, "not-a-ciphertext"))

	bag := model.NewBag()
	require.NoError(t, s.LoadAccounts(ctx, bag))
	require.Len(t, bag.Accounts, 2)

	assert.Equal(t, good.Password, bag.AccountByID(good.ID).Password)
	assert.Empty(t, bag.AccountByID(bad.ID).Password)
}

func TestUpdateAccountAndTokens(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	account := testutil.NewTestAccount("tok@gmail.com")
	require.NoError(t, s.AddAccount(ctx, account))

	account.DisplayName = "Renamed"
	account.Protocol = model.ProtocolPOP3
	account.SSLActive = false
	account.IncomingPort = model.ProtocolPOP3.Port(false)
	require.NoError(t, s.UpdateAccount(ctx, account))

	tokens := model.JoinTokens("access-1", "refresh-1")
	require.NoError(t, s.UpdateAccountTokens(ctx, account.ID, tokens))

	bag := model.NewBag()
	require.NoError(t, s.LoadAccounts(ctx, bag))
	loaded := bag.AccountByID(account.ID)
	require.NotNil(t, loaded)

	assert.Equal(t, "Renamed", loaded.DisplayName)
	assert.Equal(t, model.ProtocolPOP3, loaded.Protocol)
	assert.False(t, loaded.SSLActive)
	assert.Equal(t, 110, loaded.IncomingPort)
	assert.Equal(t, "access-1", loaded.AccessToken())
	assert.Equal(t, "refresh-1", loaded.RefreshToken())
	assert.Equal(t, account.Password, loaded.Password)

	err := s.UpdateAccountTokens(ctx, "missing", tokens)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotConnected(t *testing.T) {
	ctx := context.Background()
	s := store.New(store.WithLogger(testutil.DiscardLogger()))

	checks := map[string]error{
		"AddAccount":    s.AddAccount(ctx, model.NewAccount("x@example.com")),
		"DeleteFolder":  s.DeleteFolder(ctx, "f"),
		"AddMessage":    s.AddMessage(ctx, model.NewMessage()),
		"AddContact":    s.AddContact(ctx, model.NewContact("c@example.com", "", "")),
		"LoadAccounts":  s.LoadAccounts(ctx, model.NewBag()),
		"SaveOptions":   s.SaveOptions(ctx, model.NewBag()),
		"ApplyFilter":   s.ApplyMessageFilter(ctx, &model.Folder{}),
		"UpdateUnread":  s.UpdateMessageUnread(ctx, "m", false),
		"DeleteContact": s.DeleteContact(ctx, "c"),
	}
	for name, err := range checks {
		assert.ErrorIs(t, err, store.ErrNotConnected, name)
	}
}

func TestDisconnectIsIdempotentAndReconnectKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mail.db")

	s := store.New(store.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, s.Connect(ctx, dbPath))

	account := testutil.NewTestAccount("persist@example.com")
	require.NoError(t, s.AddAccount(ctx, account))

	require.NoError(t, s.Disconnect())
	require.NoError(t, s.Disconnect())
	assert.False(t, s.Connected())

	require.NoError(t, s.Connect(ctx, dbPath))
	t.Cleanup(func() { _ = s.Disconnect() })

	bag := model.NewBag()
	require.NoError(t, s.LoadAccounts(ctx, bag))
	require.Len(t, bag.Accounts, 1)
	assert.Equal(t, account.ID, bag.Accounts[0].ID)

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestConnectFailsOnUnwritablePath(t *testing.T) {
	s := store.New(store.WithLogger(testutil.DiscardLogger()))
	dir := t.TempDir()

	// A directory cannot be opened as a database file.
	err := s.Connect(context.Background(), dir)
	require.Error(t, err)

	var se *store.StorageError
	require.ErrorAs(t, err, &se)
	assert.True(t, strings.Contains(se.Error(), dir))
	assert.False(t, s.Connected())
}

func TestRoundTripGraph(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	account := testutil.NewTestAccount("round@example.com")
	account.Tokens = model.JoinTokens("a", "r")
	work, err := account.AddCustomFolder("Work")
	require.NoError(t, err)
	require.NoError(t, s.AddAccount(ctx, account))

	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	inbox := account.FolderByType(model.FolderInbox)

	m1 := model.NewMessage()
	m1.Reference = "<1@example.com>"
	m1.From = "Bob <bob@example.com>"
	m1.To = "round@example.com"
	m1.Cc = "carol@example.com"
	m1.Subject = "First"
	m1.Content = "body one"
	m1.RawData = "Subject: First\r\n\r\nbody one"
	m1.SentAt = base
	m1.ReceivedAt = base.Add(time.Minute)
	m1.Unread = true
	m1.AddAttachment(model.NewAttachment("one.txt", []byte("1")))
	m1.AddAttachment(model.NewAttachment("two.bin", []byte{0, 1, 2}))
	inbox.AddMessage(m1)

	m2 := model.NewMessage()
	m2.Reference = "<2@example.com>"
	m2.Subject = "Second"
	m2.SentAt = base.Add(time.Hour)
	inbox.AddMessage(m2)

	m3 := model.NewMessage()
	m3.Subject = "Filed"
	m3.Bcc = "hidden@example.com"
	work.AddMessage(m3)

	for _, m := range []*model.Message{m1, m2, m3} {
		require.NoError(t, s.AddMessage(ctx, m))
	}

	bag := model.NewBag()
	require.NoError(t, s.LoadAccounts(ctx, bag))
	require.Len(t, bag.Accounts, 1)
	loaded := bag.Accounts[0]

	assert.Equal(t, account.Email, loaded.Email)
	assert.Equal(t, account.DisplayName, loaded.DisplayName)
	assert.Equal(t, account.Password, loaded.Password)
	assert.Equal(t, account.Tokens, loaded.Tokens)
	assert.Equal(t, account.IncomingHost, loaded.IncomingHost)
	assert.Equal(t, account.OutgoingPort, loaded.OutgoingPort)

	require.Len(t, loaded.Folders, len(account.Folders))
	for i, f := range account.Folders {
		lf := loaded.Folders[i]
		assert.Equal(t, f.ID, lf.ID)
		assert.Equal(t, f.Name, lf.Name)
		assert.Equal(t, f.Type, lf.Type)
		require.Len(t, lf.Messages, len(f.Messages), f.Name)

		for j, m := range f.Messages {
			lm := lf.Messages[j]
			assert.Equal(t, m.ID, lm.ID)
			assert.Equal(t, m.Reference, lm.Reference)
			assert.Equal(t, m.From, lm.From)
			assert.Equal(t, m.To, lm.To)
			assert.Equal(t, m.Cc, lm.Cc)
			assert.Equal(t, m.Bcc, lm.Bcc)
			assert.Equal(t, m.Subject, lm.Subject)
			assert.Equal(t, m.Content, lm.Content)
			assert.Equal(t, m.RawData, lm.RawData)
			assert.Equal(t, m.Unread, lm.Unread)
			assert.True(t, m.SentAt.Equal(lm.SentAt))
			assert.True(t, m.ReceivedAt.Equal(lm.ReceivedAt))
			assert.Equal(t, lf.ID, lm.FolderID)

			require.Len(t, lm.Attachments, len(m.Attachments))
			for k, a := range m.Attachments {
				la := lm.Attachments[k]
				assert.Equal(t, a.ID, la.ID)
				assert.Equal(t, a.FileName, la.FileName)
				assert.Equal(t, a.Content, la.Content)
				assert.Equal(t, lm.ID, la.MessageID)
			}
		}
	}
}
