package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/nhle/kilamea/internal/model"
	"github.com/nhle/kilamea/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically disconnects the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", store.WithLogger(DiscardLogger()))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Disconnect(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestAccount returns an IMAP account with its default folders.
func NewTestAccount(email string) *model.Account {
	a := model.NewAccount(email)
	a.DisplayName = "Test User"
	a.Password = "hunter2"
	a.IncomingHost = "imap.example.com"
	a.IncomingPort = model.ProtocolIMAP.Port(true)
	a.OutgoingHost = "smtp.example.com"
	a.OutgoingPort = model.ProtocolSMTP.Port(true)
	a.InitFolders()
	return a
}
