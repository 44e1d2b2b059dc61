package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/kilamea/internal/credential"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db     *sqlx.DB
	path   string
	logger *slog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for migration and credential events.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) {
		s.logger = l
	}
}

// New returns a store that is not yet connected.
func New(opts ...Option) *SQLiteStore {
	s := &SQLiteStore{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSQLiteStore creates a store and connects it to dbPath.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	s := New(opts...)
	if err := s.Connect(context.Background(), dbPath); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect opens (or creates) a SQLite database at dbPath, enables WAL
// mode and foreign keys, and runs any pending schema migrations.
// Connecting an already connected store is an error.
func (s *SQLiteStore) Connect(ctx context.Context, dbPath string) error {
	if s.db != nil {
		return storageErrorf(nil, "already connected to %s", s.path)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return storageErrorf(err, "opening database %s", dbPath)
	}

	// A single connection keeps ":memory:" databases shared and matches
	// the single-writer access model.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return storageErrorf(err, "enabling WAL mode on %s", dbPath)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return storageErrorf(err, "enabling foreign keys on %s", dbPath)
	}

	s.db = db
	s.path = dbPath

	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		s.db = nil
		return storageErrorf(err, "migrating %s", dbPath)
	}

	return nil
}

// Disconnect closes the database. Calling it on a closed store is a no-op.
func (s *SQLiteStore) Disconnect() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return storageErrorf(err, "closing %s", s.path)
	}
	return nil
}

// Connected reports whether the store holds an open database.
func (s *SQLiteStore) Connected() bool {
	return s.db != nil
}

// checkConnection guards every operation against a closed store.
func (s *SQLiteStore) checkConnection() error {
	if s.db == nil {
		return &StorageError{Message: "database is not connected", Err: ErrNotConnected}
	}
	return nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order, each in its own transaction.
func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	currentVersion := 0

	var tableCount int
	err := s.db.GetContext(ctx,
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.GetContext(ctx, &currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", m.version, err)
		}

		s.logger.Info("applied schema migration", "version", m.version, "path", s.path)
	}

	return nil
}

// encryptPassword encrypts a password for storage. Failures are logged
// and stored as an empty password so the account itself still saves.
func (s *SQLiteStore) encryptPassword(accountID, password string) string {
	enc, err := credential.Encrypt(password)
	if err != nil {
		s.logger.Warn("encrypting account password failed, storing empty password",
			"account", accountID, "error", err)
		return ""
	}
	return enc
}

// decryptPassword reverses encryptPassword. A corrupt value yields an
// empty password so the rest of the account list still loads.
func (s *SQLiteStore) decryptPassword(accountID, stored string) string {
	plain, err := credential.Decrypt(stored)
	if err != nil {
		s.logger.Warn("decrypting account password failed, using empty password",
			"account", accountID, "error", err)
		return ""
	}
	return plain
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// toMillis converts a timestamp to epoch milliseconds. The zero time
// is stored as 0.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// execAffectingOne runs a single-row update or delete and reports
// ErrNotFound when nothing matched.
func (s *SQLiteStore) execAffectingOne(
	ctx context.Context, what, id, query string, args ...any,
) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErrorf(err, "%s %s", what, id)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return storageErrorf(ErrNotFound, "%s %s", what, id)
	}
	return nil
}
