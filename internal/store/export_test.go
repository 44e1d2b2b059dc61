package store

import "context"

// RawPassword reads the password column as stored.
func (s *SQLiteStore) RawPassword(ctx context.Context, accountID string) (string, error) {
	var pw string
	err := s.db.GetContext(ctx, &pw, "SELECT password FROM accounts WHERE id = ?", accountID)
	return pw, err
}

// SetRawPassword overwrites the password column without encrypting.
func (s *SQLiteStore) SetRawPassword(ctx context.Context, accountID, value string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE accounts SET password = ? WHERE id = ?", value, accountID)
	return err
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	return v, err
}
