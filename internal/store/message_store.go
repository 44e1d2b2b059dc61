package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/nhle/kilamea/internal/model"
)

const messageColumns = `
	id, email_reference, from_addresses, recipients, cc_addresses, bcc_addresses,
	sent_date, received_date, subject, content, raw_data, unread, folder`

// foldFunction lowercases text with full Unicode case mapping; SQLite's
// built-in lower() folds ASCII letters only.
const foldFunction = "kilamea_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunction, 1, foldCase)
}

func foldCase(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// messageRow carries the epoch-millisecond columns that model.Message
// exposes as time.Time.
type messageRow struct {
	model.Message
	SentDate     int64 `db:"sent_date"`
	ReceivedDate int64 `db:"received_date"`
}

func (r *messageRow) toMessage() *model.Message {
	m := r.Message
	m.SentAt = fromMillis(r.SentDate)
	m.ReceivedAt = fromMillis(r.ReceivedDate)
	return &m
}

// AddMessage inserts a message and all of its current attachments in
// one transaction.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg *model.Message) error {
	if err := s.checkConnection(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = model.NewID()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErrorf(err, "adding message %s", msg.ID)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Reference, msg.From, msg.To, msg.Cc, msg.Bcc,
		toMillis(msg.SentAt), toMillis(msg.ReceivedAt),
		msg.Subject, msg.Content, msg.RawData,
		boolToInt(msg.Unread), msg.FolderID,
	)
	if err != nil {
		return storageErrorf(err, "adding message %s", msg.ID)
	}

	for _, att := range msg.Attachments {
		att.MessageID = msg.ID
		if err := insertAttachment(ctx, tx, att); err != nil {
			return storageErrorf(err, "adding message %s", msg.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErrorf(err, "adding message %s", msg.ID)
	}
	return nil
}

// MessageReferences returns the set of message references stored in a
// folder, regardless of any filter applied to its in-memory collection.
func (s *SQLiteStore) MessageReferences(ctx context.Context, folderID string) (map[string]struct{}, error) {
	if err := s.checkConnection(); err != nil {
		return nil, err
	}

	var refs []string
	err := s.db.SelectContext(ctx, &refs,
		"SELECT email_reference FROM messages WHERE folder = ? AND email_reference <> ''", folderID)
	if err != nil {
		return nil, storageErrorf(err, "listing references of folder %s", folderID)
	}

	set := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	return set, nil
}

// UpdateMessageFolder moves a message row to another folder. The
// in-memory folder collections are the caller's business.
func (s *SQLiteStore) UpdateMessageFolder(ctx context.Context, id, folderID string) error {
	return s.execAffectingOne(ctx, "moving message", id,
		"UPDATE messages SET folder = ? WHERE id = ?", folderID, id,
	)
}

// UpdateMessageUnread sets the unread flag of a message.
func (s *SQLiteStore) UpdateMessageUnread(ctx context.Context, id string, unread bool) error {
	return s.execAffectingOne(ctx, "marking message", id,
		"UPDATE messages SET unread = ? WHERE id = ?", boolToInt(unread), id,
	)
}

// DeleteMessage removes a message and its attachments.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErrorf(err, "deleting message %s", id)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM attachments WHERE message = ?", id); err != nil {
		return storageErrorf(err, "deleting attachments of message %s", id)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return storageErrorf(err, "deleting message %s", id)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storageErrorf(ErrNotFound, "deleting message %s", id)
	}

	if err := tx.Commit(); err != nil {
		return storageErrorf(err, "deleting message %s", id)
	}
	return nil
}

// AddAttachment inserts a single attachment row.
func (s *SQLiteStore) AddAttachment(ctx context.Context, att *model.Attachment) error {
	if err := s.checkConnection(); err != nil {
		return err
	}
	if err := insertAttachment(ctx, s.db, att); err != nil {
		return storageErrorf(err, "adding attachment %s", att.FileName)
	}
	return nil
}

// DeleteAttachment removes a single attachment row.
func (s *SQLiteStore) DeleteAttachment(ctx context.Context, id string) error {
	return s.execAffectingOne(ctx, "deleting attachment", id,
		"DELETE FROM attachments WHERE id = ?", id,
	)
}

// ApplyMessageFilter reloads the folder's messages from disk, keeping
// only those matching folder.Filter, and replaces folder.Messages with
// the result. A message matches when any whitespace-separated term of
// the filter occurs in its subject or content. An empty filter matches
// every message in the folder.
func (s *SQLiteStore) ApplyMessageFilter(ctx context.Context, folder *model.Folder) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	query, args := filterQuery(folder)

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return storageErrorf(err, "filtering messages of folder %s", folder.Name)
	}

	var atts []model.Attachment
	err := s.db.SelectContext(ctx, &atts, `
		SELECT id, file_name, content, message FROM attachments
		WHERE message IN (SELECT id FROM messages WHERE folder = ?)
		ORDER BY rowid`, folder.ID)
	if err != nil {
		return storageErrorf(err, "loading attachments of folder %s", folder.Name)
	}

	messages := make([]*model.Message, 0, len(rows))
	byID := make(map[string]*model.Message, len(rows))
	for i := range rows {
		m := rows[i].toMessage()
		messages = append(messages, m)
		byID[m.ID] = m
	}
	for i := range atts {
		if m, ok := byID[atts[i].MessageID]; ok {
			m.Attachments = append(m.Attachments, &atts[i])
		}
	}

	folder.Messages = messages
	return nil
}

// filterQuery builds the parameterized search for a folder's filter.
// Case-insensitive matching folds both sides with foldFunction.
func filterQuery(folder *model.Folder) (string, []any) {
	query := "SELECT " + messageColumns + " FROM messages WHERE folder = ?"
	args := []any{folder.ID}

	terms := folder.Filter.Terms()
	if len(terms) > 0 {
		conds := make([]string, 0, len(terms))
		for _, t := range terms {
			if folder.Filter.MatchCase {
				conds = append(conds, "instr(subject, ?) > 0 OR instr(content, ?) > 0")
			} else {
				conds = append(conds,
					"instr("+foldFunction+"(subject), "+foldFunction+"(?)) > 0 OR "+
						"instr("+foldFunction+"(content), "+foldFunction+"(?)) > 0")
			}
			args = append(args, t, t)
		}
		query += " AND (" + strings.Join(conds, " OR ") + ")"
	}

	return query + " ORDER BY rowid", args
}

func insertAttachment(ctx context.Context, ex sqlx.ExecerContext, att *model.Attachment) error {
	if att.ID == "" {
		att.ID = model.NewID()
	}
	_, err := ex.ExecContext(ctx,
		"INSERT INTO attachments (id, file_name, content, message) VALUES (?, ?, ?, ?)",
		att.ID, att.FileName, att.Content, att.MessageID,
	)
	if err != nil {
		return fmt.Errorf("inserting attachment %s: %w", att.FileName, err)
	}
	return nil
}
