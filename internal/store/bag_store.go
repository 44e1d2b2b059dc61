package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"

	"github.com/BurntSushi/toml"

	"github.com/nhle/kilamea/internal/model"
)

const optionsRowID = "app"

// graphQuery joins the four entity levels. Rows come back in insertion
// order at every level so the rebuilt collections keep their order.
const graphQuery = `
SELECT
	a.id AS a_id, a.email AS a_email, a.display_name AS a_display_name,
	a.user AS a_user, a.password AS a_password, a.tokens AS a_tokens,
	a.protocol AS a_protocol, a.ssl_active AS a_ssl_active,
	a.incoming_host AS a_incoming_host, a.incoming_port AS a_incoming_port,
	a.outgoing_host AS a_outgoing_host, a.outgoing_port AS a_outgoing_port,
	f.id AS f_id, f.name AS f_name, f.type AS f_type,
	m.id AS m_id, m.email_reference AS m_email_reference,
	m.from_addresses AS m_from_addresses, m.recipients AS m_recipients,
	m.cc_addresses AS m_cc_addresses, m.bcc_addresses AS m_bcc_addresses,
	m.sent_date AS m_sent_date, m.received_date AS m_received_date,
	m.subject AS m_subject, m.content AS m_content, m.raw_data AS m_raw_data,
	m.unread AS m_unread,
	t.id AS t_id, t.file_name AS t_file_name, t.content AS t_content
FROM accounts a
LEFT JOIN folders f ON f.account = a.id
LEFT JOIN messages m ON m.folder = f.id
LEFT JOIN attachments t ON t.message = m.id
ORDER BY a.rowid, f.rowid, m.rowid, t.rowid`

// graphRow is one row of graphQuery. Everything below the account is
// nullable because of the outer joins.
type graphRow struct {
	AccountID    string `db:"a_id"`
	Email        string `db:"a_email"`
	DisplayName  string `db:"a_display_name"`
	User         string `db:"a_user"`
	Password     string `db:"a_password"`
	Tokens       string `db:"a_tokens"`
	Protocol     int    `db:"a_protocol"`
	SSLActive    bool   `db:"a_ssl_active"`
	IncomingHost string `db:"a_incoming_host"`
	IncomingPort int    `db:"a_incoming_port"`
	OutgoingHost string `db:"a_outgoing_host"`
	OutgoingPort int    `db:"a_outgoing_port"`

	FolderID   sql.NullString `db:"f_id"`
	FolderName sql.NullString `db:"f_name"`
	FolderType sql.NullInt64  `db:"f_type"`

	MessageID    sql.NullString `db:"m_id"`
	Reference    sql.NullString `db:"m_email_reference"`
	From         sql.NullString `db:"m_from_addresses"`
	To           sql.NullString `db:"m_recipients"`
	Cc           sql.NullString `db:"m_cc_addresses"`
	Bcc          sql.NullString `db:"m_bcc_addresses"`
	SentDate     sql.NullInt64  `db:"m_sent_date"`
	ReceivedDate sql.NullInt64  `db:"m_received_date"`
	Subject      sql.NullString `db:"m_subject"`
	Content      sql.NullString `db:"m_content"`
	RawData      sql.NullString `db:"m_raw_data"`
	Unread       sql.NullBool   `db:"m_unread"`

	AttachmentID      sql.NullString `db:"t_id"`
	AttachmentName    sql.NullString `db:"t_file_name"`
	AttachmentContent sql.NullString `db:"t_content"`
}

// LoadAccounts rebuilds the full account graph with a single query and
// replaces bag.Accounts with it. Join fan-out repeats parent columns;
// per-level maps make sure every repeated row attaches to the same
// parent instance.
func (s *SQLiteStore) LoadAccounts(ctx context.Context, bag *model.Bag) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	rows, err := s.db.QueryxContext(ctx, graphQuery)
	if err != nil {
		return storageErrorf(err, "loading accounts")
	}
	defer rows.Close()

	var (
		accounts    []*model.Account
		accountByID = make(map[string]*model.Account)
		folderByID  = make(map[string]*model.Folder)
		messageByID = make(map[string]*model.Message)
		seenAtt     = make(map[string]bool)
	)

	for rows.Next() {
		var r graphRow
		if err := rows.StructScan(&r); err != nil {
			return storageErrorf(err, "scanning account graph row")
		}

		account, ok := accountByID[r.AccountID]
		if !ok {
			account = &model.Account{
				ID:           r.AccountID,
				Email:        r.Email,
				DisplayName:  r.DisplayName,
				User:         r.User,
				Password:     s.decryptPassword(r.AccountID, r.Password),
				Tokens:       r.Tokens,
				Protocol:     model.Protocol(r.Protocol),
				SSLActive:    r.SSLActive,
				IncomingHost: r.IncomingHost,
				IncomingPort: r.IncomingPort,
				OutgoingHost: r.OutgoingHost,
				OutgoingPort: r.OutgoingPort,
			}
			accountByID[r.AccountID] = account
			accounts = append(accounts, account)
		}

		if !r.FolderID.Valid {
			continue
		}
		folder, ok := folderByID[r.FolderID.String]
		if !ok {
			folder = &model.Folder{
				ID:        r.FolderID.String,
				Name:      r.FolderName.String,
				Type:      model.FolderType(r.FolderType.Int64),
				AccountID: account.ID,
			}
			folderByID[folder.ID] = folder
			account.Folders = append(account.Folders, folder)
		}

		if !r.MessageID.Valid {
			continue
		}
		msg, ok := messageByID[r.MessageID.String]
		if !ok {
			msg = &model.Message{
				ID:         r.MessageID.String,
				Reference:  r.Reference.String,
				From:       r.From.String,
				To:         r.To.String,
				Cc:         r.Cc.String,
				Bcc:        r.Bcc.String,
				SentAt:     fromMillis(r.SentDate.Int64),
				ReceivedAt: fromMillis(r.ReceivedDate.Int64),
				Subject:    r.Subject.String,
				Content:    r.Content.String,
				RawData:    r.RawData.String,
				Unread:     r.Unread.Bool,
			}
			messageByID[msg.ID] = msg
			folder.AddMessage(msg)
		}

		if !r.AttachmentID.Valid || seenAtt[r.AttachmentID.String] {
			continue
		}
		seenAtt[r.AttachmentID.String] = true
		msg.AddAttachment(&model.Attachment{
			ID:       r.AttachmentID.String,
			FileName: r.AttachmentName.String,
			Content:  r.AttachmentContent.String,
		})
	}
	if err := rows.Err(); err != nil {
		return storageErrorf(err, "loading accounts")
	}

	bag.Accounts = accounts
	return nil
}

// LoadOptions decodes the options blob into bag.Options. A missing or
// empty blob leaves the defaults in place.
func (s *SQLiteStore) LoadOptions(ctx context.Context, bag *model.Bag) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	opts := model.DefaultOptions()

	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM options WHERE id = ?", optionsRowID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return storageErrorf(err, "loading options")
	}

	if value != "" {
		if _, err := toml.Decode(value, &opts); err != nil {
			return storageErrorf(err, "decoding options")
		}
	}

	bag.Options = opts
	return nil
}

// SaveOptions encodes bag.Options and writes it to the singleton row.
func (s *SQLiteStore) SaveOptions(ctx context.Context, bag *model.Bag) error {
	if err := s.checkConnection(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(bag.Options); err != nil {
		return storageErrorf(err, "encoding options")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO options (id, value) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value`,
		optionsRowID, buf.String(),
	)
	if err != nil {
		return storageErrorf(err, "saving options")
	}
	return nil
}
