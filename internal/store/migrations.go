package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
// Child rows reference their parents but carry no ON DELETE action:
// cascades are issued explicitly, children first.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	user          TEXT NOT NULL DEFAULT '',
	password      TEXT NOT NULL DEFAULT '',
	tokens        TEXT NOT NULL DEFAULT '',
	protocol      INTEGER NOT NULL DEFAULT 0,
	ssl_active    INTEGER NOT NULL DEFAULT 1 CHECK(ssl_active IN (0, 1)),
	incoming_host TEXT NOT NULL DEFAULT '',
	incoming_port INTEGER NOT NULL DEFAULT 0,
	outgoing_host TEXT NOT NULL DEFAULT '',
	outgoing_port INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS folders (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	type    INTEGER NOT NULL,
	account TEXT NOT NULL REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	email_reference TEXT NOT NULL DEFAULT '',
	from_addresses  TEXT NOT NULL DEFAULT '',
	recipients      TEXT NOT NULL DEFAULT '',
	cc_addresses    TEXT NOT NULL DEFAULT '',
	bcc_addresses   TEXT NOT NULL DEFAULT '',
	sent_date       INTEGER NOT NULL DEFAULT 0,
	received_date   INTEGER NOT NULL DEFAULT 0,
	subject         TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL DEFAULT '',
	raw_data        TEXT NOT NULL DEFAULT '',
	unread          INTEGER NOT NULL DEFAULT 0 CHECK(unread IN (0, 1)),
	folder          TEXT NOT NULL REFERENCES folders(id)
);

CREATE TABLE IF NOT EXISTS attachments (
	id        TEXT PRIMARY KEY,
	file_name TEXT NOT NULL DEFAULT '',
	content   TEXT NOT NULL DEFAULT '',
	message   TEXT NOT NULL REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS options (
	id    TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

INSERT OR IGNORE INTO options (id, value) VALUES ('app', '');

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_folders_account ON folders(account);
CREATE INDEX IF NOT EXISTS idx_messages_folder ON messages(folder);
CREATE INDEX IF NOT EXISTS idx_messages_reference ON messages(folder, email_reference);
CREATE INDEX IF NOT EXISTS idx_attachments_message ON attachments(message);
CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email COLLATE NOCASE);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
