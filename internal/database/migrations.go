package database

// migrations are applied in order; the schema version is the number of
// steps applied, kept in PRAGMA user_version. Append only.
var migrations = []string{
	// 1: persisted menu and status message ids
	`
CREATE TABLE IF NOT EXISTS message_slots (
    chat_id INTEGER NOT NULL,
    role TEXT NOT NULL,
    message_id INTEGER NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (chat_id, role)
);
`,
	// 2: audit of mutating actions
	`
CREATE TABLE IF NOT EXISTS action_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id INTEGER NOT NULL,
    action TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_action_log_chat ON action_log(chat_id, created_at);
`,
}
