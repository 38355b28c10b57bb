package models

import "time"

// MessageSlot is a persisted menu or status message id
type MessageSlot struct {
	ChatID    int64     `db:"chat_id"`
	Role      string    `db:"role"` // menu or status
	MessageID int       `db:"message_id"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ActionRecord is an executed host or service action
type ActionRecord struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Action    string    `db:"action"`  // e.g. shutdown, radarr remove
	Detail    string    `db:"detail"`  // command line or item title
	Outcome   string    `db:"outcome"` // ok or the error
	CreatedAt time.Time `db:"created_at"`
}
