package database

import (
	"context"
	"fmt"
	"time"

	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// SaveSlot stores the message id of a chat's menu or status slot
func (db *DB) SaveSlot(ctx context.Context, chatID int64, role string, messageID int) error {
	query := `
		INSERT INTO message_slots (chat_id, role, message_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id, role) DO UPDATE SET message_id = excluded.message_id, updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query, chatID, role, messageID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

// ClearSlot forgets a slot's message id
func (db *DB) ClearSlot(ctx context.Context, chatID int64, role string) error {
	query := `DELETE FROM message_slots WHERE chat_id = ? AND role = ?`
	_, err := db.ExecContext(ctx, query, chatID, role)
	if err != nil {
		return fmt.Errorf("failed to clear slot: %w", err)
	}
	return nil
}

// GetSlots returns the message ids of a chat keyed by role
func (db *DB) GetSlots(ctx context.Context, chatID int64) (map[string]int, error) {
	var slots []models.MessageSlot
	query := `SELECT * FROM message_slots WHERE chat_id = ?`
	if err := db.SelectContext(ctx, &slots, query, chatID); err != nil {
		return nil, fmt.Errorf("failed to get slots: %w", err)
	}

	ids := make(map[string]int, len(slots))
	for _, s := range slots {
		ids[s.Role] = s.MessageID
	}
	return ids, nil
}
