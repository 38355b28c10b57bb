package database

import (
	"context"
	"fmt"
	"time"

	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// LogAction records an executed action
func (db *DB) LogAction(ctx context.Context, record *models.ActionRecord) error {
	query := `
		INSERT INTO action_log (chat_id, action, detail, outcome, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		record.ChatID,
		record.Action,
		record.Detail,
		record.Outcome,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	record.CreatedAt = now
	return nil
}

// RecentActions returns the latest actions of a chat, newest first
func (db *DB) RecentActions(ctx context.Context, chatID int64, limit int) ([]*models.ActionRecord, error) {
	var records []*models.ActionRecord
	query := `SELECT * FROM action_log WHERE chat_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	err := db.SelectContext(ctx, &records, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent actions: %w", err)
	}
	return records, nil
}

// PruneActions deletes actions older than before
func (db *DB) PruneActions(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM action_log WHERE created_at < ?`
	result, err := db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune actions: %w", err)
	}
	return result.RowsAffected()
}
