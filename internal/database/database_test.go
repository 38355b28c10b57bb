package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "data", "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Migrate(context.Background())
	require.NoError(t, err)
	return db
}

func TestSlots(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slots, err := db.GetSlots(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, slots)

	require.NoError(t, db.SaveSlot(ctx, 1, "menu", 10))
	require.NoError(t, db.SaveSlot(ctx, 1, "status", 11))
	require.NoError(t, db.SaveSlot(ctx, 1, "menu", 12))
	require.NoError(t, db.SaveSlot(ctx, 2, "menu", 99))

	slots, err = db.GetSlots(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"menu": 12, "status": 11}, slots)

	require.NoError(t, db.ClearSlot(ctx, 1, "menu"))
	slots, err = db.GetSlots(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"status": 11}, slots)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)

	version, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}

func TestMigrateAppliesPendingSteps(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")

	db, err := New(ctx, path)
	require.NoError(t, err)
	version, err := db.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)

	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), applied)
	require.NoError(t, db.Close())

	// Reopening keeps the version
	db, err = New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	applied, err = db.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)
	require.NoError(t, db.SaveSlot(ctx, 1, "menu", 3))
}

func TestMigrateRefusesNewerSchema(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "PRAGMA user_version = 99")
	require.NoError(t, err)
	_, err = db.Migrate(ctx)
	assert.ErrorContains(t, err, "newer than this binary")
}

func TestActionLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &models.ActionRecord{ChatID: 1, Action: "restart", Detail: "sudo shutdown -r +1", Outcome: "ok"}
	require.NoError(t, db.LogAction(ctx, first))
	assert.NotZero(t, first.ID)

	second := &models.ActionRecord{ChatID: 1, Action: "shutdown", Detail: "sudo shutdown -h +1", Outcome: "ok"}
	require.NoError(t, db.LogAction(ctx, second))
	require.NoError(t, db.LogAction(ctx, &models.ActionRecord{ChatID: 2, Action: "shutdown"}))

	records, err := db.RecentActions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "shutdown", records[0].Action)
	assert.Equal(t, "restart", records[1].Action)

	pruned, err := db.PruneActions(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), pruned)
}
