package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/internal/infrastructure/database"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "terminal.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestRecordRepository_PutGetRemove(t *testing.T) {
	repo := NewRecordRepository(testDB(t))
	ctx := context.Background()

	item := entity.Item{ID: 12, Name: "Flat White", Price: 420}
	require.NoError(t, repo.Put(ctx, enum.RecordItem, item.Key(), item))

	var got entity.Item
	found, err := repo.Get(ctx, enum.RecordItem, "12", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, item, got)

	// Same key, different kind: no crosstalk
	found, err = repo.Get(ctx, enum.RecordCustomer, "12", nil)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Remove(ctx, enum.RecordItem, "12"))
	found, err = repo.Get(ctx, enum.RecordItem, "12", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordRepository_PutOverwrites(t *testing.T) {
	repo := NewRecordRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, enum.RecordItem, "1", entity.Item{ID: 1, Name: "Old"}))
	require.NoError(t, repo.Put(ctx, enum.RecordItem, "1", entity.Item{ID: 1, Name: "New"}))

	var got entity.Item
	found, err := repo.Get(ctx, enum.RecordItem, "1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "New", got.Name)

	count, err := repo.Count(ctx, enum.RecordItem)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestQueueRepository_InsertionOrder(t *testing.T) {
	repo := NewQueueRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "r1", enum.QueueActionSaleAdd, map[string]string{"ref": "r1"}))
	require.NoError(t, repo.Upsert(ctx, "r2", enum.QueueActionSaleAdd, map[string]string{"ref": "r2"}))
	require.NoError(t, repo.Upsert(ctx, "r3", enum.QueueActionNoteUpdate, map[string]string{"ref": "r3"}))

	entries, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "r1", entries[0].Ref)
	assert.Equal(t, "r2", entries[1].Ref)
	assert.Equal(t, "r3", entries[2].Ref)
}

func TestQueueRepository_UpsertSupersedesKeepingPosition(t *testing.T) {
	repo := NewQueueRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "r1", enum.QueueActionSaleAdd, map[string]string{"v": "add"}))
	require.NoError(t, repo.Upsert(ctx, "r2", enum.QueueActionSaleAdd, map[string]string{"v": "add"}))
	// The void of r1 supersedes its pending add and must keep first place.
	require.NoError(t, repo.Upsert(ctx, "r1", enum.QueueActionSaleVoid, map[string]string{"v": "void"}))

	entries, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "r1", entries[0].Ref)
	assert.Equal(t, enum.QueueActionSaleVoid, entries[0].Action)

	var payload map[string]string
	require.NoError(t, entries[0].DecodePayload(&payload))
	assert.Equal(t, "void", payload["v"])
}

func TestQueueRepository_DeleteAndPending(t *testing.T) {
	repo := NewQueueRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "r1", enum.QueueActionSaleAdd, nil))

	pending, err := repo.IsPending(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, repo.Delete(ctx, "r1"))

	pending, err = repo.IsPending(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, pending)

	// Deleting an absent ref is not an error
	require.NoError(t, repo.Delete(ctx, "r1"))
}
