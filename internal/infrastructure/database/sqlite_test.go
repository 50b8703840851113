package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentill/terminal/internal/domain/entity"
)

func TestMigrateCreatesLocalTables(t *testing.T) {
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "terminal.db"))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	assert.True(t, db.Migrator().HasTable(&entity.Record{}))
	assert.True(t, db.Migrator().HasTable(&entity.OfflineQueueEntry{}))
}
