package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MigratesSessionTable(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "petvision.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	assert.True(t, db.Migrator().HasTable(&SessionRecord{}))

	now := time.Now()
	rec := SessionRecord{
		Key:       "sid:veterinary",
		SessionID: "sid",
		Flow:      "veterinary",
		State:     "image_selected",
		ImageData: []byte{0x89, 'P', 'N', 'G'},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&rec).Error)

	var got SessionRecord
	require.NoError(t, db.First(&got, "record_key = ?", "sid:veterinary").Error)
	assert.Equal(t, rec.ImageData, got.ImageData)
	assert.Equal(t, "image_selected", got.State)
}

func TestMigrationManager_Idempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "petvision.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	// 第二次执行不会重复应用
	require.NoError(t, Migrate(db))

	history, err := NewMigrationManager(db).History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "001_session_records", history[0].Version)
}

func TestMigrationManager_Rollback(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "petvision.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	manager := NewMigrationManager(db)
	assert.Error(t, manager.RollbackMigration("001_session_records"), "unregistered migration")

	require.NoError(t, Migrate(db))
	manager = NewMigrationManager(db)
	manager.AddMigration(registered()[0])
	require.NoError(t, manager.RollbackMigration("001_session_records"))
	assert.False(t, db.Migrator().HasTable(&SessionRecord{}))

	assert.Error(t, manager.RollbackMigration("001_session_records"), "already rolled back")
}
