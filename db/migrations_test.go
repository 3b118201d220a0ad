package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDatabase(DBConfig{
		Path:     ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	return db
}

func TestAutoMigrateAll_FreshDatabase(t *testing.T) {
	db := newTestDB(t)

	err := AutoMigrateAll(db)
	require.NoError(t, err)

	// All application tables exist
	for _, table := range []string{"migrations", "projects", "config_sets", "integrations", "deployments", "activity_log"} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s", table)
	}

	// Migration records were written
	var count int64
	err = db.Model(&MigrationModel{}).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(len(allMigrations)), count)
}

func TestAutoMigrateAll_Idempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, AutoMigrateAll(db))
	require.NoError(t, AutoMigrateAll(db))

	var count int64
	err := db.Model(&MigrationModel{}).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(len(allMigrations)), count, "migrations should be recorded once")
}

func TestMigration0001_RenameErrorMessage(t *testing.T) {
	db := newTestDB(t)

	// Create a legacy deployments table carrying the old column name
	err := db.Exec(`
		CREATE TABLE deployments (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			error_message TEXT
		)
	`).Error
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&MigrationModel{}))
	require.NoError(t, RunMigrations(db, 1))

	assert.True(t, db.Migrator().HasColumn(&DeploymentModel{}, "error_msg"))
	assert.False(t, db.Migrator().HasColumn(&DeploymentModel{}, "error_message"))

	// Idempotency: running again should not fail
	require.NoError(t, RunMigrations(db, 1))
}
