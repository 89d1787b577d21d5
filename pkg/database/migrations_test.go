package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/migrations"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_AppliesOnce(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"002_widgets_index.sql": {Data: []byte("CREATE INDEX idx_widgets_name ON widgets(name);")},
		"001_widgets.sql":       {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY, name TEXT);")},
		"README.md":             {Data: []byte("ignored")},
	}

	m := NewMigrator(db, zap.NewNop())
	require.NoError(t, m.RunMigrationsFS(fsys))
	require.NoError(t, m.RunMigrationsFS(fsys))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM schema_migrations WHERE version = 2").Scan(&name))
	assert.Equal(t, "widgets_index", name)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ok (id TEXT); CREATE TABLE;")},
	}

	err := NewMigrator(db, zap.NewNop()).RunMigrationsFS(fsys)
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Zero(t, count)
}

func TestMigrator_RejectsBadFilenames(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"001_a.sql": {Data: []byte("SELECT 1;")},
				"1_b.sql":   {Data: []byte("SELECT 1;")},
			},
			want: "duplicate migration version 1",
		},
		{
			name: "no version",
			fsys: fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}},
			want: "invalid migration filename",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMigrator(openTestDB(t), zap.NewNop()).RunMigrationsFS(tt.fsys)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMigrations_EmbeddedSchema(t *testing.T) {
	loaded, err := LoadMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, loaded)

	for i, mig := range loaded {
		assert.Equal(t, i+1, mig.Version)
		assert.NotEmpty(t, mig.Name)
		assert.NotEmpty(t, mig.SQL)
	}
}
