// Package sqlitetest opens migrated throwaway SQLite databases for tests.
package sqlitetest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/marketplace-workflow/migrations"
	"github.com/garyjia/marketplace-workflow/pkg/database"
)

// Open creates a migrated database in t.TempDir and closes it when the test ends
func Open(t testing.TB) *sqlite.DB {
	t.Helper()

	logger := zap.NewNop()
	conn, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "workflow.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, database.NewMigrator(conn, logger).RunMigrationsFS(migrations.FS))

	return sqlite.NewDB(conn.DB, logger)
}
