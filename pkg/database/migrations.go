package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migration is one versioned SQL file, named like 001_create_entities.sql
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies pending migrations and records them in schema_migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// RunMigrationsFS applies, in version order, every *.sql file at the root of
// fsys that is not yet recorded. Each migration runs in its own transaction.
func (m *Migrator) RunMigrationsFS(fsys fs.FS) error {
	if _, err := m.db.Exec(createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	pending := 0
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		m.logger.Info("Applying migration",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name))

		if err := m.apply(mig); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
		pending++
	}

	m.logger.Info("Database migrations completed",
		zap.Int("applied", pending),
		zap.Int("total", len(migrations)))
	return nil
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// LoadMigrations reads the *.sql files at the root of fsys sorted by version.
// Filenames must start with a number; two files with the same number are an error.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]string, len(files))
	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		prefix, name, _ := strings.Cut(strings.TrimSuffix(file, ".sql"), "_")
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("invalid migration filename format: %s", file)
		}
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, file)
		}
		byVersion[version] = file

		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Migrator) apply(mig Migration) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(mig.SQL); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			mig.Version, mig.Name,
		); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}
