package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/simpla/backend/pkg/debug"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migration is one embedded SQL file, versioned by its numeric prefix
// ("001_create_schema.sql" is version 1).
type migration struct {
	version int
	name    string
}

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// migrate applies pending schema migrations in version order. Each file
// runs in its own transaction together with its schema_migrations row, so
// a failed file leaves no partial record behind.
func (s *Store) migrate(ctx context.Context) error {
	pending, err := loadMigrations(migrationFiles)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, createVersionTable); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := s.pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	for _, v := range versions {
		applied[v] = true
	}

	for _, m := range pending {
		if applied[m.version] {
			debug.Log(ctx, s.logger, debug.Storage, "migration already applied", "version", m.version)
			continue
		}

		content, err := migrationFiles.ReadFile("migrations/" + m.name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", m.name, err)
		}

		s.logger.Info("applying migration", "file", m.name, "version", m.version)

		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING",
				m.version,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", m.name, err)
		}
	}

	return nil
}

// loadMigrations lists the versioned .sql files in fsys, sorted by version.
// Files without a numeric prefix are ignored; a repeated version is an error.
func loadMigrations(fsys fs.ReadDirFS) ([]migration, error) {
	entries, err := fsys.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	seen := make(map[int]string)
	var out []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, name, version)
		}
		seen[version] = name
		out = append(out, migration{version: version, name: name})
	}

	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}
