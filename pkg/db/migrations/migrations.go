package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migration is one versioned schema change
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Builtin returns the schema migrations the wallet repository depends on,
// in order.
func Builtin() []Migration {
	return []Migration{
		{
			Version:     "001",
			Description: "wallet table",
			SQL: `
			CREATE TABLE IF NOT EXISTS wallet (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				balance INTEGER NOT NULL DEFAULT 0,
				currency TEXT NOT NULL DEFAULT 'KOLO',
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
		},
		{
			Version:     "002",
			Description: "transactions table",
			SQL: `
			CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				method TEXT NOT NULL,
				amount INTEGER NOT NULL,
				currency TEXT NOT NULL,
				status TEXT NOT NULL,
				destination TEXT,
				timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				balance_after INTEGER NOT NULL
			);`,
		},
		{
			Version:     "003",
			Description: "transaction indexes",
			SQL: `
			CREATE INDEX IF NOT EXISTS idx_transactions_kind ON transactions(kind);
			CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp DESC);`,
		},
	}
}

// Migrator applies versioned migrations to a SQLite database, recording
// each applied version so reruns are no-ops.
type Migrator struct {
	db            *sql.DB
	migrationsDir string
}

// NewMigrator creates a migrator. migrationsDir may be empty when only
// built-in migrations are applied.
func NewMigrator(db *sql.DB, migrationsDir string) *Migrator {
	return &Migrator{
		db:            db,
		migrationsDir: migrationsDir,
	}
}

// Initialize creates the migrations bookkeeping table
func (m *Migrator) Initialize() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			version TEXT NOT NULL,
			description TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// AppliedVersions returns the set of already applied migration versions
func (m *Migrator) AppliedVersions() (map[string]bool, error) {
	rows, err := m.db.Query("SELECT version FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// LoadDir loads migration files from the migrations directory. Filenames
// follow the "001_description.sql" convention.
func (m *Migrator) LoadDir() ([]Migration, error) {
	if m.migrationsDir == "" {
		return nil, nil
	}

	files, err := os.ReadDir(m.migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var loaded []Migration
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(m.migrationsDir, file.Name()))
		if err != nil {
			return nil, err
		}

		parts := strings.SplitN(strings.TrimSuffix(file.Name(), ".sql"), "_", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid migration filename: %s", file.Name())
		}

		loaded = append(loaded, Migration{
			Version:     parts[0],
			Description: strings.ReplaceAll(parts[1], "_", " "),
			SQL:         string(content),
		})
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].Version < loaded[j].Version
	})

	return loaded, nil
}

// Apply applies a single migration inside a transaction
func (m *Migrator) Apply(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(migration.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("error applying migration %s: %w", migration.Version, err)
	}

	if _, err := tx.Exec(
		"INSERT INTO migrations (version, description) VALUES (?, ?)",
		migration.Version,
		migration.Description,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("error recording migration %s: %w", migration.Version, err)
	}

	return tx.Commit()
}

// MigrateUp applies the built-in migrations followed by any pending
// migrations found in the migrations directory.
func (m *Migrator) MigrateUp() error {
	if err := m.Initialize(); err != nil {
		return err
	}

	applied, err := m.AppliedVersions()
	if err != nil {
		return err
	}

	extra, err := m.LoadDir()
	if err != nil {
		return err
	}

	for _, migration := range append(Builtin(), extra...) {
		if applied[migration.Version] {
			continue
		}
		log.Printf("[DB] Applying migration %s: %s", migration.Version, migration.Description)
		if err := m.Apply(migration); err != nil {
			return err
		}
	}

	return nil
}
