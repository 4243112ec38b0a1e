package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"storepilot/migrations"
)

// MigrationStatus describes one embedded migration.
type MigrationStatus struct {
	ID        string
	Checksum  string
	Applied   bool
	AppliedAt *time.Time
}

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// Migrate applies pending migrations in filename order. Applied migrations
// whose embedded file changed are rejected by checksum.
func Migrate(db *sqlx.DB) error {
	pending, err := loadMigrations(db)
	if err != nil {
		return err
	}
	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if sum, ok := applied[m.ID]; ok {
			if sum != m.Checksum {
				return fmt.Errorf("checksum mismatch for migration %s", m.ID)
			}
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("applying migration %s: %w", m.ID, err)
		}
	}
	return nil
}

// Status lists every embedded migration and whether it has been applied.
func Status(db *sqlx.DB) ([]MigrationStatus, error) {
	all, err := loadMigrations(db)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID        string    `db:"migration_id"`
		AppliedAt time.Time `db:"applied_at"`
	}
	if err := db.Select(&rows, "SELECT migration_id, applied_at FROM schema_migrations"); err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	appliedAt := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		appliedAt[r.ID] = r.AppliedAt
	}

	out := make([]MigrationStatus, 0, len(all))
	for _, m := range all {
		st := MigrationStatus{ID: m.ID, Checksum: m.Checksum}
		if at, ok := appliedAt[m.ID]; ok {
			st.Applied = true
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// loadMigrations ensures the tracking table exists and reads the embedded
// files for the connection's dialect.
func loadMigrations(db *sqlx.DB) ([]migration, error) {
	var fsys fs.FS
	var dir string
	switch db.DriverName() {
	case sqliteDriver:
		fsys, dir = migrations.Sqlite, "sqlite"
	case "postgres":
		fsys, dir = migrations.Postgres, "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		migration_id TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(content)
		out = append(out, migration{ID: e.Name(), Checksum: hex.EncodeToString(sum[:]), SQL: string(content)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func appliedMigrations(db *sqlx.DB) (map[string]string, error) {
	var rows []struct {
		ID       string `db:"migration_id"`
		Checksum string `db:"checksum"`
	}
	if err := db.Select(&rows, "SELECT migration_id, checksum FROM schema_migrations"); err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Checksum
	}
	return out, nil
}

// applyMigration runs each statement and records the migration in one
// transaction. lib/pq rejects multi-statement Exec, so the file is split.
func applyMigration(db *sqlx.DB, m migration) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(m.SQL) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}
	if _, err := tx.Exec(
		tx.Rebind("INSERT INTO schema_migrations (migration_id, checksum, applied_at) VALUES (?, ?, ?)"),
		m.ID, m.Checksum, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}

// splitStatements drops comment lines and splits on semicolons.
func splitStatements(sql string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
