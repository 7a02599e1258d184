package storage

import "fmt"

// migration is one forward step in the schema's history, applied
// inside its own transaction and tied to the user_version it brings
// the database to.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE tasks (
	type      TEXT NOT NULL,
	name      TEXT NOT NULL PRIMARY KEY,
	priority  INTEGER NOT NULL,
	file_name TEXT NOT NULL,
	time      TEXT
) STRICT;

CREATE TABLE files (
	name TEXT NOT NULL PRIMARY KEY,
	data BLOB NOT NULL
) STRICT;
`,
	},
}

// migrate brings the schema from whatever user_version it is
// currently at up to target, running each intermediate migration and
// the write of its new user_version in one transaction. The
// transaction is database/sql's default deferred BEGIN, not BEGIN
// EXCLUSIVE, so no exclusive lock is taken before the migration's
// first write. Migrations are write-only forward; there is no
// downgrade path.
func (s *Store) migrate(target int) error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if current > target {
		return fmt.Errorf("database schema version %d is newer than this binary's %d", current, target)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set user_version to %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}

		current = m.version
	}

	return nil
}
