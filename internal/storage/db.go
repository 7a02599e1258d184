// Package storage implements the Task Store contract: crash-safe
// persistence for audio file blobs and tasks, backed by an embedded
// SQLite database with exactly two tables and a user_version-based
// migration history.
package storage

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/beni69/csengo/internal/config"
	"github.com/beni69/csengo/internal/errs"
	"github.com/beni69/csengo/internal/metrics"
	"github.com/beni69/csengo/internal/task"
)

// Store wraps the sqlite connection. All operations serialize on a
// single mutex; contention is negligible for this workload, which is
// dominated by a handful of tasks and occasional file uploads.
type Store struct {
	db *sql.DB
	mu sync.Mutex

	statsCache *cache.Cache
}

// Open opens (creating if absent) the database at cfg.Storage.DatabasePath
// and migrates it to config.DBVersion.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.Storage.DatabasePath
	isNew := false
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		isNew = true
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// a single mutex already serializes every query this process
	// issues, so one connection avoids SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", p, err)
		}
	}

	if isNew {
		log.Info().Str("path", dbPath).Msg("initializing new database")
	}

	s := &Store{
		db:         db,
		statsCache: cache.New(2*time.Second, 10*time.Second),
	}

	if err := s.migrate(config.DBVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertFile stores a new file blob. Fails with errs.KindNameConflict
// if the name already exists.
func (s *Store) InsertFile(f File) error {
	defer metrics.TimeDBOp("insert", "files")()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("INSERT INTO files (name, data) VALUES (?, ?)", f.Name, f.Data)
	if err != nil {
		if isUniqueConstraint(err) {
			return errs.NameConflict(fmt.Sprintf("file %q already exists", f.Name))
		}
		return errs.Storage("insert file", err)
	}

	s.statsCache.Flush()
	logTags(f.Name, f.Data)

	return nil
}

// GetFile reads a file blob by name. Fails with errs.KindNotFound if
// absent.
func (s *Store) GetFile(name string) (File, error) {
	defer metrics.TimeDBOp("select", "files")()

	s.mu.Lock()
	defer s.mu.Unlock()

	var f File
	f.Name = name
	err := s.db.QueryRow("SELECT data FROM files WHERE name = ?", name).Scan(&f.Data)
	if err == sql.ErrNoRows {
		return File{}, errs.NotFound(fmt.Sprintf("file %q not found", name))
	}
	if err != nil {
		return File{}, errs.Storage("get file", err)
	}
	return f, nil
}

// ListFiles returns the name of every stored file.
func (s *Store) ListFiles() ([]string, error) {
	defer metrics.TimeDBOp("select", "files")()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT name FROM files ORDER BY name")
	if err != nil {
		return nil, errs.Storage("list files", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errs.Storage("scan file name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteFile removes a file blob. Returns whether it existed.
func (s *Store) DeleteFile(name string) (bool, error) {
	defer metrics.TimeDBOp("delete", "files")()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM files WHERE name = ?", name)
	if err != nil {
		return false, errs.Storage("delete file", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Storage("delete file rows affected", err)
	}

	s.statsCache.Flush()
	return n > 0, nil
}

// FileStats returns the aggregate (count, total bytes) over all
// stored files, cached briefly since every render of the htmx file
// list reads it.
func (s *Store) FileStats() (FileStats, error) {
	if cached, ok := s.statsCache.Get("stats"); ok {
		stats := cached.(FileStats)
		metrics.SetFileStats(int64(stats.Count), stats.TotalSize)
		return stats, nil
	}

	defer metrics.TimeDBOp("select", "files")()

	s.mu.Lock()
	var stats FileStats
	var totalSize sql.NullInt64
	err := s.db.QueryRow("SELECT COUNT(*), SUM(LENGTH(data)) FROM files").Scan(&stats.Count, &totalSize)
	s.mu.Unlock()
	if err != nil {
		return FileStats{}, errs.Storage("file stats", err)
	}
	stats.TotalSize = totalSize.Int64

	s.statsCache.Set("stats", stats, cache.DefaultExpiration)
	metrics.SetFileStats(int64(stats.Count), stats.TotalSize)
	return stats, nil
}

// InsertTask persists a Scheduled or Recurring task. Task::Now must
// never be passed in; it is a programmer error to do so.
func (s *Store) InsertTask(t task.Task) error {
	if t.Kind() == task.KindNow {
		return errs.InvalidInput("now tasks must not be persisted")
	}

	row, err := encodeTask(t)
	if err != nil {
		return errs.InvalidInput(err.Error())
	}

	defer metrics.TimeDBOp("insert", "tasks")()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT INTO tasks (type, name, priority, file_name, time) VALUES (?, ?, ?, ?, ?)",
		row.typ, row.name, row.priority, row.fileName, row.time,
	)
	if err != nil {
		if isUniqueConstraint(err) {
			return errs.NameConflict(fmt.Sprintf("task %q already exists", t.TaskName()))
		}
		return errs.Storage("insert task", err)
	}
	return nil
}

// GetTask reads a single task by name.
func (s *Store) GetTask(name string) (task.Task, error) {
	defer metrics.TimeDBOp("select", "tasks")()

	s.mu.Lock()
	defer s.mu.Unlock()

	var r taskRow
	err := s.db.QueryRow(
		"SELECT type, name, priority, file_name, time FROM tasks WHERE name = ?", name,
	).Scan(&r.typ, &r.name, &r.priority, &r.fileName, &r.time)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound(fmt.Sprintf("task %q not found", name))
	}
	if err != nil {
		return nil, errs.Storage("get task", err)
	}
	return decodeTask(r)
}

// ListTasks returns every persisted task.
func (s *Store) ListTasks() ([]task.Task, error) {
	defer metrics.TimeDBOp("select", "tasks")()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT type, name, priority, file_name, time FROM tasks")
	if err != nil {
		return nil, errs.Storage("list tasks", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var r taskRow
		if err := rows.Scan(&r.typ, &r.name, &r.priority, &r.fileName, &r.time); err != nil {
			return nil, errs.Storage("scan task", err)
		}
		t, err := decodeTask(r)
		if err != nil {
			log.Warn().Str("name", r.name).Err(err).Msg("skipping malformed task row")
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task by name, returning whether it existed.
func (s *Store) DeleteTask(name string) (bool, error) {
	defer metrics.TimeDBOp("delete", "tasks")()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM tasks WHERE name = ?", name)
	if err != nil {
		return false, errs.Storage("delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Storage("delete task rows affected", err)
	}
	return n > 0, nil
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite surfaces constraint violations with this
	// substring in the driver error text; there is no typed
	// sql.ErrConstraint in database/sql.
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// logTags best-effort logs ID3/audio tag metadata on file insert,
// purely for operator visibility; a file that isn't a recognized
// audio container just logs nothing.
func logTags(name string, data []byte) {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return
	}
	log.Debug().
		Str("file", name).
		Str("title", m.Title()).
		Str("artist", m.Artist()).
		Msg("read audio tags on upload")
}
