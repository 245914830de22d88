package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder writes the run journal to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With(zap.String("component", "recorder"))}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			checked     INTEGER,
			succeeded   INTEGER,
			failed      INTEGER,
			changed     INTEGER,
			persisted   INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS checks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			checked_at INTEGER NOT NULL,
			domain     TEXT NOT NULL,
			outcome    TEXT NOT NULL,
			price      TEXT,
			delta      TEXT,
			attempts   INTEGER,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_domain_ts ON checks(domain, checked_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:30], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCheck(evt *CheckEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO checks
		(run_id, checked_at, domain, outcome, price, delta, attempts, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		evt.RunID, evt.CheckedAt.UnixMilli(), evt.Domain, evt.Outcome,
		evt.Price, evt.Delta, evt.Attempts, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	persisted := 0
	if evt.Persisted {
		persisted = 1
	}
	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, started_at, finished_at, checked, succeeded, failed, changed, persisted, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		evt.RunID, evt.StartedAt.UnixMilli(), evt.FinishedAt.UnixMilli(),
		evt.Checked, evt.Succeeded, evt.Failed, evt.Changed, persisted, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
