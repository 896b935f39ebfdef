//go:build sqlite
// +build sqlite

package trace

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "kestrel/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// keepRows bounds table growth: every pruneEvery writes, rows older than
// the newest keepRows are deleted. A long simulation at 1 kHz switches a
// lot; the store is a window, not an archive.
const (
	keepRows   = 100_000
	pruneEvery = 500
)

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount atomic.Uint64
}

func openSQLite(cfg StoreConfig, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendSwitch(ctx context.Context, r SwitchRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO switches(at, tick, from_task, to_task) VALUES(?,?,?,?)`,
		r.At.Format(time.RFC3339Nano), int64(r.Tick), r.From, r.To,
	)
	s.maybePrune(err, "switches")
	return err
}

func (s *sqliteStore) AppendWake(ctx context.Context, r WakeRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	timeout := 0
	if r.Timeout {
		timeout = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wakes(at, tick, task, timeout) VALUES(?,?,?,?)`,
		r.At.Format(time.RFC3339Nano), int64(r.Tick), r.Task, timeout,
	)
	s.maybePrune(err, "wakes")
	return err
}

func (s *sqliteStore) maybePrune(lastErr error, table string) {
	if lastErr != nil || s.opCount.Add(1)%pruneEvery != 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE id <= (SELECT COALESCE(MAX(id),0) - ? FROM `+table+`)`,
		keepRows,
	)
	if err != nil {
		s.log.Debug("trace prune failed", logx.String("table", table), logx.Err(err))
	}
}
