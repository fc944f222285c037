// Package sqliteutil holds the SQLite open and health-check helpers shared by
// the on-disk stores.
package sqliteutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 2 * time.Second

var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

// CheckResult reports what Preflight found.
type CheckResult struct {
	Healthy        bool
	Quarantined    bool
	QuarantinePath string
	Elapsed        time.Duration
	CheckpointErr  error
	IntegrityErr   error
}

// Purpose: Verify a database file before the store opens it for real.
// Key aspects: Bounded WAL checkpoint plus quick_check. A failing file and its
// sidecars are renamed aside so the store starts on a fresh file.
// Upstream: history.Open.
// Downstream: Open, quarantineFiles.
func Preflight(path, role string, timeout time.Duration, logf func(string, ...any)) (CheckResult, error) {
	var res CheckResult
	if strings.TrimSpace(path) == "" {
		return res, errors.New("sqliteutil: empty path")
	}
	if logf == nil {
		logf = log.Printf
	}
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}
	started := time.Now()
	present := presentFiles(path)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := Open(path, timeout)
	if err != nil {
		return res, fmt.Errorf("sqliteutil: open %s db: %w", role, err)
	}
	res.CheckpointErr = checkpoint(ctx, db)
	res.IntegrityErr = quickCheck(ctx, db)
	_ = db.Close()
	res.Elapsed = time.Since(started)

	if res.CheckpointErr == nil && res.IntegrityErr == nil {
		res.Healthy = true
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("sqliteutil: %s db check timed out after %s", role, timeout)
	}

	dest, err := quarantineFiles(path, present, time.Now().UTC())
	if err != nil {
		return res, fmt.Errorf("sqliteutil: quarantine %s db: %w (checkpoint=%v, quick_check=%v)", role, err, res.CheckpointErr, res.IntegrityErr)
	}
	res.Quarantined = true
	res.QuarantinePath = dest
	logf("%s db preflight failed (checkpoint=%v, quick_check=%v); moved to %s after %s",
		role, res.CheckpointErr, res.IntegrityErr, dest, res.Elapsed)
	return res, nil
}

// Open creates the parent directory and opens path with a single connection
// and the given busy timeout.
func Open(path string, busy time.Duration) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	if _, err := db.Exec(fmt.Sprintf("pragma busy_timeout=%d", busy.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	return db, nil
}

func checkpoint(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "pragma wal_checkpoint(TRUNCATE)")
	return err
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return err
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

func presentFiles(path string) []string {
	var out []string
	for _, p := range append([]string{path}, sidecars(path)...) {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func sidecars(path string) []string {
	out := make([]string, len(sidecarSuffixes))
	for i, s := range sidecarSuffixes {
		out[i] = path + s
	}
	return out
}

// quarantineFiles renames each file that existed before the check. Sidecars
// removed by the checkpoint itself are skipped.
func quarantineFiles(path string, present []string, now time.Time) (string, error) {
	suffix := ".bad-" + now.Format("20060102T150405Z")
	for _, p := range present {
		if err := os.Rename(p, p+suffix); err != nil && !os.IsNotExist(err) {
			return "", err
		}
	}
	return path + suffix, nil
}
