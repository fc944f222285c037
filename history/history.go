// Package history keeps a SQLite log of spoken announcements so the operator
// can review what was read out after the fact.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"stationconsole/announce"
	"stationconsole/sqliteutil"
	"stationconsole/station"
)

const (
	busyTimeout   = 2 * time.Second
	defaultRecent = 50
)

// ErrClosed is returned by queries after Close.
var ErrClosed = errors.New("history: closed")

// Entry is one stored announcement.
type Entry struct {
	ID              int64
	SessionID       string
	FrequencyNumber int
	TransmissionID  int64
	Type            station.TransmissionType
	Code            string
	Text            string
	SpokenAt        time.Time
}

// Recorder appends announcements to SQLite without blocking the caller.
type Recorder struct {
	db   *sql.DB
	logf func(string, ...any)

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// Purpose: Open (or create) the announcement log.
// Key aspects: Preflight quarantines a corrupt file first; single connection.
// Upstream: main.
// Downstream: sqliteutil.Preflight, sqliteutil.Open, initSchema.
func Open(path string, logf func(string, ...any)) (*Recorder, error) {
	if logf == nil {
		logf = log.Printf
	}
	if _, err := sqliteutil.Preflight(path, "history", busyTimeout, logf); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	db, err := sqliteutil.Open(path, busyTimeout)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	return &Recorder{db: db, logf: logf}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS announcements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    frequency_number INTEGER NOT NULL,
    transmission_id INTEGER NOT NULL,
    transmission_type TEXT,
    code TEXT,
    text TEXT,
    spoken_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS announcements_spoken_at ON announcements (spoken_at);`
	_, err := db.Exec(schema)
	return err
}

// Record stores ev in the background. Failures are logged and dropped.
func (r *Recorder) Record(ev announce.Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.pending.Done()
		if err := r.insert(context.Background(), ev); err != nil {
			r.logf("History: failed to record transmission %d: %v", ev.Transmission.ID, err)
		}
	}()
}

func (r *Recorder) insert(ctx context.Context, ev announce.Event) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO announcements (
    session_id, frequency_number, transmission_id, transmission_type, code, text, spoken_at
) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID.String(),
		ev.Frequency.Number,
		ev.Transmission.ID,
		string(ev.Transmission.Type),
		ev.Transmission.Code,
		ev.Text,
		ev.At.UTC().UnixMilli(),
	)
	return err
}

// Flush waits for every queued Record to finish.
func (r *Recorder) Flush() {
	if r == nil {
		return
	}
	r.pending.Wait()
}

// Recent returns up to limit entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecent
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, frequency_number, transmission_id, transmission_type, code, text, spoken_at
FROM announcements ORDER BY spoken_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind, code, text sql.NullString
		var spokenAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.FrequencyNumber, &e.TransmissionID, &kind, &code, &text, &spokenAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Type = station.TransmissionType(kind.String)
		e.Code = code.String
		e.Text = text.String
		e.SpokenAt = time.UnixMilli(spokenAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes entries spoken before cutoff and returns how many went.
func (r *Recorder) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := r.usable(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE spoken_at < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: purge: %w", err)
	}
	return res.RowsAffected()
}

// Close waits for pending inserts and closes the database. Safe to call twice.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	r.pending.Wait()
	return r.db.Close()
}

func (r *Recorder) usable() error {
	if r == nil || r.db == nil {
		return ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}
