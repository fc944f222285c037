// Package prefstore persists small operator preferences (the selected
// frequency) in a key/value backend: a local Pebble store, a shared Redis
// instance, or process memory.
package prefstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
)

const (
	keyPrefix = "pref|"

	defaultCacheSizeBytes  = int64(1 << 20) // preferences are tiny; keep the block cache small
	defaultWriteQueueDepth = 16
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("prefstore: store is closed")
	// ErrEmptyKey is returned when a key is blank.
	ErrEmptyKey = errors.New("prefstore: key is empty")
)

// Options controls Pebble tuning for the preference store.
// Zero/negative fields are replaced with defaults via sanitizeOptions.
type Options struct {
	CacheSizeBytes  int64
	WriteQueueDepth int
}

// Pebble stores preferences in a Pebble database with a single writer goroutine.
type Pebble struct {
	db     *pebble.DB
	writes chan writeRequest
	done   chan struct{}
	cache  *pebble.Cache

	mu     sync.Mutex
	closed bool
}

type writeKind int

const (
	writeSet writeKind = iota
)

type writeRequest struct {
	kind  writeKind
	key   string
	value string
	resp  chan error
}

func sanitizeOptions(opts Options) Options {
	if opts.CacheSizeBytes <= 0 {
		opts.CacheSizeBytes = defaultCacheSizeBytes
	}
	if opts.WriteQueueDepth <= 0 {
		opts.WriteQueueDepth = defaultWriteQueueDepth
	}
	return opts
}

// Purpose: Open or create the preference Pebble database.
// Key aspects: Ensures the directory exists and spins a single writer goroutine.
// Upstream: main selection backend wiring and tests.
// Downstream: pebble.Open, writeLoop.
func OpenPebble(path string, opts Options) (*Pebble, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("prefstore: database path is empty")
	}
	opts = sanitizeOptions(opts)

	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("prefstore: %s exists and is not a directory", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("prefstore: stat path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("prefstore: ensure directory: %w", err)
	}

	cache := pebble.NewCache(opts.CacheSizeBytes)
	db, err := pebble.Open(path, &pebble.Options{Cache: cache})
	if err != nil {
		cache.Unref()
		return nil, fmt.Errorf("prefstore: open: %w", err)
	}

	s := &Pebble{
		db:     db,
		writes: make(chan writeRequest, opts.WriteQueueDepth),
		done:   make(chan struct{}),
		cache:  cache,
	}
	go s.writeLoop()
	return s, nil
}

// Purpose: Read a preference value.
// Key aspects: Returns ("", false, nil) when the key is absent.
// Upstream: selection.Store restore path.
// Downstream: pebble.DB.Get.
func (s *Pebble) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("prefstore: store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if strings.TrimSpace(key) == "" {
		return "", false, ErrEmptyKey
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", false, ErrClosed
	}
	value, closer, err := s.db.Get(keyBytes(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("prefstore: get %s: %w", key, err)
	}
	defer closer.Close()
	return string(value), true, nil
}

// Purpose: Write a preference value durably.
// Key aspects: Serialized through the writer goroutine; last write wins.
// Upstream: selection.Store on every selection change.
// Downstream: writeLoop, pebble.Sync.
func (s *Pebble) Set(ctx context.Context, key, value string) error {
	return s.submit(ctx, writeRequest{kind: writeSet, key: key, value: value})
}

func (s *Pebble) submit(ctx context.Context, req writeRequest) error {
	if s == nil || s.db == nil {
		return errors.New("prefstore: store is not initialized")
	}
	if strings.TrimSpace(req.key) == "" {
		return ErrEmptyKey
	}
	req.resp = make(chan error, 1)
	if err := s.enqueue(req); err != nil {
		return err
	}
	select {
	case err := <-req.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Purpose: Close the underlying database handle.
// Key aspects: Drains the writer goroutine before closing Pebble.
// Upstream: main shutdown or tests.
// Downstream: writer loop, db.Close.
func (s *Pebble) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.closeWriter() {
		<-s.done
	} else {
		return nil
	}
	err := s.db.Close()
	if s.cache != nil {
		s.cache.Unref()
		s.cache = nil
	}
	return err
}

func (s *Pebble) enqueue(req writeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.writes <- req
	return nil
}

func (s *Pebble) closeWriter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.writes)
	return true
}

func (s *Pebble) writeLoop() {
	defer close(s.done)
	for req := range s.writes {
		var err error
		switch req.kind {
		case writeSet:
			err = s.db.Set(keyBytes(req.key), []byte(req.value), pebble.Sync)
		default:
			err = fmt.Errorf("prefstore: unknown write request")
		}
		if err != nil {
			err = fmt.Errorf("prefstore: write %s: %w", req.key, err)
		}
		if req.resp != nil {
			req.resp <- err
		}
	}
}

func keyBytes(key string) []byte {
	return []byte(keyPrefix + key)
}
