package prefstore

import (
	"context"
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Pebble {
	t.Helper()
	store, err := OpenPebble(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestPebbleSetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	defer store.Close()

	if _, ok, err := store.Get(ctx, "transmission_current_frequency"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "transmission_current_frequency", "4625"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "transmission_current_frequency", "5448"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := store.Get(ctx, "transmission_current_frequency")
	if err != nil || !ok || v != "5448" {
		t.Fatalf("expected 5448, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestPebblePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := OpenPebble(dir, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenPebble(dir, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if v, ok, err := reopened.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestPebbleClosedAndEmptyKey(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	if err := store.Set(ctx, " ", "x"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := store.Set(ctx, "k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}

func TestMemoryCountsWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Set(ctx, "a", "1")
	_ = m.Set(ctx, "a", "2")
	if m.Writes() != 2 {
		t.Fatalf("expected 2 writes, got %d", m.Writes())
	}
	if v, ok, _ := m.Get(ctx, "a"); !ok || v != "2" {
		t.Fatalf("expected last write to win, got %q", v)
	}
}
