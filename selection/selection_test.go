package selection

import (
	"context"
	"errors"
	"testing"

	"stationconsole/prefstore"
	"stationconsole/station"
)

var freqs = []station.Frequency{
	{ID: 10, Number: 4625, Description: "Buzzer"},
	{ID: 11, Number: 5448, Name: "Lincolnshire Poacher"},
	{ID: 12, Number: 6998, Name: "Swedish Rhapsody"},
}

func quiet(string, ...any) {}

func newTestStore(t *testing.T) (*Store, *prefstore.Memory) {
	t.Helper()
	kv := prefstore.NewMemory()
	return NewStore(kv, "", quiet), kv
}

func persisted(t *testing.T, kv *prefstore.Memory) string {
	t.Helper()
	v, _, err := kv.Get(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("get persisted: %v", err)
	}
	return v
}

func TestRestore(t *testing.T) {
	cases := []struct {
		name   string
		value  string
		ok     bool
		number int
		index  int
	}{
		{"match", "5448", true, 5448, 1},
		{"padded", " 6998 ", true, 6998, 2},
		{"absent number", "1234", false, 0, 0},
		{"garbage", "abc", false, 0, 0},
		{"empty", "", false, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sel, ok := Restore(tc.value, freqs)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && (sel.Number() != tc.number || sel.Index != tc.index) {
				t.Fatalf("expected %d@%d, got %d@%d", tc.number, tc.index, sel.Number(), sel.Index)
			}
		})
	}
}

func TestReconcileRestoresPersisted(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	_ = kv.Set(ctx, DefaultKey, "6998")

	sel, ok := store.Reconcile(ctx, freqs)
	if !ok || sel.Number() != 6998 || sel.Index != 2 {
		t.Fatalf("expected restored 6998@2, got %+v ok=%v", sel, ok)
	}
}

func TestReconcileUnknownPersistedFallsBackToFirst(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	_ = kv.Set(ctx, DefaultKey, "9999")

	sel, ok := store.Reconcile(ctx, freqs)
	if !ok || sel.Number() != 4625 || sel.Index != 0 {
		t.Fatalf("expected first frequency, got %+v ok=%v", sel, ok)
	}
	if got := persisted(t, kv); got != "4625" {
		t.Fatalf("expected fallback to be persisted, got %q", got)
	}
}

func TestReconcileEmptyListYieldsNone(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Select(ctx, freqs[1], 1)
	if _, ok := store.Reconcile(ctx, nil); ok {
		t.Fatalf("expected no selection for empty list")
	}
	if _, ok := store.Current(); ok {
		t.Fatalf("expected selection cleared")
	}
}

func TestReconcileKeepsValidSelectionAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	store.Select(ctx, freqs[2], 2)
	writes := kv.Writes()

	reordered := []station.Frequency{freqs[2], freqs[0], freqs[1]}
	first, _ := store.Reconcile(ctx, reordered)
	second, _ := store.Reconcile(ctx, reordered)
	if first != second {
		t.Fatalf("expected idempotent reconcile, got %+v then %+v", first, second)
	}
	if first.Number() != 6998 || first.Index != 0 {
		t.Fatalf("expected 6998 kept with re-derived index 0, got %+v", first)
	}
	if kv.Writes() != writes {
		t.Fatalf("expected no durable writes for unchanged selection")
	}
}

func TestReconcileDroppedSelectionFallsBack(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	store.Select(ctx, freqs[1], 1)

	sel, ok := store.Reconcile(ctx, []station.Frequency{freqs[2], freqs[0]})
	if !ok || sel.Number() != 6998 || sel.Index != 0 {
		t.Fatalf("expected first of new list, got %+v", sel)
	}
	if got := persisted(t, kv); got != "6998" {
		t.Fatalf("expected persisted 6998, got %q", got)
	}
}

func TestSelectPersistsNumberNotID(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	store.Select(ctx, freqs[1], 1)
	if got := persisted(t, kv); got != "5448" {
		t.Fatalf("expected 5448, got %q", got)
	}
}

func TestStepWraps(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Select(ctx, freqs[0], 0)

	if sel, _ := store.Step(ctx, freqs, -1); sel.Index != 2 {
		t.Fatalf("expected wrap to last, got %d", sel.Index)
	}
	if sel, _ := store.Step(ctx, freqs, 1); sel.Index != 0 {
		t.Fatalf("expected wrap to first, got %d", sel.Index)
	}
	if sel, _ := store.Step(ctx, freqs, 1); sel.Number() != 5448 {
		t.Fatalf("expected 5448, got %d", sel.Number())
	}
}

func TestTune(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		input  string
		number int
	}{
		{"5448", 5448},
		{"6000", 5448},
		{"7000", 6998},
		{"1", 4625},
		{"lincolnshire", 5448},
		{"swedish rapsody", 6998},
	}
	for _, tc := range cases {
		store, _ := newTestStore(t)
		sel, ok := store.Tune(ctx, freqs, tc.input)
		if !ok || sel.Number() != tc.number {
			t.Fatalf("Tune(%q): expected %d, got %+v ok=%v", tc.input, tc.number, sel, ok)
		}
	}
}

func TestTuneUnmatchedNameKeepsSelection(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Select(ctx, freqs[2], 2)
	sel, ok := store.Tune(ctx, freqs, "zzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	if !ok || sel.Number() != 6998 {
		t.Fatalf("expected unchanged selection, got %+v", sel)
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("boom")
}

func (failingKV) Set(context.Context, string, string) error {
	return errors.New("boom")
}

func TestPersistenceFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	var logged int
	store := NewStore(failingKV{}, "", func(string, ...any) { logged++ })
	sel, ok := store.Reconcile(ctx, freqs)
	if !ok || sel.Number() != 4625 {
		t.Fatalf("expected first frequency despite read failure, got %+v", sel)
	}
	store.Select(ctx, freqs[1], 1)
	if cur, _ := store.Current(); cur.Number() != 5448 {
		t.Fatalf("expected in-memory selection to change, got %+v", cur)
	}
	if logged == 0 {
		t.Fatalf("expected failures to be logged")
	}
}
