// Package selection owns the operator's tuned frequency: which entry of the
// current frequency list is selected, and its durable copy that survives restarts.
package selection

import (
	"context"
	"log"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"stationconsole/station"
)

// DefaultKey is the durable key holding the last selected frequency number.
const DefaultKey = "transmission_current_frequency"

// KV is the durable key/value capability used to persist the selection.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Selection points at a frequency by number, together with its list position.
type Selection struct {
	Frequency station.Frequency
	Index     int
}

// Number is the tunable number of the selected frequency.
func (s Selection) Number() int {
	return s.Frequency.Number
}

// Store holds the current selection and mirrors it to a KV backend.
// It is not safe for concurrent use; the console goroutine owns it.
type Store struct {
	kv      KV
	key     string
	current Selection
	valid   bool
	logf    func(string, ...any)
}

// NewStore binds a store to kv under key (DefaultKey when empty). A nil kv
// keeps the selection in memory only.
func NewStore(kv KV, key string, logf func(string, ...any)) *Store {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Store{kv: kv, key: key, logf: logf}
}

// Current returns the selection, if any.
func (s *Store) Current() (Selection, bool) {
	return s.current, s.valid
}

// Purpose: Find the persisted frequency number in the available list.
// Key aspects: Unparseable or unknown values are treated as absent, never as errors.
// Upstream: Store.Reconcile, startup restore.
// Downstream: strconv.Atoi.
func Restore(persisted string, freqs []station.Frequency) (Selection, bool) {
	trimmed := strings.TrimSpace(persisted)
	if trimmed == "" {
		return Selection{}, false
	}
	number, err := strconv.Atoi(trimmed)
	if err != nil {
		return Selection{}, false
	}
	idx := station.IndexOf(freqs, number)
	if idx < 0 {
		return Selection{}, false
	}
	return Selection{Frequency: freqs[idx], Index: idx}, true
}

// Purpose: Set the selection outright and persist its number.
// Key aspects: Overwrites any previous durable value; persistence failure is logged only.
// Upstream: console commands (select, step, tune).
// Downstream: KV.Set.
func (s *Store) Select(ctx context.Context, f station.Frequency, index int) {
	s.current = Selection{Frequency: f, Index: index}
	s.valid = true
	s.persist(ctx, f.Number)
}

// Purpose: Re-validate the selection against a freshly fetched frequency list.
// Key aspects: Keeps a still-present selection (index re-derived), otherwise
// restores the persisted value or falls back to the first entry. Idempotent.
// Upstream: stationsync.State.Apply after every successful fetch.
// Downstream: Restore, KV.Get/Set.
func (s *Store) Reconcile(ctx context.Context, freqs []station.Frequency) (Selection, bool) {
	if len(freqs) == 0 {
		s.current = Selection{}
		s.valid = false
		return Selection{}, false
	}

	prevNumber, hadPrev := 0, s.valid
	if hadPrev {
		prevNumber = s.current.Frequency.Number
	}

	var next Selection
	switch {
	case hadPrev:
		if idx := station.IndexOf(freqs, prevNumber); idx >= 0 {
			next = Selection{Frequency: freqs[idx], Index: idx}
		} else {
			next = Selection{Frequency: freqs[0], Index: 0}
		}
	default:
		if restored, ok := Restore(s.load(ctx), freqs); ok {
			next = restored
		} else {
			next = Selection{Frequency: freqs[0], Index: 0}
		}
	}

	s.current = next
	s.valid = true
	if !hadPrev || prevNumber != next.Frequency.Number {
		s.persistIfChanged(ctx, next.Frequency.Number)
	}
	return next, true
}

// Step moves the selection by delta positions with wrap-around.
func (s *Store) Step(ctx context.Context, freqs []station.Frequency, delta int) (Selection, bool) {
	n := len(freqs)
	if n == 0 {
		return s.Current()
	}
	cur := 0
	if s.valid {
		if idx := station.IndexOf(freqs, s.current.Frequency.Number); idx >= 0 {
			cur = idx
		}
	}
	next := ((cur+delta)%n + n) % n
	s.Select(ctx, freqs[next], next)
	return s.current, true
}

// Purpose: Tune from free-form operator input.
// Key aspects: Numbers select the exact or closest frequency (first wins on ties);
// other text matches names by Levenshtein distance.
// Upstream: console TuneCommand.
// Downstream: closestByNumber, closestByName, Store.Select.
func (s *Store) Tune(ctx context.Context, freqs []station.Frequency, input string) (Selection, bool) {
	input = strings.TrimSpace(input)
	if len(freqs) == 0 || input == "" {
		return s.Current()
	}
	var idx int
	if value, err := strconv.ParseFloat(input, 64); err == nil && !math.IsNaN(value) {
		idx = closestByNumber(freqs, value)
	} else {
		idx = closestByName(freqs, input)
		if idx < 0 {
			return s.Current()
		}
	}
	s.Select(ctx, freqs[idx], idx)
	return s.current, true
}

func closestByNumber(freqs []station.Frequency, value float64) int {
	best := 0
	bestDiff := math.Abs(float64(freqs[0].Number) - value)
	for i, f := range freqs {
		if float64(f.Number) == value {
			return i
		}
		if diff := math.Abs(float64(f.Number) - value); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}

func closestByName(freqs []station.Frequency, input string) int {
	needle := foldName(input)
	best, bestDist := -1, math.MaxInt
	for i, f := range freqs {
		name := foldName(f.Name)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, needle) {
			return i
		}
		if d := levenshtein.ComputeDistance(needle, name); d < bestDist {
			best, bestDist = i, d
		}
	}
	// Reject matches needing more edits than half the input.
	if best >= 0 && bestDist*2 > len([]rune(needle)) {
		return -1
	}
	return best
}

func foldName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func (s *Store) load(ctx context.Context) string {
	if s.kv == nil {
		return ""
	}
	v, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logf("Selection: read %s failed: %v", s.key, err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *Store) persistIfChanged(ctx context.Context, number int) {
	if s.kv == nil {
		return
	}
	if stored := s.load(ctx); strings.TrimSpace(stored) == strconv.Itoa(number) {
		return
	}
	s.persist(ctx, number)
}

func (s *Store) persist(ctx context.Context, number int) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(ctx, s.key, strconv.Itoa(number)); err != nil {
		s.logf("Selection: persist %d failed: %v", number, err)
	}
}
