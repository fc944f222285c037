// Package station holds the broadcast data model served by the station API:
// frequencies, the transmissions scheduled on them and the active encryption keys.
//
// Frequencies are matched by their tunable Number everywhere in this module.
// ID is only the backend row identity and is never used for matching.
package station

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// TransmissionType classifies the payload of a transmission.
type TransmissionType string

const (
	TypeNumbers TransmissionType = "numbers"
	TypeNames   TransmissionType = "names"
	TypeMixed   TransmissionType = "mixed"
)

func (t TransmissionType) Valid() bool {
	switch t {
	case TypeNumbers, TypeNames, TypeMixed:
		return true
	default:
		return false
	}
}

// Status is the server-driven lifecycle state of a transmission.
type Status string

const (
	StatusScheduled    Status = "scheduled"
	StatusTransmitting Status = "transmitting"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
	StatusFailed       Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusTransmitting, StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// OnAir reports whether a transmission in this status may be on air.
func (s Status) OnAir() bool {
	return s == StatusScheduled || s == StatusTransmitting
}

// Frequency is a tunable channel.
type Frequency struct {
	ID          int64  `json:"id"`
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DisplayName renders the frequency the way the console header shows it.
func (f Frequency) DisplayName() string {
	if name := strings.TrimSpace(f.Name); name != "" {
		return fmt.Sprintf("%s (%d)", name, f.Number)
	}
	return fmt.Sprintf("Frequency %d", f.Number)
}

// Transmission is a scheduled or in-progress broadcast on a frequency.
type Transmission struct {
	ID              int64            `json:"id"`
	Frequency       Frequency        `json:"frequency"`
	Code            string           `json:"code"`
	Type            TransmissionType `json:"transmission_type"`
	ScheduledTime   time.Time        `json:"scheduled_time"`
	DurationSeconds int              `json:"duration_seconds"`
	Status          Status           `json:"status"`
}

// Duration returns the on-air length; negative values count as zero.
func (t Transmission) Duration() time.Duration {
	if t.DurationSeconds <= 0 {
		return 0
	}
	return time.Duration(t.DurationSeconds) * time.Second
}

// End is ScheduledTime plus Duration.
func (t Transmission) End() time.Time {
	return t.ScheduledTime.Add(t.Duration())
}

// EncryptionKey is a key published alongside the schedule.
type EncryptionKey struct {
	ID          int64      `json:"id"`
	KeyValue    string     `json:"key_value"`
	Description string     `json:"description"`
	ValidFrom   time.Time  `json:"valid_from"`
	ValidUntil  *time.Time `json:"valid_until"`
	IsActive    bool       `json:"is_active"`
}

// Snapshot is one consolidated station_data response.
type Snapshot struct {
	Frequencies            []Frequency     `json:"frequencies"`
	ScheduledTransmissions []Transmission  `json:"scheduled_transmissions"`
	CurrentTransmissions   []Transmission  `json:"current_transmissions"`
	EncryptionKeys         []EncryptionKey `json:"encryption_keys"`
}

// Transmissions returns scheduled followed by current transmissions in server order.
func (s *Snapshot) Transmissions() []Transmission {
	if s == nil {
		return nil
	}
	out := make([]Transmission, 0, len(s.ScheduledTransmissions)+len(s.CurrentTransmissions))
	out = append(out, s.ScheduledTransmissions...)
	out = append(out, s.CurrentTransmissions...)
	return out
}

// TransmissionsFor filters Transmissions by frequency number.
func (s *Snapshot) TransmissionsFor(number int) []Transmission {
	if s == nil {
		return nil
	}
	var out []Transmission
	for _, t := range s.Transmissions() {
		if t.Frequency.Number == number {
			out = append(out, t)
		}
	}
	return out
}

// Purpose: Group all transmissions by owning frequency number.
// Key aspects: Preserves scheduled-then-current order inside each group.
// Upstream: stationsync.State.Apply.
// Downstream: Snapshot.Transmissions.
func (s *Snapshot) GroupByFrequency() map[int][]Transmission {
	groups := make(map[int][]Transmission)
	if s == nil {
		return groups
	}
	for _, t := range s.Transmissions() {
		groups[t.Frequency.Number] = append(groups[t.Frequency.Number], t)
	}
	return groups
}

// IndexOf returns the position of number in the frequency list, or -1.
func (s *Snapshot) IndexOf(number int) int {
	if s == nil {
		return -1
	}
	return IndexOf(s.Frequencies, number)
}

// IndexOf returns the position of number in freqs, or -1.
func IndexOf(freqs []Frequency, number int) int {
	for i, f := range freqs {
		if f.Number == number {
			return i
		}
	}
	return -1
}

// Purpose: Hash the fields of a transmission list that affect announcements.
// Key aspects: Order-sensitive, so a reordered list counts as a change.
// Upstream: stationsync change detection.
// Downstream: xxh3.Hash.
func Fingerprint(ts []Transmission) uint64 {
	if len(ts) == 0 {
		return 0
	}
	buf := make([]byte, 0, len(ts)*48)
	var scratch [8]byte
	for _, t := range ts {
		binary.LittleEndian.PutUint64(scratch[:], uint64(t.ID))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], uint64(t.Frequency.Number))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], uint64(t.ScheduledTime.UnixNano()))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], uint64(t.DurationSeconds))
		buf = append(buf, scratch[:]...)
		buf = append(buf, t.Status...)
		buf = append(buf, 0)
		buf = append(buf, t.Type...)
		buf = append(buf, 0)
		buf = append(buf, t.Code...)
		buf = append(buf, 0)
	}
	return xxh3.Hash(buf)
}
