// Package stationsync keeps the console's view of the station backend fresh:
// an eager fetch at start, then one fetch per refresh interval.
package stationsync

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"stationconsole/clock"
	"stationconsole/internal/ratelimit"
	"stationconsole/station"
)

const (
	DefaultInterval = 10 * time.Second
	defaultTimeout  = 5 * time.Second

	failureLogInterval = time.Minute
)

// Fetcher retrieves one consolidated snapshot.
type Fetcher interface {
	FetchStationData(ctx context.Context) (*station.Snapshot, error)
}

// Result is the outcome of one fetch. Seq increases in issue order; results
// are applied in arrival order, so a slow early fetch can land after a later one.
type Result struct {
	Seq      uint64
	Snapshot *station.Snapshot
	Err      error
	Started  time.Time
	At       time.Time
}

// Config controls fetch cadence.
type Config struct {
	Interval       time.Duration
	RequestTimeout time.Duration
}

func (c *Config) normalize() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultTimeout
	}
}

// Synchronizer issues fetches and hands results to a single consumer channel.
type Synchronizer struct {
	cfg     Config
	fetcher Fetcher
	out     chan<- Result
	clock   clock.Clock
	logger  *log.Logger

	seq      atomic.Uint64
	inflight sync.WaitGroup
	started  atomic.Bool
	failures *ratelimit.Counter
}

// New builds a synchronizer delivering results to out. The consumer must keep
// draining out until ctx passed to Start is cancelled.
func New(fetcher Fetcher, cfg Config, out chan<- Result, clk clock.Clock, logger *log.Logger) *Synchronizer {
	cfg.normalize()
	if clk == nil {
		clk = clock.System{}
	}
	return &Synchronizer{
		cfg:      cfg,
		fetcher:  fetcher,
		out:      out,
		clock:    clk,
		logger:   logger,
		failures: ratelimit.NewCounter(failureLogInterval),
	}
}

// Interval returns the effective refresh interval.
func (s *Synchronizer) Interval() time.Duration {
	return s.cfg.Interval
}

// Purpose: Begin periodic synchronization.
// Key aspects: Fetches once immediately, then every Interval until ctx is done.
// A second call is a no-op.
// Upstream: console.Console.Run.
// Downstream: Synchronizer.Refresh.
func (s *Synchronizer) Start(ctx context.Context) {
	if s == nil || s.fetcher == nil || !s.started.CompareAndSwap(false, true) {
		return
	}
	s.Refresh(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()
}

// Refresh issues one fetch in the background. Fetches may overlap.
func (s *Synchronizer) Refresh(ctx context.Context) {
	if s == nil || s.fetcher == nil || ctx.Err() != nil {
		return
	}
	seq := s.seq.Add(1)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.fetch(ctx, seq)
	}()
}

// Wait blocks until the ticker goroutine and every in-flight fetch have exited.
func (s *Synchronizer) Wait() {
	if s == nil {
		return
	}
	s.inflight.Wait()
}

func (s *Synchronizer) fetch(ctx context.Context, seq uint64) {
	started := s.clock.Now()
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	snap, err := s.fetcher.FetchStationData(reqCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	at := s.clock.Now()
	if err != nil {
		if n, ok := s.failures.Inc(at); ok {
			s.logf("Station sync: fetch #%d failed (%d in a row): %v", seq, n, err)
		}
	} else if n := s.failures.Reset(); n > 0 {
		s.logf("Station sync: recovered after %d failed fetches", n)
	}
	res := Result{Seq: seq, Snapshot: snap, Err: err, Started: started, At: at}
	select {
	case s.out <- res:
	case <-ctx.Done():
	}
}

func (s *Synchronizer) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
