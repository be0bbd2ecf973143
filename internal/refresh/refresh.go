// Package refresh re-runs the marker fetch on a fixed interval.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"findme/map-core/internal/metrics"
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

type Options struct {
	Interval time.Duration
	// Markers runs one marker fetch and render cycle.
	Markers func(ctx context.Context)
	// Statistics refreshes the statistics panel.
	Statistics func(ctx context.Context)
	// StatisticsVisible gates Statistics on each tick.
	StatisticsVisible func() bool
}

type Scheduler struct {
	log     zerolog.Logger
	opts    Options
	metrics *metrics.Metrics
	cron    *cron.Cron

	mu     sync.Mutex
	state  State
	entry  cron.EntryID
	cancel context.CancelFunc
}

func New(log zerolog.Logger, opts Options, m *metrics.Metrics) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	cronLog := log.With().Str("component", "refresh").Logger()
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(&cronLog)),
		cron.SkipIfStillRunning(cron.PrintfLogger(&cronLog)),
	))
	return &Scheduler{log: log, opts: opts, metrics: m, cron: c, state: StateIdle}
}

// Start schedules ticks every interval. Starting a running scheduler
// replaces the previous entry, so at most one timer is ever active.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	tickCtx, cancel := context.WithCancel(ctx)
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.opts.Interval), func() {
		s.Tick(tickCtx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.entry = id
	s.cancel = cancel
	s.state = StateRunning
	s.cron.Start()

	s.log.Info().Dur("interval", s.opts.Interval).Msg("auto-refresh started")
	return nil
}

// Stop cancels the active entry. Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	s.stopLocked()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("auto-refresh stopped")
}

func (s *Scheduler) stopLocked() {
	if s.state != StateRunning {
		return
	}
	s.cron.Remove(s.entry)
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.entry = 0
	s.state = StateIdle
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Entries is the number of scheduled timers.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Tick runs one refresh: markers always, statistics only while the
// statistics panel is visible.
func (s *Scheduler) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.metrics.IncRefreshTick()
	if s.opts.Markers != nil {
		s.opts.Markers(ctx)
	}
	if s.opts.Statistics != nil && s.opts.StatisticsVisible != nil && s.opts.StatisticsVisible() {
		s.opts.Statistics(ctx)
	}
}
