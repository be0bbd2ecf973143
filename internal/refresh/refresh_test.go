package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTick_StatisticsOnlyWhenVisible(t *testing.T) {
	var markers, stats int
	visible := false
	s := New(zerolog.Nop(), Options{
		Interval:          time.Minute,
		Markers:           func(context.Context) { markers++ },
		Statistics:        func(context.Context) { stats++ },
		StatisticsVisible: func() bool { return visible },
	}, nil)

	s.Tick(context.Background())
	if markers != 1 || stats != 0 {
		t.Fatalf("expected markers=1 stats=0, got markers=%d stats=%d", markers, stats)
	}

	visible = true
	s.Tick(context.Background())
	if markers != 2 || stats != 1 {
		t.Fatalf("expected markers=2 stats=1, got markers=%d stats=%d", markers, stats)
	}
}

func TestTick_CancelledContextIsNoop(t *testing.T) {
	var markers int
	s := New(zerolog.Nop(), Options{Markers: func(context.Context) { markers++ }}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Tick(ctx)
	if markers != 0 {
		t.Fatalf("expected no tick after cancellation, got %d", markers)
	}
}

func TestStartStop_StateMachine(t *testing.T) {
	s := New(zerolog.Nop(), Options{Interval: time.Hour}, nil)
	if s.State() != StateIdle {
		t.Fatalf("expected idle, got %s", s.State())
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("expected running, got %s", s.State())
	}
	if got := s.Entries(); got != 1 {
		t.Fatalf("expected exactly one timer after restart, got %d", got)
	}

	s.Stop()
	s.Stop()
	if s.State() != StateIdle {
		t.Fatalf("expected idle after stop, got %s", s.State())
	}
	if got := s.Entries(); got != 0 {
		t.Fatalf("expected no timers after stop, got %d", got)
	}
}

func TestStart_FiresTicks(t *testing.T) {
	var ticks atomic.Int32
	s := New(zerolog.Nop(), Options{
		Interval: time.Second,
		Markers:  func(context.Context) { ticks.Add(1) },
	}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for ticks.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if ticks.Load() == 0 {
		t.Fatalf("expected at least one tick")
	}
}
