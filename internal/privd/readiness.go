package privd

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// ProbeState is the readiness monitor's lifecycle state.
type ProbeState string

const (
	StateWaiting ProbeState = "waiting"
	StateReady   ProbeState = "ready"
	StateFailed  ProbeState = "failed" // terminal
)

// DefaultProbeAttempts bounds the startup probe loop. A shorter 10-attempt
// policy exists in some deployments; this implementation standardizes on 30.
const DefaultProbeAttempts = 30

// Schedule yields successive probe delays: 1s, 2s, 3s, 4s, then 5s for every
// later attempt. Modeling the schedule as its own iterator keeps it testable
// without running the probe loop.
type Schedule struct {
	next time.Duration
	step time.Duration
	max  time.Duration
}

// NewSchedule returns the canonical probe schedule.
func NewSchedule() *Schedule {
	return &Schedule{next: time.Second, step: time.Second, max: 5 * time.Second}
}

// Next returns the delay to wait after the current failed attempt.
func (s *Schedule) Next() time.Duration {
	d := s.next
	s.next += s.step
	if s.next > s.max {
		s.next = s.max
	}
	return d
}

// Reset rewinds the schedule to its first delay.
func (s *Schedule) Reset() {
	s.next = s.step
}

// Pinger is the authenticated readiness probe. *Client implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor decides once, at startup, whether the daemon is usable. The
// resulting flag is held for the remainder of the run; it is not re-probed
// per call.
type Monitor struct {
	SocketPath  string
	Pinger      Pinger
	MaxAttempts int

	state ProbeState

	// Injection points for tests.
	sleep func(ctx context.Context, d time.Duration) bool
	stat  func(string) (os.FileInfo, error)
}

// NewMonitor creates a monitor for the daemon at socketPath.
func NewMonitor(socketPath string, pinger Pinger) *Monitor {
	return &Monitor{
		SocketPath:  socketPath,
		Pinger:      pinger,
		MaxAttempts: DefaultProbeAttempts,
		state:       StateWaiting,
		sleep:       sleepCtx,
		stat:        os.Stat,
	}
}

// sleepCtx waits for d unless the context is canceled first. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// State returns the monitor's current state.
func (m *Monitor) State() ProbeState {
	return m.state
}

// Wait probes until the daemon answers an authenticated ping, the attempt
// budget is exhausted, or ctx is canceled. Returns the long-lived "daemon
// usable" flag; cancellation counts as unusable.
func (m *Monitor) Wait(ctx context.Context) bool {
	sched := NewSchedule()

	for attempt := 1; attempt <= m.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			m.state = StateFailed
			slog.Warn("daemon probe canceled", "socket", m.SocketPath, "attempt", attempt)
			return false
		}
		IncProbeAttempt()
		if m.probe(ctx, attempt) {
			m.state = StateReady
			slog.Info("daemon ready", "socket", m.SocketPath, "attempts", attempt)
			return true
		}
		if attempt < m.MaxAttempts && !m.sleep(ctx, sched.Next()) {
			m.state = StateFailed
			slog.Warn("daemon probe canceled", "socket", m.SocketPath, "attempt", attempt)
			return false
		}
	}

	m.state = StateFailed
	slog.Warn("daemon unusable, probe attempts exhausted", "socket", m.SocketPath, "attempts", m.MaxAttempts)
	return false
}

// probe checks that the socket exists, then that the daemon answers an
// authenticated ping. Socket existence alone is not readiness: a daemon that
// is listening but rejecting signatures is unusable.
func (m *Monitor) probe(ctx context.Context, attempt int) bool {
	if _, err := m.stat(m.SocketPath); err != nil {
		slog.Debug("daemon socket not present", "socket", m.SocketPath, "attempt", attempt)
		return false
	}

	if err := m.Pinger.Ping(ctx); err != nil {
		slog.Debug("daemon ping failed", "attempt", attempt, "error", err)
		return false
	}
	return true
}
