package privd

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule(t *testing.T) {
	t.Run("ramps by one second and caps at five", func(t *testing.T) {
		sched := NewSchedule()
		var got []time.Duration
		for i := 0; i < 8; i++ {
			got = append(got, sched.Next())
		}
		want := []time.Duration{
			1 * time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second,
			5 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second,
		}
		assert.Equal(t, want, got)
	})

	t.Run("reset rewinds to one second", func(t *testing.T) {
		sched := NewSchedule()
		for i := 0; i < 6; i++ {
			sched.Next()
		}
		sched.Reset()
		assert.Equal(t, 1*time.Second, sched.Next())
	})
}

// scriptedPinger fails a fixed number of pings before succeeding.
type scriptedPinger struct {
	failures int
	calls    int
}

func (p *scriptedPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("authentication failed")
	}
	return nil
}

// testMonitor wires fake sleep and stat into a monitor and records the
// backoff delays actually taken.
func testMonitor(pinger Pinger, socketMissingFor int) (*Monitor, *[]time.Duration) {
	m := NewMonitor("/run/stackpilotd.sock", pinger)

	var slept []time.Duration
	m.sleep = func(_ context.Context, d time.Duration) bool {
		slept = append(slept, d)
		return true
	}

	statCalls := 0
	m.stat = func(string) (os.FileInfo, error) {
		statCalls++
		if statCalls <= socketMissingFor {
			return nil, os.ErrNotExist
		}
		return nil, nil
	}
	return m, &slept
}

func TestMonitorWait(t *testing.T) {
	t.Run("ready on first attempt", func(t *testing.T) {
		pinger := &scriptedPinger{}
		m, slept := testMonitor(pinger, 0)

		assert.True(t, m.Wait(context.Background()))
		assert.Equal(t, StateReady, m.State())
		assert.Empty(t, *slept)
		assert.Equal(t, 1, pinger.calls)
	})

	t.Run("converges after N failures with the backoff schedule", func(t *testing.T) {
		// Socket absent for 2 attempts, then 3 failed pings, success on the
		// 6th attempt. Waits taken: 1,2,3,4,5 seconds.
		pinger := &scriptedPinger{failures: 3}
		m, slept := testMonitor(pinger, 2)

		assert.True(t, m.Wait(context.Background()))
		assert.Equal(t, StateReady, m.State())
		assert.Equal(t, []time.Duration{
			1 * time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second, 5 * time.Second,
		}, *slept)
	})

	t.Run("ping is skipped while the socket is absent", func(t *testing.T) {
		pinger := &scriptedPinger{}
		m, _ := testMonitor(pinger, 3)

		require.True(t, m.Wait(context.Background()))
		assert.Equal(t, 1, pinger.calls, "only the attempt that saw the socket should ping")
	})

	t.Run("exhausting attempts is terminal failure", func(t *testing.T) {
		pinger := &scriptedPinger{failures: 100}
		m, slept := testMonitor(pinger, 0)
		m.MaxAttempts = 4

		assert.False(t, m.Wait(context.Background()))
		assert.Equal(t, StateFailed, m.State())
		assert.Equal(t, 4, pinger.calls)
		// No sleep after the final attempt.
		assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}, *slept)
	})

	t.Run("default attempt budget is thirty", func(t *testing.T) {
		m := NewMonitor("/run/stackpilotd.sock", &scriptedPinger{})
		assert.Equal(t, 30, m.MaxAttempts)
	})

	t.Run("pre-canceled context probes nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		pinger := &scriptedPinger{failures: 100}
		m, slept := testMonitor(pinger, 0)

		assert.False(t, m.Wait(ctx))
		assert.Equal(t, StateFailed, m.State())
		assert.Zero(t, pinger.calls)
		assert.Empty(t, *slept)
	})

	t.Run("cancellation during backoff stops the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		pinger := &scriptedPinger{failures: 100}
		m, _ := testMonitor(pinger, 0)
		m.sleep = func(ctx context.Context, _ time.Duration) bool {
			cancel()
			return ctx.Err() == nil
		}

		assert.False(t, m.Wait(ctx))
		assert.Equal(t, StateFailed, m.State())
		assert.Equal(t, 1, pinger.calls, "no further attempts after the interrupted sleep")
	})
}

func TestSleepCtx(t *testing.T) {
	t.Run("canceled context returns immediately", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		assert.False(t, sleepCtx(ctx, time.Minute))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("elapses normally otherwise", func(t *testing.T) {
		assert.True(t, sleepCtx(context.Background(), time.Millisecond))
	})
}
