package keepalive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/monitoring"
)

type result struct {
	ok  bool
	err error
}

// scriptedSession answers keep-alives from a script, then succeeds.
type scriptedSession struct {
	mu     sync.Mutex
	script []result
	calls  chan time.Time
}

func newScriptedSession(script ...result) *scriptedSession {
	return &scriptedSession{script: script, calls: make(chan time.Time, 16)}
}

func (s *scriptedSession) KeepAlive(context.Context) (bool, error) {
	s.calls <- time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.script) == 0 {
		return true, nil
	}
	r := s.script[0]
	s.script = s.script[1:]
	return r.ok, r.err
}

func (s *scriptedSession) next(t *testing.T) time.Time {
	t.Helper()
	select {
	case at := <-s.calls:
		return at
	case <-time.After(5 * time.Second):
		t.Fatal("keep-alive not called")
		return time.Time{}
	}
}

type hookCounts struct {
	done, fatal atomic.Int32
}

func (h *hookCounts) policy(decide func(error) monitoring.Decision) monitoring.Policy {
	return &monitoring.Funcs{
		Fallback:                     monitoring.NewDefaultPolicy(logging.NewNopLogger()),
		OnSessionKeepAliveDone:       func() { h.done.Add(1) },
		OnSessionKeepAliveFatalError: func() { h.fatal.Add(1) },
		OnKeepAliveFailure:           decide,
	}
}

func newTestLoop(t *testing.T, cfg Config) *Loop {
	t.Helper()
	cfg.Logger = logging.NewNopLogger()
	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Stop()
		l.AwaitTermination()
	})
	return l
}

// TestLoop_RetryThenReset verifies a RetryAfter decision shortens the next
// wait and a success restores the configured period.
func TestLoop_RetryThenReset(t *testing.T) {
	const period = 200 * time.Millisecond
	const retry = 20 * time.Millisecond

	session := newScriptedSession(result{err: errors.New("connection reset")})
	hooks := &hookCounts{}
	l := newTestLoop(t, Config{
		Session: session,
		Period:  period,
		Policy: hooks.policy(func(error) monitoring.Decision {
			return monitoring.RetryAfter(retry)
		}),
	})

	start := time.Now()
	l.Start()

	first := session.next(t)
	second := session.next(t)
	third := session.next(t)

	assert.GreaterOrEqual(t, first.Sub(start), period)
	assert.Less(t, second.Sub(first), period/2, "retry delay not applied")
	assert.GreaterOrEqual(t, third.Sub(second), period, "period not reset after success")
	assert.Equal(t, period, l.Period())
	assert.GreaterOrEqual(t, hooks.done.Load(), int32(1))
}

// TestLoop_RefusedEndsLoop verifies a false result ends the loop.
func TestLoop_RefusedEndsLoop(t *testing.T) {
	session := newScriptedSession(result{ok: false})
	hooks := &hookCounts{}
	l := newTestLoop(t, Config{Session: session, Period: 10 * time.Millisecond, Policy: hooks.policy(nil)})

	l.Start()
	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop kept running after refusal")
	}
	assert.Equal(t, int32(1), hooks.fatal.Load())
	assert.Len(t, session.calls, 1)
}

// TestLoop_AbortEndsLoop verifies an Abort decision ends the loop without the fatal hook.
func TestLoop_AbortEndsLoop(t *testing.T) {
	session := newScriptedSession(result{err: errors.New("boom")})
	hooks := &hookCounts{}
	l := newTestLoop(t, Config{
		Session: session,
		Period:  10 * time.Millisecond,
		Policy:  hooks.policy(func(error) monitoring.Decision { return monitoring.Abort() }),
	})

	l.Start()
	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("loop kept running after abort")
	}
	assert.Zero(t, hooks.fatal.Load())
}

// TestLoop_StopInterruptsWait verifies Stop does not wait for the period.
func TestLoop_StopInterruptsWait(t *testing.T) {
	session := newScriptedSession()
	l := newTestLoop(t, Config{Session: session, Period: time.Hour})

	l.Start()
	l.Start()

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		l.AwaitTermination()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not interrupt the wait")
	}
	assert.Empty(t, session.calls)
	l.Stop()
}

func TestLoop_AwaitWithoutStart(t *testing.T) {
	l := newTestLoop(t, Config{Session: newScriptedSession()})
	l.AwaitTermination()
	assert.Equal(t, 60*time.Second, l.Period())
}

func TestNew_RequiresSession(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
