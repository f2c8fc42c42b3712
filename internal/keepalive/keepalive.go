// Package keepalive refreshes a gateway session periodically so the
// gateway does not expire it.
package keepalive

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/monitoring"
)

// Session is the part of the session control the loop needs.
type Session interface {
	KeepAlive(ctx context.Context) (bool, error)
}

// Config configures a Loop.
type Config struct {
	Session Session
	// Period is the delay between keep-alives, usually the session
	// time-to-live. Defaults to 60 seconds.
	Period time.Duration
	// CallTimeout bounds each keep-alive request. Defaults to 30 seconds.
	CallTimeout time.Duration
	Policy      monitoring.Policy
	Logger      *zerolog.Logger
}

// Loop sends a keep-alive every period. After a failure the policy picks
// the next delay; a success restores the configured period. The loop ends
// when the session is refused, the policy aborts, or Stop is called. It
// never closes the session itself.
type Loop struct {
	cfg Config

	mu      sync.Mutex
	period  time.Duration
	started bool
	cancel  context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// New validates cfg and returns a Loop ready to Start.
func New(cfg Config) (*Loop, error) {
	if cfg.Session == nil {
		return nil, errors.NewValidationError("session", nil, "session control is required")
	}
	if cfg.Period <= 0 {
		cfg.Period = constants.DefaultSessionTTL
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = constants.DefaultHTTPTimeout
	}
	if cfg.Policy == nil {
		cfg.Policy = monitoring.NewDefaultPolicy(cfg.Logger)
	}
	cfg.Logger = logging.OrDefault(cfg.Logger)

	return &Loop{
		cfg:    cfg,
		period: cfg.Period,
		done:   make(chan struct{}),
	}, nil
}

// Start launches the loop. Calling Start again, or after Stop, does nothing.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	go func() {
		defer l.doneOnce.Do(func() { close(l.done) })
		l.run(ctx)
	}()
}

func (l *Loop) run(ctx context.Context) {
	for {
		period := l.Period()
		t := time.NewTimer(period)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
		ok, err := l.cfg.Session.KeepAlive(callCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}

		switch {
		case err != nil:
			decision := l.cfg.Policy.BehaviorOnKeepAliveFailure(err)
			if decision.IsAbort() {
				l.cfg.Logger.Error().Err(err).Msg("Keep-alive failed, giving up")
				return
			}
			next := decision.Delay()
			if next <= 0 {
				next = l.cfg.Period
			}
			l.setPeriod(next)
			l.cfg.Logger.Warn().Err(err).Dur("delay", next).Msg("Keep-alive failed, retrying")
		case !ok:
			l.cfg.Logger.Error().Msg("Keep-alive refused by gateway")
			l.cfg.Policy.SessionKeepAliveFatalError()
			return
		default:
			l.setPeriod(l.cfg.Period)
			l.cfg.Logger.Debug().Dur("period", l.cfg.Period).Msg("Keep-alive sent")
			l.cfg.Policy.SessionKeepAliveDone()
		}
	}
}

// Period returns the delay before the next keep-alive.
func (l *Loop) Period() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.period
}

func (l *Loop) setPeriod(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.period = d
}

// Stop ends the loop, interrupting the current wait. It is idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		return
	}
	l.started = true
	l.doneOnce.Do(func() { close(l.done) })
}

// AwaitTermination blocks until the loop goroutine has exited. It returns
// immediately if the loop was never started.
func (l *Loop) AwaitTermination() {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if started {
		<-l.done
	}
}

// Done returns a channel closed when the loop has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
