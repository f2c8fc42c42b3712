// Package chunk implements the event channel: a listener streaming event
// lines from the gateway, a dispatcher delivering them to application
// listeners, and the Eventing coordinator that owns both and the bounded
// queue between them.
package chunk

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/monitoring"
	"github.com/agentstation/gatelink/pkg/registry"
)

// Config configures an Eventing.
type Config struct {
	// URL is the polling URL returned by the subscription.
	URL  string
	Doer transport.Doer

	Registry     *registry.Registry
	Subscription *events.Subscription
	Policy       monitoring.Policy
	Logger       *zerolog.Logger

	// QueueCapacity bounds the descriptors waiting for dispatch. Defaults to 1000.
	QueueCapacity int
	// ReadyTimeout bounds Start. Zero or negative waits until ctx is done.
	ReadyTimeout time.Duration
	// Backoff applies to streams that end without any line. Zero uses DefaultBackoff.
	Backoff BackoffConfig
	// Rand drives backoff jitter. Nil seeds one from the clock.
	Rand *rand.Rand
}

// Eventing coordinates the listener and dispatcher of one event channel.
type Eventing struct {
	cfg Config

	mu            sync.Mutex
	started       bool
	stopRequested bool
	cancel        context.CancelFunc
	listener      *listener

	ready        chan struct{}
	readyOnce    sync.Once
	listenerDone chan struct{}
	stopped      chan struct{}
	stoppedOnce  sync.Once
	wg           sync.WaitGroup
}

// New validates cfg and returns an Eventing ready to Start.
func New(cfg Config) (*Eventing, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.NewValidationError("url", cfg.URL, "polling URL is required")
	case cfg.Doer == nil:
		return nil, errors.NewValidationError("doer", nil, "HTTP doer is required")
	case cfg.Registry == nil:
		return nil, errors.NewValidationError("registry", nil, "event registry is required")
	case cfg.Subscription == nil:
		return nil, errors.NewValidationError("subscription", nil, "subscription is required")
	}
	if cfg.Policy == nil {
		cfg.Policy = monitoring.NewDefaultPolicy(cfg.Logger)
	}
	cfg.Logger = logging.OrDefault(cfg.Logger)
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = constants.DefaultQueueCapacity
	}
	if cfg.Backoff.isZero() {
		cfg.Backoff = DefaultBackoff()
	}
	if cfg.Rand == nil {
		cfg.Rand = newRand()
	}

	return &Eventing{
		cfg:          cfg,
		ready:        make(chan struct{}),
		listenerDone: make(chan struct{}),
		stopped:      make(chan struct{}),
	}, nil
}

// Start launches the dispatcher and the listener, then blocks until the
// gateway confirms the channel with a channel information event. If the
// channel is not confirmed in time, ctx is done, or the listener gives up,
// Start stops and awaits both goroutines and returns the cause.
func (e *Eventing) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("event channel already started")
	}
	if e.stopRequested {
		e.mu.Unlock()
		return errors.ErrChannelClosed
	}
	e.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	queue := make(chan registry.Descriptor, e.cfg.QueueCapacity)
	d := &dispatcher{
		registry:     e.cfg.Registry,
		subscription: e.cfg.Subscription,
		queue:        queue,
		policy:       e.cfg.Policy,
		logger:       e.cfg.Logger,
	}
	e.listener = &listener{
		url:     e.cfg.URL,
		doer:    e.cfg.Doer,
		decoder: registry.NewDecoder(e.cfg.Registry),
		queue:   queue,
		policy:  e.cfg.Policy,
		logger:  e.cfg.Logger,
		backoff: e.cfg.Backoff,
		rng:     e.cfg.Rand,
		ready:   e.markReady,
	}

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		d.run(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		defer close(e.listenerDone)
		e.listener.run(runCtx)
		// Nothing feeds the queue once the listener gave up.
		if e.listener.fatal != nil {
			cancel()
		}
	}()
	go func() {
		e.wg.Wait()
		e.stoppedOnce.Do(func() { close(e.stopped) })
	}()
	e.mu.Unlock()

	err := e.awaitReady(ctx)
	if err != nil {
		e.Stop()
		e.AwaitTermination()
		return err
	}
	e.cfg.Logger.Info().Str("url", e.cfg.URL).Msg("Event channel ready")
	return nil
}

func (e *Eventing) awaitReady(ctx context.Context) error {
	var timeout <-chan time.Time
	if e.cfg.ReadyTimeout > 0 {
		t := time.NewTimer(e.cfg.ReadyTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-e.ready:
		return nil
	case <-timeout:
		return errors.NewTimeoutError("await event channel", e.cfg.ReadyTimeout.String(), "no channel information received")
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errors.ErrCanceled, ctx.Err())
	case <-e.listenerDone:
		select {
		case <-e.ready:
			return nil
		default:
		}
		if err := e.listener.fatal; err != nil {
			return err
		}
		return errors.ErrChannelClosed
	}
}

func (e *Eventing) markReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// Stop asks both goroutines to exit and aborts the in-flight request.
// It is safe to call more than once and from any goroutine.
func (e *Eventing) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopRequested = true
	if e.cancel != nil {
		e.cancel()
		return
	}
	e.stoppedOnce.Do(func() { close(e.stopped) })
}

// AwaitTermination blocks until the listener and the dispatcher have exited.
// It returns immediately if the channel was never started.
func (e *Eventing) AwaitTermination() {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return
	}
	e.wg.Wait()
}

// Stopped returns a channel closed once both goroutines have exited,
// either after Stop or because the policy aborted the channel.
func (e *Eventing) Stopped() <-chan struct{} {
	return e.stopped
}

// Err returns the error the listener gave up on, once it has exited.
func (e *Eventing) Err() error {
	select {
	case <-e.listenerDone:
		return e.listener.fatal
	default:
		return nil
	}
}

// URL returns the polling URL of the channel.
func (e *Eventing) URL() string {
	return e.cfg.URL
}
