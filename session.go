package gatelink

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/internal/chunk"
	"github.com/agentstation/gatelink/internal/keepalive"
	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/control"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/monitoring"
	"github.com/agentstation/gatelink/pkg/registry"
)

type sessionConfig struct {
	info           control.SessionInfo
	sessions       control.SessionControl
	subscriptions  control.SubscriptionControl
	doer           transport.Doer
	registry       *registry.Registry
	policy         monitoring.Policy
	logger         *zerolog.Logger
	queueCapacity  int
	readyTimeout   time.Duration
	privatePolling bool
}

// Session is an open gateway session. It owns at most one event channel
// and one keep-alive loop, and tears both down in Close.
type Session struct {
	cfg sessionConfig

	// mu guards the fields below and is never held across a network call
	// or a wait on the channel. subscriptionID and channel are set and
	// cleared together. starting is non-nil while ListenEvents sets up a
	// channel and is closed once it returns.
	mu             sync.Mutex
	subscriptionID string
	channel        *chunk.Eventing
	starting       chan struct{}
	cancelStart    context.CancelFunc
	keepAlive      *keepalive.Loop
	closed         bool

	watchers sync.WaitGroup
}

func newSession(cfg sessionConfig) *Session {
	return &Session{cfg: cfg}
}

// TimeToLive returns the idle time after which the gateway drops the session.
func (s *Session) TimeToLive() time.Duration {
	return s.cfg.info.TimeToLive
}

// Info returns what the gateway reported when the session was opened.
func (s *Session) Info() control.SessionInfo {
	return s.cfg.info
}

func (s *Session) startKeepAlive(period time.Duration) error {
	loop, err := keepalive.New(keepalive.Config{
		Session: s.cfg.sessions,
		Period:  period,
		Policy:  s.cfg.policy,
		Logger:  s.cfg.logger,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepAlive = loop
	loop.Start()
	return nil
}

// KeepAliveDone returns a channel closed when the keep-alive loop has
// ended, or nil when the session runs without keep-alive.
func (s *Session) KeepAliveDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keepAlive == nil {
		return nil
	}
	return s.keepAlive.Done()
}

// ListenEvents subscribes with sub and starts the event channel. It returns
// once the gateway has confirmed the channel, after which listeners of sub
// receive events until StopListening or Close. A session listens to at most
// one subscription at a time. Close aborts a pending ListenEvents, which
// then returns errors.ErrSessionClosed.
func (s *Session) ListenEvents(ctx context.Context, sub *events.Subscription) error {
	if sub == nil {
		return errors.NewValidationError("subscription", nil, "subscription is required")
	}
	if err := s.checkListeners(sub); err != nil {
		return err
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return errors.ErrSessionClosed
	case s.subscriptionID != "" || s.starting != nil:
		s.mu.Unlock()
		return errors.ErrAlreadyListening
	}
	ctx, cancel := context.WithCancel(ctx)
	starting := make(chan struct{})
	s.starting, s.cancelStart = starting, cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.starting, s.cancelStart = nil, nil
		s.mu.Unlock()
		close(starting)
	}()

	id, channel, err := s.openChannel(ctx, sub)

	s.mu.Lock()
	closed := s.closed
	if err == nil && !closed {
		s.subscriptionID, s.channel = id, channel
		s.watchers.Add(1)
	}
	s.mu.Unlock()

	switch {
	case closed && err == nil:
		channel.Stop()
		channel.AwaitTermination()
		s.deleteSubscription(ctx, id)
		return errors.ErrSessionClosed
	case closed:
		return errors.ErrSessionClosed
	case err != nil:
		return err
	}

	go s.watch(channel)
	return nil
}

// openChannel creates the subscription and starts its event channel. The
// subscription is deleted again if the channel cannot be started.
func (s *Session) openChannel(ctx context.Context, sub *events.Subscription) (string, *chunk.Eventing, error) {
	res, err := s.cfg.subscriptions.Create(ctx, sub)
	if err != nil {
		return "", nil, errors.WrapResource("create", "subscription", "", err)
	}
	if !res.Accepted {
		return "", nil, &errors.SubscriptionError{Status: "rejected", Message: res.Message}
	}

	logger := logging.FromContext(logging.WithSubscription(logging.WithLogger(ctx, s.cfg.logger), res.ID))

	url := res.PollingURL(s.cfg.privatePolling)
	if url == "" {
		s.deleteSubscription(ctx, res.ID)
		return "", nil, errors.NewValidationError("pollingUrl", url, "gateway returned no polling URL")
	}

	channel, err := chunk.New(chunk.Config{
		URL:           url,
		Doer:          s.cfg.doer,
		Registry:      s.cfg.registry,
		Subscription:  sub,
		Policy:        s.cfg.policy,
		Logger:        logger,
		QueueCapacity: s.cfg.queueCapacity,
		ReadyTimeout:  s.cfg.readyTimeout,
	})
	if err != nil {
		s.deleteSubscription(ctx, res.ID)
		return "", nil, err
	}
	if err := channel.Start(ctx); err != nil {
		s.deleteSubscription(ctx, res.ID)
		return "", nil, err
	}

	logger.Info().Str("url", url).Msg("Listening to events")
	return res.ID, channel, nil
}

// checkListeners verifies every listener implements its interface in the registry.
func (s *Session) checkListeners(sub *events.Subscription) error {
	for _, iface := range sub.Interfaces() {
		for _, l := range sub.Listeners(iface) {
			if !s.cfg.registry.Implements(iface, l) {
				return errors.NewValidationError("listener", iface.String(), "listener does not implement "+iface.String())
			}
		}
	}
	return nil
}

// watch clears the subscription when channel terminates on its own.
func (s *Session) watch(channel *chunk.Eventing) {
	defer s.watchers.Done()
	<-channel.Stopped()

	s.mu.Lock()
	if s.channel != channel {
		s.mu.Unlock()
		return
	}
	id := s.subscriptionID
	s.subscriptionID, s.channel = "", nil
	s.mu.Unlock()

	s.cfg.logger.Warn().
		Err(channel.Err()).
		Str("subscription_id", id).
		Msg("Event channel terminated")
	s.deleteSubscription(context.Background(), id)
}

// SubscriptionID returns the id of the active subscription, or "" when the
// session is not listening.
func (s *Session) SubscriptionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptionID
}

// Listening reports whether the event channel is running.
func (s *Session) Listening() bool {
	return s.SubscriptionID() != ""
}

// ChannelDone returns a channel closed once the current event channel has
// terminated for any reason. It is already closed when the session is not
// listening.
func (s *Session) ChannelDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return closedChan
	}
	return s.channel.Stopped()
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// StopListening stops the event channel, waits for it to terminate and
// deletes the subscription.
func (s *Session) StopListening(ctx context.Context) error {
	id, channel := s.detachChannel()
	if channel == nil {
		return errors.ErrNotListening
	}
	return s.stopChannel(ctx, id, channel)
}

// detachChannel clears the active subscription and returns what it held.
func (s *Session) detachChannel() (string, *chunk.Eventing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, channel := s.subscriptionID, s.channel
	s.subscriptionID, s.channel = "", nil
	return id, channel
}

// stopChannel runs without s.mu so listeners may use the session while
// the dispatcher drains.
func (s *Session) stopChannel(ctx context.Context, id string, channel *chunk.Eventing) error {
	channel.Stop()
	channel.AwaitTermination()

	if _, err := s.cfg.subscriptions.Delete(ctx, id); err != nil {
		return errors.WrapResource("delete", "subscription", id, err)
	}
	s.cfg.logger.Info().Str("subscription_id", id).Msg("Stopped listening to events")
	return nil
}

func (s *Session) deleteSubscription(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if _, err := s.cfg.subscriptions.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.cfg.logger.Warn().Err(err).Str("subscription_id", id).Msg("Failed to delete subscription")
	}
}

// Close stops the event channel and the keep-alive loop, waits for both
// to terminate, then closes the gateway session. A pending ListenEvents is
// aborted first. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	starting, cancelStart := s.starting, s.cancelStart
	s.mu.Unlock()

	if cancelStart != nil {
		cancelStart()
		select {
		case <-starting:
		case <-ctx.Done():
		}
	}

	var errs []error
	if id, channel := s.detachChannel(); channel != nil {
		if err := s.stopChannel(ctx, id, channel); err != nil {
			errs = append(errs, err)
		}
	}
	s.watchers.Wait()

	s.mu.Lock()
	loop := s.keepAlive
	s.mu.Unlock()
	if loop != nil {
		loop.Stop()
		loop.AwaitTermination()
	}
	if err := s.cfg.sessions.Close(ctx); err != nil {
		errs = append(errs, errors.WrapResource("close", "session", "", err))
	}

	s.cfg.logger.Info().Msg("Session closed")
	return stderrors.Join(errs...)
}
