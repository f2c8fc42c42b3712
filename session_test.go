package gatelink_test

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gatelink"
	"github.com/agentstation/gatelink/internal/gatewaytest"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/registry"
)

// BarEvent and FooListener form an application-defined listener contract.
type BarEvent struct {
	Value string `json:"value"`
}

func (*BarEvent) EventName() string { return "Bar" }

type FooListener interface {
	OnBar(*BarEvent)
}

type fooRecorder struct {
	mu   sync.Mutex
	bars []string
}

func (f *fooRecorder) OnBar(e *BarEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars = append(f.bars, e.Value)
}

func (f *fooRecorder) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.bars)
}

var fooInterface = events.Interface{Package: "test", Name: "FooListener"}

func newFooRegistry() *registry.Registry {
	r := registry.New()
	r.MustRegister(fooInterface, registry.On("OnBar", FooListener.OnBar))
	r.MustRegisterInternal(registry.Internal[events.ChannelInformationEvent]())
	return r
}

// agentRecorder records operator states of the call center package.
type agentRecorder struct {
	mu     sync.Mutex
	states []events.OperatorState
}

func (a *agentRecorder) OnOperatorStateChanged(e *events.OnOperatorStateChangedEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states = append(a.states, e.State)
}

func (a *agentRecorder) OnSupervisorHelpRequested(*events.OnSupervisorHelpRequestedEvent) {}

func (a *agentRecorder) OnSupervisorHelpCancelled(*events.OnSupervisorHelpCancelledEvent) {}

func (a *agentRecorder) got() []events.OperatorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.states)
}

func newClient(t *testing.T, srv *gatewaytest.Server, opts ...gatelink.Option) *gatelink.Client {
	t.Helper()
	opts = append([]gatelink.Option{
		gatelink.WithLogger(logging.NewNopLogger()),
		gatelink.WithKeepAlive(false),
	}, opts...)
	client, err := gatelink.New(srv.BaseURL(), opts...)
	require.NoError(t, err)
	return client
}

func openSession(t *testing.T, client *gatelink.Client) *gatelink.Session {
	t.Helper()
	session, err := client.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close(context.Background()) })
	return session
}

// TestSession_FooBar runs one application event from the gateway to a
// custom listener and checks the teardown order.
func TestSession_FooBar(t *testing.T) {
	r := newFooRegistry()
	srv := gatewaytest.NewServer(t, gatewaytest.WithRegistry(r))
	client := newClient(t, srv, gatelink.WithRegistry(r))
	session := openSession(t, client)

	foo := &fooRecorder{}
	sub := events.NewSubscription(events.WithListener(fooInterface, foo))
	require.NoError(t, session.ListenEvents(context.Background(), sub))
	assert.True(t, session.Listening())
	assert.Equal(t, "sub-1", session.SubscriptionID())

	srv.EmitRaw("test", `{"eventName":"Bar","value":"hello"}`)
	require.Eventually(t, func() bool { return len(foo.got()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"hello"}, foo.got())

	require.NoError(t, session.Close(context.Background()))
	assert.False(t, session.Listening())
	assert.False(t, srv.SessionOpen())

	reqs := srv.Requests()
	unsubscribe := slices.Index(reqs, "DELETE /subscriptions/sub-1")
	closeSession := slices.Index(reqs, "DELETE /sessions")
	require.NotEqual(t, -1, unsubscribe)
	require.NotEqual(t, -1, closeSession)
	assert.Less(t, unsubscribe, closeSession)
}

func TestSession_BuiltinAdapter(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv, gatelink.WithPrivatePolling(true)))

	agents := &agentRecorder{}
	sub := events.NewSubscription(events.WithCallCenterAgentListener(agents))
	require.NoError(t, session.ListenEvents(context.Background(), sub))

	srv.EmitRaw(events.PackageCallCenterAgent,
		`{"eventName":"OnOperatorStateChanged","loginName":"alice","state":{"mainState":"WITHDRAW","withdrawReason":3,"withdraw":true}}`)
	require.Eventually(t, func() bool { return len(agents.got()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "3", agents.got()[0].WithdrawReason)
	assert.True(t, agents.got()[0].Withdrawn)
}

func TestSession_ListenTwice(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv))

	sub := events.NewSubscription(events.WithCallCenterAgentListener(&agentRecorder{}))
	require.NoError(t, session.ListenEvents(context.Background(), sub))

	err := session.ListenEvents(context.Background(), sub)
	assert.ErrorIs(t, err, errors.ErrAlreadyListening)
	assert.Len(t, srv.Subscriptions(), 1)

	require.NoError(t, session.StopListening(context.Background()))
	assert.False(t, session.Listening())
	assert.Empty(t, srv.Subscriptions())
	assert.ErrorIs(t, session.StopListening(context.Background()), errors.ErrNotListening)

	require.NoError(t, session.ListenEvents(context.Background(), sub))
	assert.Equal(t, "sub-2", session.SubscriptionID())
}

func TestSession_SubscriptionRejected(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv))
	srv.RejectSubscriptions("too many subscriptions")

	sub := events.NewSubscription(events.WithCallCenterAgentListener(&agentRecorder{}))
	err := session.ListenEvents(context.Background(), sub)
	require.ErrorIs(t, err, errors.ErrSubscriptionRejected)

	var subErr *errors.SubscriptionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "too many subscriptions", subErr.Message)
	assert.False(t, session.Listening())
}

func TestSession_InvalidListener(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv))

	sub := events.NewSubscription(events.WithListener(events.TelephonyInterface, struct{}{}))
	err := session.ListenEvents(context.Background(), sub)
	assert.True(t, errors.IsValidationError(err))
	assert.Empty(t, srv.Subscriptions())

	err = session.ListenEvents(context.Background(), nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestSession_ReadyTimeout(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv, gatelink.WithReadyTimeout(100*time.Millisecond)))
	srv.SetPollStatus(http.StatusServiceUnavailable)

	sub := events.NewSubscription(events.WithCallCenterAgentListener(&agentRecorder{}))
	err := session.ListenEvents(context.Background(), sub)
	assert.True(t, errors.IsTimeout(err))
	assert.False(t, session.Listening())
	assert.Empty(t, srv.Subscriptions())
}

func TestSession_ChannelAborted(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv))

	sub := events.NewSubscription(events.WithCallCenterAgentListener(&agentRecorder{}))
	require.NoError(t, session.ListenEvents(context.Background(), sub))
	done := session.ChannelDone()

	// The reconnect after the stream ends is refused, which the default
	// policy treats as fatal.
	srv.SetPollStatus(http.StatusForbidden)
	srv.Disconnect("")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("channel done not signaled after abort")
	}
	require.Eventually(t, func() bool { return !session.Listening() }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(srv.Subscriptions()) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, session.StopListening(context.Background()), errors.ErrNotListening)

	srv.SetPollStatus(0)
	require.NoError(t, session.ListenEvents(context.Background(), sub))
	select {
	case <-session.ChannelDone():
		t.Fatal("new channel reported done")
	default:
	}
}

func TestSession_ChannelDoneWhenIdle(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv))

	select {
	case <-session.ChannelDone():
	default:
		t.Fatal("idle session should report its channel done")
	}
}

// TestSession_CloseAbortsPendingListen closes the session while ListenEvents
// still waits for the gateway to confirm the channel.
func TestSession_CloseAbortsPendingListen(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv, gatelink.WithReadyTimeout(0)))
	srv.SetPollStatus(http.StatusServiceUnavailable)

	listenErr := make(chan error, 1)
	go func() {
		sub := events.NewSubscription(events.WithCallCenterAgentListener(&agentRecorder{}))
		listenErr <- session.ListenEvents(context.Background(), sub)
	}()
	require.Eventually(t, func() bool { return len(srv.Subscriptions()) == 1 }, 2*time.Second, 5*time.Millisecond)

	// Accessors stay available while the channel is being set up.
	assert.False(t, session.Listening())
	sub := events.NewSubscription(events.WithCallCenterAgentListener(&agentRecorder{}))
	assert.ErrorIs(t, session.ListenEvents(context.Background(), sub), errors.ErrAlreadyListening)

	closed := make(chan error, 1)
	go func() { closed <- session.Close(context.Background()) }()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind a pending ListenEvents")
	}
	select {
	case err := <-listenErr:
		assert.ErrorIs(t, err, errors.ErrSessionClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenEvents did not return after Close")
	}

	assert.Empty(t, srv.Subscriptions())
	reqs := srv.Requests()
	unsubscribe := slices.Index(reqs, "DELETE /subscriptions/sub-1")
	closeSession := slices.Index(reqs, "DELETE /sessions")
	require.NotEqual(t, -1, unsubscribe)
	assert.Less(t, unsubscribe, closeSession)
}

// blockingFoo holds the dispatcher in OnBar until released, then reads
// session state from inside the callback.
type blockingFoo struct {
	session   *gatelink.Session
	entered   chan struct{}
	release   chan struct{}
	listening chan bool
}

func (b *blockingFoo) OnBar(*BarEvent) {
	close(b.entered)
	<-b.release
	b.listening <- b.session.Listening()
	_ = b.session.SubscriptionID()
}

// TestSession_CloseWhileListenerUsesSession lets a running callback use the
// session while Close waits for the dispatcher.
func TestSession_CloseWhileListenerUsesSession(t *testing.T) {
	r := newFooRegistry()
	srv := gatewaytest.NewServer(t, gatewaytest.WithRegistry(r))
	session := openSession(t, newClient(t, srv, gatelink.WithRegistry(r)))

	foo := &blockingFoo{
		session:   session,
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
		listening: make(chan bool, 1),
	}
	sub := events.NewSubscription(events.WithListener(fooInterface, foo))
	require.NoError(t, session.ListenEvents(context.Background(), sub))

	srv.EmitRaw("test", `{"eventName":"Bar","value":"hold"}`)
	select {
	case <-foo.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never called")
	}

	closed := make(chan error, 1)
	go func() { closed <- session.Close(context.Background()) }()
	require.Eventually(t, func() bool { return !session.Listening() }, 2*time.Second, 5*time.Millisecond)
	close(foo.release)

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return while a listener used the session")
	}
	assert.False(t, <-foo.listening)
	assert.False(t, srv.SessionOpen())
}

func TestSession_Close(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv))

	require.NoError(t, session.Close(context.Background()))
	require.NoError(t, session.Close(context.Background()))

	sub := events.NewSubscription(events.WithCallCenterAgentListener(&agentRecorder{}))
	assert.ErrorIs(t, session.ListenEvents(context.Background(), sub), errors.ErrSessionClosed)
	assert.Equal(t, 1, slices.Index(srv.Requests(), "DELETE /sessions"))
}

func TestSession_KeepAlive(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	client := newClient(t, srv,
		gatelink.WithKeepAlive(true),
		gatelink.WithKeepAlivePeriod(20*time.Millisecond),
	)
	session := openSession(t, client)
	assert.Equal(t, defaultTTL, session.TimeToLive())

	require.Eventually(t, func() bool { return srv.KeepAlives() >= 2 }, 2*time.Second, 5*time.Millisecond)

	done := session.KeepAliveDone()
	require.NotNil(t, done)
	require.NoError(t, session.Close(context.Background()))
	select {
	case <-done:
	default:
		t.Fatal("keep-alive loop still running after Close")
	}

	sent := srv.KeepAlives()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, sent, srv.KeepAlives())
}

func TestSession_KeepAliveRefused(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	client := newClient(t, srv,
		gatelink.WithKeepAlive(true),
		gatelink.WithKeepAlivePeriod(10*time.Millisecond),
	)
	session := openSession(t, client)
	srv.SetKeepAliveStatus(http.StatusNotFound)

	select {
	case <-session.KeepAliveDone():
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive loop did not stop after the session was refused")
	}
}

func TestSession_NoKeepAlive(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	session := openSession(t, newClient(t, srv))
	assert.Nil(t, session.KeepAliveDone())
}

const defaultTTL = 60 * time.Second

func TestSession_LogFields(t *testing.T) {
	srv := gatewaytest.NewServer(t)
	logs := logging.NewTestLogger(t)
	session := openSession(t, newClient(t, srv, gatelink.WithLogger(logs.Logger)))

	sub := events.NewSubscription(events.WithCallCenterAgentListener(&agentRecorder{}))
	require.NoError(t, session.ListenEvents(context.Background(), sub))

	logs.AssertContains(t, `"session":"`+srv.BaseURL()+`"`)
	logs.AssertContains(t, `"subscription_id":"sub-1"`)
}
