package listen

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gatelink"
	"github.com/agentstation/gatelink/internal/appcontext"
	"github.com/agentstation/gatelink/internal/gatewaytest"
	"github.com/agentstation/gatelink/internal/relay"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func mockApp(srv *gatewaytest.Server, format string) *appcontext.Mock {
	return &appcontext.Mock{
		ClientFunc: func(opts ...gatelink.Option) (*gatelink.Client, error) {
			opts = append([]gatelink.Option{
				gatelink.WithLogger(logging.NewNopLogger()),
				gatelink.WithKeepAlive(false),
			}, opts...)
			return gatelink.New(srv.BaseURL(), opts...)
		},
		OutputFormatFunc: func() string { return format },
	}
}

func TestRun_UnknownPackage(t *testing.T) {
	err := Run(context.Background(), &appcontext.Mock{}, &Flags{}, []events.Package{"faxes"}, nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestRun_InvalidFormat(t *testing.T) {
	err := Run(context.Background(), &appcontext.Mock{OutputFormatFunc: func() string { return "xml" }}, &Flags{}, nil, nil)
	assert.Error(t, err)
}

func TestRun_NoClient(t *testing.T) {
	err := Run(context.Background(), &appcontext.Mock{}, &Flags{}, nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_StreamsAndRelays(t *testing.T) {
	srv := gatewaytest.NewServer(t, gatewaytest.WithLogger(logging.NewNopLogger()))
	app := mockApp(srv, "table")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, app, &Flags{Relay: "127.0.0.1:0"}, []events.Package{events.PackageRouting}, &out)
	}()

	require.Eventually(t, func() bool {
		return len(srv.Subscriptions()) == 1 && srv.Streams() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, srv.Requests(), "POST /subscriptions")

	require.NoError(t, srv.Emit(&events.OnRoutingStateChangedEvent{LoginName: "bob"}))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "OnRoutingStateChanged")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not stop")
	}
	assert.False(t, srv.SessionOpen())
}

func TestRun_ChannelAborted(t *testing.T) {
	srv := gatewaytest.NewServer(t, gatewaytest.WithLogger(logging.NewNopLogger()))
	app := mockApp(srv, "json")

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), app, &Flags{}, []events.Package{events.PackageUsers}, &syncBuffer{})
	}()
	require.Eventually(t, func() bool { return srv.Streams() == 1 }, 2*time.Second, 10*time.Millisecond)

	// The reconnect is refused, which the default policy treats as fatal.
	srv.SetPollStatus(http.StatusForbidden)
	srv.Disconnect("")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrChannelClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("listen kept running after the event channel gave up")
	}
	assert.False(t, srv.SessionOpen())
}

func TestRelayDelivers(t *testing.T) {
	// The relay path of listen, driven directly so the test can dial the hub.
	srv := gatewaytest.NewServer(t, gatewaytest.WithLogger(logging.NewNopLogger()))
	client, err := mockApp(srv, "json").Client()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := relay.NewHub(logging.NewNopLogger())
	go hub.Run(ctx)
	ws := httptest.NewServer(relay.Handler(hub))
	defer ws.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ws.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	session, err := client.Open(ctx)
	require.NoError(t, err)
	defer session.Close(context.Background())

	listener := relay.NewFuncListener(hub.BroadcastEvent)
	sub := events.NewSubscription(listener.SubscriptionOptions(events.PackageUsers)...)
	require.NoError(t, session.ListenEvents(ctx, sub))

	require.NoError(t, srv.Emit(&events.OnUserCreatedEvent{LoginName: "dave"}))

	var msg struct {
		Type string `json:"type"`
		Data struct {
			LoginName string `json:"loginName"`
		} `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "OnUserCreated", msg.Type)
	assert.Equal(t, "dave", msg.Data.LoginName)
}
