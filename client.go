// Package gatelink provides a client runtime for telephony gateway sessions.
// It keeps a session alive and streams gateway-pushed events to typed
// application listeners.
//
// A Client opens sessions. Each Session runs a keep-alive loop for its
// whole life and, once ListenEvents is called, an event channel that
// decodes the gateway's newline-delimited JSON events and calls the
// matching method of every registered listener.
//
// Example usage:
//
//	client, err := gatelink.New("https://gw.example.com/api/rest/1.0",
//	    gatelink.WithBearerToken(token),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session, err := client.Open(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close(context.Background())
//
//	sub := events.NewSubscription(events.WithTelephonyListener(myListener))
//	if err := session.ListenEvents(ctx, sub); err != nil {
//	    log.Fatal(err)
//	}
package gatelink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/internal/gateway"
	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/monitoring"
	"github.com/agentstation/gatelink/pkg/registry"
)

// Client opens sessions against one gateway.
type Client struct {
	baseURL   string
	options   *options
	transport *transport.Client
	registry  *registry.Registry
	policy    monitoring.Policy
	logger    *zerolog.Logger
}

// New creates a Client for the gateway REST API rooted at baseURL.
// baseURL may be empty when both control surfaces are supplied with
// WithSessionControl and WithSubscriptionControl.
func New(baseURL string, opts ...Option) (*Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:  baseURL,
		options:  o,
		registry: o.registry,
		policy:   o.policy,
		logger:   logging.OrDefault(o.logger),
	}
	if c.registry == nil {
		c.registry = registry.NewDefault()
	}
	if c.policy == nil {
		c.policy = monitoring.NewDefaultPolicy(c.logger)
	}

	c.transport = transport.New(o.auth, o.credential,
		transport.WithHTTPClient(o.httpClient),
		transport.WithStreamClient(o.streamClient),
		transport.WithUserAgent(o.applicationName),
	)

	if o.sessions == nil || o.subscriptions == nil {
		api, err := gateway.NewAPI(baseURL, c.transport)
		if err != nil {
			return nil, err
		}
		if o.sessions == nil {
			o.sessions = api.Sessions(o.applicationName)
		}
		if o.subscriptions == nil {
			o.subscriptions = api.Subscriptions()
		}
	}

	return c, nil
}

// Registry returns the event registry used to decode and dispatch events.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}

// Open opens a gateway session and starts its keep-alive loop.
func (c *Client) Open(ctx context.Context) (*Session, error) {
	info, err := c.options.sessions.Open(ctx)
	if err != nil {
		return nil, errors.WrapResource("open", "session", "", err)
	}

	logCtx := logging.WithLogger(ctx, c.logger)
	if c.baseURL != "" {
		logCtx = logging.WithSession(logCtx, c.baseURL)
	}
	logger := logging.FromContext(logCtx)

	s := newSession(sessionConfig{
		info:           info,
		sessions:       c.options.sessions,
		subscriptions:  c.options.subscriptions,
		doer:           c.transport.Streaming(),
		registry:       c.registry,
		policy:         c.policy,
		logger:         logger,
		queueCapacity:  c.options.queueCapacity,
		readyTimeout:   c.options.readyTimeout,
		privatePolling: c.options.privatePolling,
	})

	if c.options.keepAlive {
		period := c.options.keepAlivePeriod
		if period <= 0 {
			period = info.TimeToLive
		}
		if err := s.startKeepAlive(period); err != nil {
			_ = c.options.sessions.Close(context.WithoutCancel(ctx))
			return nil, err
		}
	}

	logger.Info().
		Dur("ttl", info.TimeToLive).
		Bool("keepalive", c.options.keepAlive).
		Msg("Session opened")
	return s, nil
}
