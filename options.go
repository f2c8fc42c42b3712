package gatelink

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/control"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/monitoring"
	"github.com/agentstation/gatelink/pkg/registry"
)

// Option is a function that configures a Client
type Option func(*options) error

// options holds the Client configuration
type options struct {
	auth            transport.Authenticator
	credential      string
	httpClient      *http.Client
	streamClient    *http.Client
	applicationName string

	registry *registry.Registry
	policy   monitoring.Policy
	logger   *zerolog.Logger

	queueCapacity   int
	readyTimeout    time.Duration
	keepAlive       bool
	keepAlivePeriod time.Duration
	privatePolling  bool

	sessions      control.SessionControl
	subscriptions control.SubscriptionControl
}

// defaults returns the default options
func defaults() *options {
	return &options{
		applicationName: constants.DefaultApplicationName,
		queueCapacity:   constants.DefaultQueueCapacity,
		readyTimeout:    constants.DefaultReadyTimeout,
		keepAlive:       true,
	}
}

// apply applies the given options in order
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithAuthenticator attaches credential to every request using auth.
func WithAuthenticator(auth transport.Authenticator, credential string) Option {
	return func(o *options) error {
		if auth == nil {
			return errors.NewValidationError("auth", nil, "authenticator is required")
		}
		o.auth = auth
		o.credential = credential
		return nil
	}
}

// WithAuthScheme attaches credential using a scheme such as "bearer",
// "header:X-Gateway-Token", "cookie:session" or "query:token".
func WithAuthScheme(scheme, credential string) Option {
	return func(o *options) error {
		auth, err := transport.ParseAuthenticator(scheme)
		if err != nil {
			return err
		}
		o.auth = auth
		o.credential = credential
		return nil
	}
}

// WithBearerToken sends token as a Bearer Authorization header
func WithBearerToken(token string) Option {
	return WithAuthenticator(&transport.BearerAuth{}, token)
}

// WithHTTPClient sets the client used for REST calls
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		o.httpClient = hc
		return nil
	}
}

// WithStreamClient sets the client used for the event channel. It must not
// carry a timeout since the channel response never ends on its own.
func WithStreamClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc != nil && hc.Timeout > 0 {
			return errors.NewValidationError("streamClient", hc.Timeout, "stream client must not have a timeout")
		}
		o.streamClient = hc
		return nil
	}
}

// WithApplicationName sets the application name sent when opening sessions
func WithApplicationName(name string) Option {
	return func(o *options) error {
		o.applicationName = name
		return nil
	}
}

// WithRegistry replaces the built-in event registry
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) error {
		if r == nil {
			return errors.NewValidationError("registry", nil, "registry is required")
		}
		o.registry = r
		return nil
	}
}

// WithPolicy sets the monitoring policy of every session
func WithPolicy(p monitoring.Policy) Option {
	return func(o *options) error {
		o.policy = p
		return nil
	}
}

// WithLogger sets the logger of the client and its sessions
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithQueueCapacity bounds the events waiting for dispatch
func WithQueueCapacity(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("queueCapacity", n, "queue capacity must be positive")
		}
		o.queueCapacity = n
		return nil
	}
}

// WithReadyTimeout bounds how long ListenEvents waits for the gateway to
// confirm the event channel. Zero waits as long as the caller's context.
func WithReadyTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.NewValidationError("readyTimeout", d, "ready timeout must not be negative")
		}
		o.readyTimeout = d
		return nil
	}
}

// WithKeepAlive enables or disables the keep-alive loop
func WithKeepAlive(enabled bool) Option {
	return func(o *options) error {
		o.keepAlive = enabled
		return nil
	}
}

// WithKeepAlivePeriod overrides the keep-alive period, which otherwise is
// the session time-to-live reported by the gateway
func WithKeepAlivePeriod(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("keepAlivePeriod", d, "keep-alive period must be positive")
		}
		o.keepAlivePeriod = d
		return nil
	}
}

// WithPrivatePolling makes the event channel use the private polling URL
func WithPrivatePolling(enabled bool) Option {
	return func(o *options) error {
		o.privatePolling = enabled
		return nil
	}
}

// WithSessionControl replaces the REST session surface
func WithSessionControl(sc control.SessionControl) Option {
	return func(o *options) error {
		o.sessions = sc
		return nil
	}
}

// WithSubscriptionControl replaces the REST subscription surface
func WithSubscriptionControl(sc control.SubscriptionControl) Option {
	return func(o *options) error {
		o.subscriptions = sc
		return nil
	}
}
