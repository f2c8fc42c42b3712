// Package transport provides the HTTP plumbing used to talk to the gateway:
// credential application, JSON request helpers and a streaming doer for
// the long-lived event channel.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for request/response calls.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Doer sends HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides HTTP client functionality with authentication.
type Client struct {
	http       *http.Client
	stream     *http.Client
	auth       Authenticator
	credential string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for request/response calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithStreamClient sets the client used for the event channel. It must
// not have a timeout, since the channel body never ends on its own.
func WithStreamClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.stream = hc
		}
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a new transport client applying credential with auth.
func New(auth Authenticator, credential string, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http:       &http.Client{Timeout: DefaultHTTPTimeout},
		stream:     &http.Client{},
		auth:       auth,
		credential: credential,
		userAgent:  constants.DefaultApplicationName,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs an HTTP request with authentication applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.prepare(req)
	return c.http.Do(req)
}

// Streaming returns a Doer for long-lived streamed responses. Requests are
// bounded only by their context.
func (c *Client) Streaming() Doer {
	return streamDoer{c}
}

type streamDoer struct {
	c *Client
}

func (s streamDoer) Do(req *http.Request) (*http.Response, error) {
	s.c.prepare(req)
	return s.c.stream.Do(req)
}

func (c *Client) prepare(req *http.Request) {
	if c.credential != "" {
		c.auth.Apply(req, c.credential)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Body != nil && (req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch) {
		req.Header.Set("Content-Type", "application/json")
	}
}

// NewJSONRequest creates a request whose body is the JSON encoding of body.
// A nil body sends no content.
func NewJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", "request body", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, errors.WrapResource("create", "request", method+" "+url, err)
	}
	return req, nil
}
