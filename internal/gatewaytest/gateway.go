// Package gatewaytest provides an in-process fake of the telephony gateway
// REST API and event channel. Tests use it through NewServer; the mock
// command serves it on a real listener.
package gatewaytest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/registry"
)

// Prefix is the path under which the fake gateway serves its API.
const Prefix = "/api/"

// Option configures a Gateway.
type Option func(*Gateway)

// WithToken requires token on every request.
func WithToken(token string) Option {
	return func(g *Gateway) {
		g.token = token
	}
}

// WithTimeToLive sets the session time-to-live reported on open.
func WithTimeToLive(d time.Duration) Option {
	return func(g *Gateway) {
		g.ttl = d
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithRegistry sets the registry used to route emitted events by package.
func WithRegistry(r *registry.Registry) Option {
	return func(g *Gateway) {
		g.registry = r
	}
}

// Gateway is a fake gateway. It is safe for concurrent use.
type Gateway struct {
	token    string
	ttl      time.Duration
	logger   *zerolog.Logger
	registry *registry.Registry

	broadcaster *Broadcaster
	handler     http.Handler

	mu              sync.Mutex
	sessionOpen     bool
	keepAlives      int
	keepAliveStatus int
	pollStatus      int
	rejectMessage   string
	subscriptions   map[string][]events.Package
	requests        []string
	nextID          int
}

// New returns a gateway. Its broadcaster must be running, see Run.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		ttl:           constants.DefaultSessionTTL,
		subscriptions: make(map[string][]events.Package),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.OrDefault(g.logger)
	if g.registry == nil {
		g.registry = registry.NewDefault()
	}
	g.broadcaster = NewBroadcaster(g.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+Prefix+"sessions", g.handleOpenSession)
	mux.HandleFunc("POST "+Prefix+"sessions/keepalive", g.handleKeepAlive)
	mux.HandleFunc("DELETE "+Prefix+"sessions", g.handleCloseSession)
	mux.HandleFunc("POST "+Prefix+"subscriptions", g.handleCreateSubscription)
	mux.HandleFunc("DELETE "+Prefix+"subscriptions/{id}", g.handleDeleteSubscription)
	mux.HandleFunc("POST "+Prefix+"poll/{id}", g.handlePoll)

	g.handler = chain(
		recovery(g.logger),
		requestLogger(g.logger),
		g.record,
		auth(g.token, g.logger),
	)(mux)
	return g
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

// Run runs the event broadcaster until ctx is done.
func (g *Gateway) Run(ctx context.Context) {
	g.broadcaster.Run(ctx)
}

func (g *Gateway) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.requests = append(g.requests, r.Method+" "+strings.TrimPrefix(r.URL.Path, strings.TrimSuffix(Prefix, "/")))
		g.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type sessionResponse struct {
	TimeToLive     int    `json:"timeToLive"`
	PublicBaseURL  string `json:"publicBaseUrl"`
	PrivateBaseURL string `json:"privateBaseUrl"`
}

func (g *Gateway) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.sessionOpen = true
	ttl := g.ttl
	g.mu.Unlock()

	base := baseURL(r)
	writeJSON(w, http.StatusOK, sessionResponse{
		TimeToLive:     int(ttl / time.Second),
		PublicBaseURL:  base,
		PrivateBaseURL: base,
	})
}

func (g *Gateway) handleKeepAlive(w http.ResponseWriter, _ *http.Request) {
	g.mu.Lock()
	g.keepAlives++
	open, forced := g.sessionOpen, g.keepAliveStatus
	g.mu.Unlock()

	switch {
	case forced != 0:
		writeError(w, forced, "FORCED", http.StatusText(forced))
	case !open:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No session")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleCloseSession(w http.ResponseWriter, _ *http.Request) {
	g.mu.Lock()
	open := g.sessionOpen
	g.sessionOpen = false
	g.subscriptions = make(map[string][]events.Package)
	g.mu.Unlock()

	if !open {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No session")
		return
	}
	g.broadcaster.Disconnect("")
	w.WriteHeader(http.StatusNoContent)
}

type subscriptionRequest struct {
	Filter  events.Filter `json:"filter"`
	Version string        `json:"version"`
	Timeout int           `json:"timeout"`
}

type subscriptionResponse struct {
	Status            string `json:"status"`
	SubscriptionID    string `json:"subscriptionId,omitempty"`
	Message           string `json:"message,omitempty"`
	PrivatePollingURL string `json:"privatePollingUrl,omitempty"`
	PublicPollingURL  string `json:"publicPollingUrl,omitempty"`
}

func (g *Gateway) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var packages []events.Package
	for _, sel := range req.Filter.Selectors {
		packages = append(packages, sel.Names...)
	}

	g.mu.Lock()
	if !g.sessionOpen {
		g.mu.Unlock()
		writeError(w, http.StatusForbidden, "FORBIDDEN", "No session")
		return
	}
	if g.rejectMessage != "" {
		msg := g.rejectMessage
		g.mu.Unlock()
		writeJSON(w, http.StatusOK, subscriptionResponse{Status: "REJECTED", Message: msg})
		return
	}
	g.nextID++
	id := fmt.Sprintf("sub-%d", g.nextID)
	g.subscriptions[id] = packages
	g.mu.Unlock()

	writeJSON(w, http.StatusOK, subscriptionResponse{
		Status:            "ACCEPTED",
		SubscriptionID:    id,
		PrivatePollingURL: "poll/" + id,
		PublicPollingURL:  baseURL(r) + "poll/" + id,
	})
}

func (g *Gateway) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	g.mu.Lock()
	_, ok := g.subscriptions[id]
	delete(g.subscriptions, id)
	g.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown subscription "+id)
		return
	}
	g.broadcaster.Disconnect(id)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handlePoll(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	g.mu.Lock()
	packages, ok := g.subscriptions[id]
	forced := g.pollStatus
	g.mu.Unlock()

	switch {
	case forced != 0:
		writeError(w, forced, "FORCED", http.StatusText(forced))
		return
	case !ok:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Unknown subscription "+id)
		return
	}

	hello, err := EncodeLine(&events.ChannelInformationEvent{
		Lifetime: int(g.ttl / time.Second),
		Message:  "channel " + id + " open",
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	g.broadcaster.serve(w, r, newStream(id, packages), hello)
}

// Emit encodes ev as a channel line and sends it to every stream whose
// subscription selects its package.
func (g *Gateway) Emit(ev events.Event) error {
	line, err := EncodeLine(ev)
	if err != nil {
		return err
	}
	var pkg events.Package
	if e, ok := g.registry.Lookup(ev.EventName()); ok {
		pkg = e.Interface.Package
	}
	g.broadcaster.Broadcast(pkg, line)
	return nil
}

// EmitRaw sends line unchanged to every stream selecting pkg. An empty
// pkg reaches every stream.
func (g *Gateway) EmitRaw(pkg events.Package, line string) {
	g.broadcaster.Broadcast(pkg, []byte(line))
}

// Disconnect ends the open channel streams of subscription, or all of them
// when subscription is empty. Clients see the end of the stream.
func (g *Gateway) Disconnect(subscription string) int {
	return g.broadcaster.Disconnect(subscription)
}

// Streams returns the number of open channel streams.
func (g *Gateway) Streams() int {
	return g.broadcaster.Count()
}

// KeepAlives returns how many keep-alive requests were received.
func (g *Gateway) KeepAlives() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keepAlives
}

// SessionOpen reports whether a session is open.
func (g *Gateway) SessionOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionOpen
}

// Subscriptions returns the ids of the live subscriptions.
func (g *Gateway) Subscriptions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.subscriptions))
	for id := range g.subscriptions {
		ids = append(ids, id)
	}
	return ids
}

// Requests returns "METHOD /path" for every request received, with paths
// relative to the API prefix.
func (g *Gateway) Requests() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.requests...)
}

// SetKeepAliveStatus forces keep-alive answers to status. Zero restores
// normal behavior.
func (g *Gateway) SetKeepAliveStatus(status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keepAliveStatus = status
}

// SetPollStatus forces channel open answers to status. Zero restores
// normal behavior.
func (g *Gateway) SetPollStatus(status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pollStatus = status
}

// RejectSubscriptions makes subscription requests fail with message. An
// empty message accepts them again.
func (g *Gateway) RejectSubscriptions(message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rejectMessage = message
}

// EncodeLine returns the channel line of ev: its JSON encoding with the
// eventName discriminator added.
func EncodeLine(ev events.Event) ([]byte, error) {
	if ev == nil {
		return nil, errors.NewValidationError("event", nil, "event is required")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.WrapParse("json", ev.EventName(), err)
	}
	name, err := json.Marshal(ev.EventName())
	if err != nil {
		return nil, errors.WrapParse("json", ev.EventName(), err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"` + constants.EventNameField + `":`)
	buf.Write(name)
	if body := bytes.TrimSpace(data[1 : len(data)-1]); len(body) > 0 {
		buf.WriteByte(',')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + Prefix
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are ignored as headers are already sent
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, struct {
		Error apiError `json:"error"`
	}{apiError{Code: code, Message: message}})
}
