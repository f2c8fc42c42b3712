package chunk

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/monitoring"
	"github.com/agentstation/gatelink/pkg/registry"
)

const channelInfoLine = `{"eventName":"OnChannelInformation","lifetime":60}`

func callCreatedLine(ref int) string {
	return fmt.Sprintf(`{"eventName":"OnCallCreated","loginName":"alice","call":{"callRef":"%d","state":"RINGING"}}`, ref)
}

// recorder is a TelephonyListener collecting call refs of created calls.
type recorder struct {
	mu    sync.Mutex
	refs  []string
	panic bool
}

func (r *recorder) OnCallCreated(e *events.OnCallCreatedEvent) {
	if r.panic {
		panic("listener exploded on " + e.Call.CallRef)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, e.Call.CallRef)
}

func (r *recorder) OnCallModified(*events.OnCallModifiedEvent) {}

func (r *recorder) OnCallRemoved(*events.OnCallRemovedEvent) {}

func (r *recorder) OnTelephonyState(*events.OnTelephonyStateEvent) {}

func (r *recorder) OnDeviceStateModified(*events.OnDeviceStateModifiedEvent) {}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.refs...)
}

// policyHooks counts policy hooks on top of the default policy.
type policyHooks struct {
	established atomic.Int32
	fatal       atomic.Int32
	exceptions  atomic.Int32
	failures    atomic.Int32
	lastErr     atomic.Value
}

func (p *policyHooks) policy(decide func(error) monitoring.Decision) monitoring.Policy {
	return &monitoring.Funcs{
		Fallback:                  monitoring.NewDefaultPolicy(logging.NewNopLogger()),
		OnChunkChannelEstablished: func() { p.established.Add(1) },
		OnChunkChannelFatalError: func(err error) {
			p.fatal.Add(1)
			p.lastErr.Store(err)
		},
		OnEventTreatmentException: func(err error, _ string) {
			p.exceptions.Add(1)
			p.lastErr.Store(err)
		},
		OnChunkChannelFailure: func(err error) monitoring.Decision {
			p.failures.Add(1)
			if decide != nil {
				return decide(err)
			}
			return monitoring.RetryAfter(10 * time.Millisecond)
		},
	}
}

// channelServer serves the event channel; handle is called once per connection.
type channelServer struct {
	*httptest.Server
	conns atomic.Int32
}

func newChannelServer(t *testing.T, handle func(conn int, w *lineWriter, r *http.Request)) *channelServer {
	t.Helper()
	cs := &channelServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		n := int(cs.conns.Add(1))
		handle(n, &lineWriter{w: w}, r)
	}))
	t.Cleanup(cs.Close)
	return cs
}

// lineWriter writes and flushes one line at a time.
type lineWriter struct {
	w http.ResponseWriter
}

func (lw *lineWriter) line(s string) {
	_, _ = fmt.Fprintln(lw.w, s)
	if f, ok := lw.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (lw *lineWriter) status(code int) {
	lw.w.WriteHeader(code)
}

func newTestEventing(t *testing.T, cs *channelServer, sub *events.Subscription, policy monitoring.Policy, tweak func(*Config)) *Eventing {
	t.Helper()
	cfg := Config{
		URL:          cs.URL + "/poll",
		Doer:         transport.New(nil, "").Streaming(),
		Registry:     registry.NewDefault(),
		Subscription: sub,
		Policy:       policy,
		Logger:       logging.NewNopLogger(),
		ReadyTimeout: 5 * time.Second,
		Backoff:      BackoffConfig{InitialDelay: 5 * time.Millisecond, Multiplier: 2, MaxDelay: 20 * time.Millisecond},
	}
	if tweak != nil {
		tweak(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		e.Stop()
		e.AwaitTermination()
	})
	return e
}
