package gatewaytest

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/events"
)

// stream is one open event channel.
type stream struct {
	subscription string
	packages     map[events.Package]bool
	lines        chan []byte
	done         chan struct{}
	closeOnce    sync.Once
}

func newStream(subscription string, packages []events.Package) *stream {
	s := &stream{
		subscription: subscription,
		packages:     make(map[events.Package]bool, len(packages)),
		lines:        make(chan []byte, constants.RelayBufferSize),
		done:         make(chan struct{}),
	}
	for _, p := range packages {
		s.packages[p] = true
	}
	return s
}

func (s *stream) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// wants reports whether events of pkg pass the stream's subscription filter.
// Internal events and unfiltered streams receive everything.
func (s *stream) wants(pkg events.Package) bool {
	return pkg == "" || pkg == events.PackageInternal || len(s.packages) == 0 || s.packages[pkg]
}

type frame struct {
	pkg  events.Package
	line []byte
}

// Broadcaster fans event lines out to every open channel stream.
type Broadcaster struct {
	streams map[*stream]bool
	frames  chan frame
	mu      sync.RWMutex
	logger  *zerolog.Logger
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		streams: make(map[*stream]bool),
		frames:  make(chan frame, constants.RelayBufferSize),
		logger:  logger,
	}
}

// Run starts the broadcaster's main loop. Should be called in a goroutine.
// Frames are delivered in the order they were broadcast.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for s := range b.streams {
				s.close()
			}
			b.streams = make(map[*stream]bool)
			b.mu.Unlock()
			b.logger.Debug().Msg("Channel broadcaster shut down")
			return

		case f := <-b.frames:
			b.mu.RLock()
			for s := range b.streams {
				if !s.wants(f.pkg) {
					continue
				}
				select {
				case s.lines <- f.line:
				default:
					b.logger.Warn().
						Str("subscription_id", s.subscription).
						Msg("Channel buffer full, event skipped")
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Broadcast queues line for every stream whose filter selects pkg.
func (b *Broadcaster) Broadcast(pkg events.Package, line []byte) {
	select {
	case b.frames <- frame{pkg: pkg, line: line}:
	default:
		b.logger.Warn().Msg("Broadcast channel full, event dropped")
	}
}

// Count returns the number of open streams.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams)
}

// Disconnect ends the streams of subscription, or every stream when
// subscription is empty. It returns how many streams were ended.
func (b *Broadcaster) Disconnect(subscription string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for s := range b.streams {
		if subscription != "" && s.subscription != subscription {
			continue
		}
		s.close()
		delete(b.streams, s)
		n++
	}
	return n
}

func (b *Broadcaster) add(s *stream) {
	b.mu.Lock()
	b.streams[s] = true
	n := len(b.streams)
	b.mu.Unlock()
	b.logger.Debug().
		Str("subscription_id", s.subscription).
		Int("total_streams", n).
		Msg("Channel opened")
}

func (b *Broadcaster) remove(s *stream) {
	b.mu.Lock()
	delete(b.streams, s)
	n := len(b.streams)
	b.mu.Unlock()
	b.logger.Debug().
		Str("subscription_id", s.subscription).
		Int("total_streams", n).
		Msg("Channel closed")
}

// serve streams newline-delimited event lines to the client, starting with
// hello, until the stream is disconnected or the request ends.
func (b *Broadcaster) serve(w http.ResponseWriter, r *http.Request, s *stream, hello []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Registered before the first line is written so nothing broadcast
	// after the client saw hello can be missed.
	b.add(s)
	defer b.remove(s)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	b.writeLine(w, flusher, hello)

	for {
		select {
		case line := <-s.lines:
			b.writeLine(w, flusher, line)
		case <-s.done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (b *Broadcaster) writeLine(w http.ResponseWriter, flusher http.Flusher, line []byte) {
	buf := make([]byte, 0, len(line)+1)
	buf = append(append(buf, line...), '\n')
	if _, err := w.Write(buf); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to write event line")
		return
	}
	flusher.Flush()
}
