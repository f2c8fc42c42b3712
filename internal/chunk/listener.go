package chunk

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/monitoring"
	"github.com/agentstation/gatelink/pkg/registry"
)

// listener owns the streamed channel request. It decodes every line and
// pushes the descriptors onto the queue, reconnecting until its context
// is canceled or the policy aborts.
type listener struct {
	url     string
	doer    transport.Doer
	decoder *registry.Decoder
	queue   chan<- registry.Descriptor
	policy  monitoring.Policy
	logger  *zerolog.Logger
	backoff BackoffConfig
	rng     *rand.Rand

	// ready is called once, on the first channel information event of the
	// channel lifetime.
	ready    func()
	released bool

	// fatal is the error the policy aborted on. It is written before run
	// returns and read only after.
	fatal error
}

func (l *listener) run(ctx context.Context) {
	unproductive := 0
	for {
		lines, err := l.stream(ctx)
		if ctx.Err() != nil {
			l.logger.Debug().Str("url", l.url).Msg("Event channel stopped")
			return
		}

		if err == nil {
			if lines > 0 {
				unproductive = 0
				l.logger.Info().Str("url", l.url).Msg("Event channel ended, reconnecting")
				continue
			}
			unproductive++
			delay := NextBackoffDelay(l.backoff, unproductive, l.rng)
			l.logger.Warn().
				Str("url", l.url).
				Int("attempt", unproductive).
				Dur("delay", delay).
				Msg("Event channel ended without data, reconnecting")
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		decision := l.policy.BehaviorOnChunkChannelFailure(err)
		if decision.IsAbort() {
			l.logger.Error().Err(err).Str("url", l.url).Msg("Event channel failed, giving up")
			l.fatal = err
			l.policy.ChunkChannelFatalError(err)
			return
		}
		delay := decision.Delay()
		if delay <= 0 {
			delay = constants.DefaultRetryInterval
		}
		l.logger.Warn().
			Err(err).
			Str("url", l.url).
			Dur("delay", delay).
			Msg("Event channel failed, retrying")
		if !sleep(ctx, delay) {
			return
		}
	}
}

// stream runs one connection until end of stream, error or cancellation.
// It returns the number of non-empty lines read. A nil error means EOF.
func (l *listener) stream(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, http.NoBody)
	if err != nil {
		return 0, &errors.ChannelError{Op: "open", URL: l.url, Err: err}
	}

	resp, err := l.doer.Do(req)
	if err != nil {
		return 0, &errors.ChannelError{Op: "open", URL: l.url, Err: err}
	}
	// The body is live until the gateway ends the chunk, so it is closed
	// without draining.
	defer resp.Body.Close()

	if !transport.Success(resp.StatusCode) {
		return 0, &errors.ChannelError{Op: "open", URL: l.url, StatusCode: resp.StatusCode}
	}
	l.logger.Debug().Str("url", l.url).Int("status", resp.StatusCode).Msg("Event channel connected")

	reader := bufio.NewReaderSize(resp.Body, constants.InitialLineBufferSize)

	lines := 0
	established := false
	for {
		raw, oversized, err := readLine(reader, constants.MaxEventLineSize)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return lines, nil
			}
			return lines, &errors.ChannelError{Op: "read", URL: l.url, Err: err}
		}
		if oversized {
			lines++
			l.logger.Warn().Int("limit", constants.MaxEventLineSize).Msg("Dropping oversized event line")
			continue
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		lines++

		desc, err := l.decoder.Decode(line)
		if err != nil {
			l.drop(line, err)
			continue
		}

		if _, ok := desc.Payload.(*events.ChannelInformationEvent); ok {
			if !established {
				established = true
				l.policy.ChunkChannelEstablished()
			}
			if !l.released {
				l.released = true
				l.ready()
				continue
			}
		}

		if !l.push(ctx, desc) {
			return lines, nil
		}
	}
}

// readLine returns the next newline-terminated line. A line longer than
// limit is consumed to its end without being kept and reported as oversized.
// A final line without terminator is returned with a nil error.
func readLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	oversized := false
	for {
		frag, err := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(frag) > limit+1 {
				oversized = true
				line = nil
			} else {
				line = append(line, frag...)
			}
		}
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && (len(line) > 0 || oversized):
			return line, oversized, nil
		case err != nil:
			return nil, false, err
		}
		return line, oversized, nil
	}
}

// push blocks until the queue accepts desc or ctx is done.
func (l *listener) push(ctx context.Context, desc registry.Descriptor) bool {
	select {
	case l.queue <- desc:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *listener) drop(line []byte, err error) {
	ev := l.logger.Warn()
	if errors.IsUnrecognizedEvent(err) {
		ev = l.logger.Debug()
	}
	ev.Err(err).Int("size", len(line)).Msg("Dropping event line")
}

func newRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}
