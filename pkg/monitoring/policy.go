// Package monitoring defines the policy consulted by the event channel and
// the keep-alive loop when they fail, and the hooks they report through.
package monitoring

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/pkg/constants"
	pkgerrors "github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/logging"
)

// Decision is the answer of a policy to a failure: retry after a delay, or abort.
type Decision struct {
	abort bool
	delay time.Duration
}

// RetryAfter returns a decision to retry after d.
func RetryAfter(d time.Duration) Decision {
	return Decision{delay: d}
}

// Abort returns a decision to give up.
func Abort() Decision {
	return Decision{abort: true}
}

// IsAbort reports whether the decision is Abort.
func (d Decision) IsAbort() bool {
	return d.abort
}

// Delay returns the retry delay. It is zero for Abort.
func (d Decision) Delay() time.Duration {
	return d.delay
}

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d.abort {
		return "abort"
	}
	return "retry after " + d.delay.String()
}

// Policy observes channel and keep-alive activity and decides what to do
// on failure. Hooks are called from runtime goroutines and must not block
// for long or panic.
type Policy interface {
	ChunkChannelEstablished()
	ChunkChannelFatalError(err error)
	SessionKeepAliveDone()
	SessionKeepAliveFatalError()
	EventTreatmentException(err error, event string)

	BehaviorOnChunkChannelFailure(err error) Decision
	BehaviorOnKeepAliveFailure(err error) Decision
}

// DefaultPolicy retries every RetryInterval, except for channel open
// requests the gateway rejected with a 4xx status, which abort. The zero
// value retries every 2 seconds and logs to the default logger.
type DefaultPolicy struct {
	RetryInterval time.Duration
	Logger        *zerolog.Logger
}

var _ Policy = (*DefaultPolicy)(nil)

// NewDefaultPolicy returns a DefaultPolicy retrying every 2 seconds.
func NewDefaultPolicy(logger *zerolog.Logger) *DefaultPolicy {
	return &DefaultPolicy{
		RetryInterval: constants.DefaultRetryInterval,
		Logger:        logging.OrDefault(logger),
	}
}

func (p *DefaultPolicy) logger() *zerolog.Logger {
	return logging.OrDefault(p.Logger)
}

func (p *DefaultPolicy) interval() time.Duration {
	if p.RetryInterval <= 0 {
		return constants.DefaultRetryInterval
	}
	return p.RetryInterval
}

// ChunkChannelEstablished logs the new connection.
func (p *DefaultPolicy) ChunkChannelEstablished() {
	p.logger().Debug().Msg("Event channel established")
}

// ChunkChannelFatalError logs the error that stopped the channel.
func (p *DefaultPolicy) ChunkChannelFatalError(err error) {
	p.logger().Error().Err(err).Msg("Event channel stopped")
}

// SessionKeepAliveDone logs a successful keep-alive.
func (p *DefaultPolicy) SessionKeepAliveDone() {
	p.logger().Debug().Msg("Session keep-alive done")
}

// SessionKeepAliveFatalError logs that the gateway no longer knows the session.
func (p *DefaultPolicy) SessionKeepAliveFatalError() {
	p.logger().Error().Msg("Session keep-alive refused, session is gone")
}

// EventTreatmentException logs a listener failure.
func (p *DefaultPolicy) EventTreatmentException(err error, event string) {
	p.logger().Warn().Err(err).Str("event", event).Msg("Listener failed to handle event")
}

// BehaviorOnChunkChannelFailure aborts on rejected channel requests and retries otherwise.
func (p *DefaultPolicy) BehaviorOnChunkChannelFailure(err error) Decision {
	var chErr *pkgerrors.ChannelError
	if errors.As(err, &chErr) && chErr.Op == "open" && chErr.Rejected() {
		return Abort()
	}
	return RetryAfter(p.interval())
}

// BehaviorOnKeepAliveFailure always retries.
func (p *DefaultPolicy) BehaviorOnKeepAliveFailure(error) Decision {
	return RetryAfter(p.interval())
}

// Funcs is a Policy built from optional functions. Nil hooks fall back to
// Fallback, or to a DefaultPolicy when Fallback is nil.
type Funcs struct {
	Fallback Policy

	OnChunkChannelEstablished    func()
	OnChunkChannelFatalError     func(err error)
	OnSessionKeepAliveDone       func()
	OnSessionKeepAliveFatalError func()
	OnEventTreatmentException    func(err error, event string)

	OnChunkChannelFailure func(err error) Decision
	OnKeepAliveFailure    func(err error) Decision
}

var _ Policy = (*Funcs)(nil)

func (f *Funcs) fallback() Policy {
	if f.Fallback == nil {
		return &DefaultPolicy{}
	}
	return f.Fallback
}

// ChunkChannelEstablished implements Policy.
func (f *Funcs) ChunkChannelEstablished() {
	if f.OnChunkChannelEstablished != nil {
		f.OnChunkChannelEstablished()
		return
	}
	f.fallback().ChunkChannelEstablished()
}

// ChunkChannelFatalError implements Policy.
func (f *Funcs) ChunkChannelFatalError(err error) {
	if f.OnChunkChannelFatalError != nil {
		f.OnChunkChannelFatalError(err)
		return
	}
	f.fallback().ChunkChannelFatalError(err)
}

// SessionKeepAliveDone implements Policy.
func (f *Funcs) SessionKeepAliveDone() {
	if f.OnSessionKeepAliveDone != nil {
		f.OnSessionKeepAliveDone()
		return
	}
	f.fallback().SessionKeepAliveDone()
}

// SessionKeepAliveFatalError implements Policy.
func (f *Funcs) SessionKeepAliveFatalError() {
	if f.OnSessionKeepAliveFatalError != nil {
		f.OnSessionKeepAliveFatalError()
		return
	}
	f.fallback().SessionKeepAliveFatalError()
}

// EventTreatmentException implements Policy.
func (f *Funcs) EventTreatmentException(err error, event string) {
	if f.OnEventTreatmentException != nil {
		f.OnEventTreatmentException(err, event)
		return
	}
	f.fallback().EventTreatmentException(err, event)
}

// BehaviorOnChunkChannelFailure implements Policy.
func (f *Funcs) BehaviorOnChunkChannelFailure(err error) Decision {
	if f.OnChunkChannelFailure != nil {
		return f.OnChunkChannelFailure(err)
	}
	return f.fallback().BehaviorOnChunkChannelFailure(err)
}

// BehaviorOnKeepAliveFailure implements Policy.
func (f *Funcs) BehaviorOnKeepAliveFailure(err error) Decision {
	if f.OnKeepAliveFailure != nil {
		return f.OnKeepAliveFailure(err)
	}
	return f.fallback().BehaviorOnKeepAliveFailure(err)
}
