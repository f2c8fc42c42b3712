package chunk

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/agentstation/gatelink/pkg/constants"
)

// BackoffConfig shapes the delay between reconnects after streams that
// ended without delivering a single line.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultBackoff returns the reconnect backoff used when none is configured.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: constants.ReconnectInitialDelay,
		Multiplier:   constants.ReconnectMultiplier,
		MaxDelay:     constants.ReconnectMaxDelay,
		Jitter:       true,
	}
}

func (c BackoffConfig) isZero() bool {
	return c.InitialDelay == 0 && c.MaxDelay == 0 && c.Multiplier == 0
}

// NextBackoffDelay returns the delay before reconnect attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay)
	if attempt > 1 {
		delay *= math.Pow(cfg.Multiplier, float64(attempt-1))
	}
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

// sleep waits for d or until ctx is done. It reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
