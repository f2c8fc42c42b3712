package chunk

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/monitoring"
	"github.com/agentstation/gatelink/pkg/registry"
)

// dispatcher drains the queue in order and calls every listener of the
// descriptor's interface.
type dispatcher struct {
	registry     *registry.Registry
	subscription *events.Subscription
	queue        <-chan registry.Descriptor
	policy       monitoring.Policy
	logger       *zerolog.Logger
}

func (d *dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case desc := <-d.queue:
			d.dispatch(desc)
		}
	}
}

func (d *dispatcher) dispatch(desc registry.Descriptor) {
	if desc.Internal() {
		return
	}
	listeners := d.subscription.Listeners(desc.Interface)
	if len(listeners) == 0 {
		return
	}

	for _, l := range listeners {
		var mismatch error
		var pc panics.Catcher
		pc.Try(func() {
			mismatch = d.registry.Invoke(desc.Interface, desc.Method, l, desc.Payload)
		})

		// The registry and a live listener disagree on the contract.
		if mismatch != nil {
			panic(mismatch)
		}

		if r := pc.Recovered(); r != nil {
			err := fmt.Errorf("%w: %v", errors.ErrListenerPanic, r.Value)
			d.logger.Error().
				Err(err).
				Str("event", desc.Name).
				Str("listener", fmt.Sprintf("%T", l)).
				Bytes("stack", r.Stack).
				Msg("Listener panicked")
			d.policy.EventTreatmentException(err, desc.Name)
		}
	}
}
