package chunk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/logging"
	"github.com/agentstation/gatelink/pkg/registry"
)

// BarEvent and FooListener are a test-local listener contract.
type BarEvent struct {
	N int `json:"n"`
}

func (*BarEvent) EventName() string { return "Bar" }

type FooListener interface {
	OnBar(*BarEvent)
}

type fooRecorder struct {
	got chan *BarEvent
}

func (f *fooRecorder) OnBar(e *BarEvent) { f.got <- e }

var fooInterface = events.Interface{Package: "test", Name: "FooListener"}

func newFooDispatcher(t *testing.T, sub *events.Subscription) (*dispatcher, chan registry.Descriptor, *registry.Decoder) {
	t.Helper()
	r := registry.New()
	r.MustRegister(fooInterface, registry.On("OnBar", FooListener.OnBar))
	r.MustRegisterInternal(registry.Internal[events.ChannelInformationEvent]())

	queue := make(chan registry.Descriptor, 8)
	d := &dispatcher{
		registry:     r,
		subscription: sub,
		queue:        queue,
		policy:       (&policyHooks{}).policy(nil),
		logger:       logging.NewNopLogger(),
	}
	return d, queue, registry.NewDecoder(r)
}

// TestDispatcher_FooBar decodes {"event":"Bar"} and expects exactly one OnBar call.
func TestDispatcher_FooBar(t *testing.T) {
	foo := &fooRecorder{got: make(chan *BarEvent, 2)}
	other := &recorder{}
	sub := events.NewSubscription(
		events.WithListener(fooInterface, foo),
		events.WithTelephonyListener(other),
	)
	d, queue, dec := newFooDispatcher(t, sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.run(ctx)

	desc, err := dec.Decode([]byte(`{"event":"Bar","n":42}`))
	require.NoError(t, err)
	queue <- desc

	select {
	case e := <-foo.got:
		assert.Equal(t, 42, e.N)
	case <-time.After(5 * time.Second):
		t.Fatal("OnBar was not called")
	}

	select {
	case e := <-foo.got:
		t.Fatalf("unexpected second call with %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Empty(t, other.got())
}

// TestDispatcher_Discards verifies internal events and events without listeners are dropped.
func TestDispatcher_Discards(t *testing.T) {
	d, _, dec := newFooDispatcher(t, events.NewSubscription())

	info, err := dec.Decode([]byte(`{"eventName":"OnChannelInformation"}`))
	require.NoError(t, err)
	bar, err := dec.Decode([]byte(`{"eventName":"Bar"}`))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		d.dispatch(info)
		d.dispatch(bar)
	})
}

// TestDispatcher_ConsistencyPanics verifies a contract mismatch is not swallowed.
func TestDispatcher_ConsistencyPanics(t *testing.T) {
	sub := events.NewSubscription(events.WithListener(fooInterface, struct{}{}))
	d, _, dec := newFooDispatcher(t, sub)

	desc, err := dec.Decode([]byte(`{"eventName":"Bar"}`))
	require.NoError(t, err)

	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		_, ok := rec.(*pkgerrors.ConsistencyError)
		assert.True(t, ok, "panic value %v", rec)
	}()
	d.dispatch(desc)
}
