package registry

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/agentstation/gatelink/pkg/events"
)

// Binding ties one listener method to the event type it receives.
// Create bindings with On or Internal.
type Binding struct {
	method     string
	wireName   string
	listener   reflect.Type
	newEvent   func() events.Event
	invoke     func(listener any, payload events.Event) string
	implements func(listener any) bool
}

// On binds method of listener interface L to the event type PE. The call
// is usually a method expression:
//
//	registry.On("OnCallCreated", events.TelephonyListener.OnCallCreated)
//
// The function type guarantees the method takes the payload as its only parameter.
func On[L any, E any, PE interface {
	*E
	events.Event
}](method string, call func(L, PE)) Binding {
	b := Binding{
		method:   method,
		wireName: PE(new(E)).EventName(),
		listener: reflect.TypeFor[L](),
		newEvent: func() events.Event { return PE(new(E)) },
		implements: func(listener any) bool {
			_, ok := listener.(L)
			return ok
		},
	}
	if call != nil {
		b.invoke = func(listener any, payload events.Event) string {
			l, ok := listener.(L)
			if !ok {
				return fmt.Sprintf("listener %T does not implement the interface", listener)
			}
			p, ok := payload.(PE)
			if !ok {
				return fmt.Sprintf("payload %T is not %T", payload, PE(nil))
			}
			call(l, p)
			return ""
		}
	}
	return b
}

// Internal describes an event that has no listener interface, for use with
// Registry.MustRegisterInternal.
func Internal[E any, PE interface {
	*E
	events.Event
}]() Binding {
	return Binding{
		wireName: PE(new(E)).EventName(),
		newEvent: func() events.Event { return PE(new(E)) },
	}
}

// Adapter decodes a wire line into an intermediate shape and converts it
// into the event delivered to listeners. Create one with Adapt.
type Adapter struct {
	decode func(data []byte) (events.Event, error)
}

// Adapt returns an Adapter that unmarshals a line into W and passes it to fn.
func Adapt[W any](fn func(*W) (events.Event, error)) Adapter {
	return Adapter{
		decode: func(data []byte) (events.Event, error) {
			w := new(W)
			if err := json.Unmarshal(data, w); err != nil {
				return nil, err
			}
			return fn(w)
		},
	}
}
