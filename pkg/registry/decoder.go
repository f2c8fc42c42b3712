package registry

import (
	"encoding/json"

	"github.com/agentstation/utc"

	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
)

// Descriptor is a decoded event with its routing metadata. A zero
// Interface means the event is internal and is not dispatched.
type Descriptor struct {
	Payload    events.Event
	Interface  events.Interface
	Method     string
	Name       string // qualified event name
	ReceivedAt utc.Time
}

// Internal reports whether the descriptor has no listener interface.
func (d Descriptor) Internal() bool {
	return d.Interface.IsZero()
}

// Decoder turns channel lines into descriptors using a registry.
type Decoder struct {
	registry *Registry
}

// NewDecoder returns a decoder backed by r.
func NewDecoder(r *Registry) *Decoder {
	return &Decoder{registry: r}
}

// discriminators are the fields that name the event type of a line, in
// order of precedence.
var discriminators = [...]string{constants.EventNameField, constants.EventNameFallbackField}

// eventName returns the first non-empty discriminator of line.
func eventName(line []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return "", err
	}
	for _, key := range discriminators {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return "", err
		}
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}

// Decode decodes one channel line. Lines naming an unregistered event yield
// an error matching errors.ErrUnrecognizedEvent; malformed JSON yields a
// *errors.ParseError.
func (d *Decoder) Decode(line []byte) (Descriptor, error) {
	name, err := eventName(line)
	if err != nil {
		return Descriptor{}, errors.WrapParse("json", "event line", err)
	}
	if name == "" {
		return Descriptor{}, errors.NewUnrecognizedEventError("", "missing eventName")
	}

	e, ok := d.registry.lookup(name)
	if !ok {
		return Descriptor{}, errors.NewUnrecognizedEventError(name, "not registered")
	}

	payload, err := e.decode(line)
	if err != nil {
		return Descriptor{}, errors.WrapParse("json", e.QualifiedName, err)
	}

	return Descriptor{
		Payload:    payload,
		Interface:  e.Interface,
		Method:     e.Method,
		Name:       e.QualifiedName,
		ReceivedAt: utc.Now(),
	}, nil
}

func (e *Entry) decode(line []byte) (events.Event, error) {
	if e.adapter != nil {
		ev, err := e.adapter.decode(line)
		if err == nil && ev == nil {
			err = errors.New("adapter produced no event")
		}
		return ev, err
	}
	ev := e.newEvent()
	if err := json.Unmarshal(line, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
