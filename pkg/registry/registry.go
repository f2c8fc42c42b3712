// Package registry maps wire event names to payload types and listener
// methods, and decodes channel lines into routed descriptors.
//
// A Registry is populated once, before any Decoder or dispatcher uses it,
// and is read-only afterward. Registration errors are programming errors
// and panic with a *errors.ConfigError.
package registry

import (
	"fmt"
	"sort"

	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
)

// Entry describes one registered event type.
type Entry struct {
	// WireName is the short name carried in the eventName field.
	WireName string
	// SimpleName is WireName with the Event suffix.
	SimpleName string
	// QualifiedName is the package-qualified SimpleName.
	QualifiedName string
	// Interface is zero for internal events.
	Interface events.Interface
	Method    string
	Adapted   bool

	newEvent func() events.Event
	invoke   func(listener any, payload events.Event) string
	adapter  *Adapter
}

type methodKey struct {
	iface  events.Interface
	method string
}

// Registry is the table from event names to types and listener methods.
type Registry struct {
	entries    map[string]*Entry // by qualified name
	simple     map[string]string // simple name -> qualified name
	methods    map[methodKey]*Entry
	interfaces map[events.Interface]func(any) bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		entries:    make(map[string]*Entry),
		simple:     make(map[string]string),
		methods:    make(map[methodKey]*Entry),
		interfaces: make(map[events.Interface]func(any) bool),
	}
}

// MustRegister registers the listener interface iface with one binding per
// method. It panics if iface is empty or already registered, or if a binding
// has no method, no callback, no event name, or reuses a registered event name.
// All bindings must share the same listener interface type.
func (r *Registry) MustRegister(iface events.Interface, bindings ...Binding) {
	if iface.IsZero() {
		fail("listener interface tag is empty")
	}
	if _, ok := r.interfaces[iface]; ok {
		fail("listener interface %s registered twice", iface)
	}
	if len(bindings) == 0 {
		fail("listener interface %s has no methods", iface)
	}

	for _, b := range bindings {
		if b.method == "" {
			fail("%s: binding for %q has no method name", iface, b.wireName)
		}
		if b.invoke == nil {
			fail("%s.%s: nil callback", iface, b.method)
		}
		if b.listener != bindings[0].listener {
			fail("%s.%s: listener type %v differs from %v", iface, b.method, b.listener, bindings[0].listener)
		}
		if _, ok := r.methods[methodKey{iface, b.method}]; ok {
			fail("%s.%s bound twice", iface, b.method)
		}
		e := r.add(iface.Package, b)
		e.Interface = iface
		e.Method = b.method
		e.invoke = b.invoke
		r.methods[methodKey{iface, b.method}] = e
	}
	r.interfaces[iface] = bindings[0].implements
}

// MustRegisterInternal registers events that are decoded but never
// dispatched, such as the channel information heartbeat.
func (r *Registry) MustRegisterInternal(bindings ...Binding) {
	for _, b := range bindings {
		r.add(events.PackageInternal, b)
	}
}

// MustRegisterAdapter makes the decoder pass lines named wireName through a.
// The wire name must already be registered and may have at most one adapter.
func (r *Registry) MustRegisterAdapter(wireName string, a Adapter) {
	e, ok := r.lookup(wireName)
	if !ok {
		fail("adapter for unregistered event %q", wireName)
	}
	if e.adapter != nil {
		fail("event %q already has an adapter", wireName)
	}
	if a.decode == nil {
		fail("adapter for %q is empty", wireName)
	}
	e.adapter = &a
	e.Adapted = true
}

func (r *Registry) add(pkg events.Package, b Binding) *Entry {
	if b.newEvent == nil || b.wireName == "" {
		fail("binding %q has no event name", b.method)
	}
	simple := b.wireName + constants.EventSuffix
	if q, ok := r.simple[simple]; ok {
		fail("event name %q already registered as %s", b.wireName, q)
	}
	e := &Entry{
		WireName:      b.wireName,
		SimpleName:    simple,
		QualifiedName: string(pkg) + "." + simple,
		newEvent:      b.newEvent,
	}
	r.simple[simple] = e.QualifiedName
	r.entries[e.QualifiedName] = e
	return e
}

// lookup resolves a wire name by simple name, then by qualified name.
func (r *Registry) lookup(wireName string) (*Entry, bool) {
	name := wireName + constants.EventSuffix
	if q, ok := r.simple[name]; ok {
		return r.entries[q], true
	}
	e, ok := r.entries[name]
	return e, ok
}

// Lookup returns the entry for a wire name.
func (r *Registry) Lookup(wireName string) (Entry, bool) {
	e, ok := r.lookup(wireName)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns every registered entry ordered by qualified name.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName < out[j].QualifiedName
	})
	return out
}

// Implements reports whether listener satisfies the Go interface bound to iface.
func (r *Registry) Implements(iface events.Interface, listener any) bool {
	check, ok := r.interfaces[iface]
	return ok && check(listener)
}

// Invoke calls method of iface on listener with payload. A missing binding
// or a listener or payload of the wrong type yields a *errors.ConsistencyError.
func (r *Registry) Invoke(iface events.Interface, method string, listener any, payload events.Event) error {
	e, ok := r.methods[methodKey{iface, method}]
	if !ok {
		return errors.NewConsistencyError(iface.String(), method, "no such binding")
	}
	if msg := e.invoke(listener, payload); msg != "" {
		return errors.NewConsistencyError(iface.String(), method, msg)
	}
	return nil
}

func fail(format string, args ...any) {
	panic(errors.NewConfigError("registry", fmt.Sprintf(format, args...), nil))
}
