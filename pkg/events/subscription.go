package events

import (
	"encoding/json"
	"slices"

	"github.com/agentstation/gatelink/pkg/constants"
)

// Selector restricts a subscription to a set of event packages, optionally
// for a set of user or node ids only.
type Selector struct {
	IDs   []string  `json:"ids,omitempty"`
	Names []Package `json:"names,omitempty"`
}

// Filter is the set of selectors of a subscription.
type Filter struct {
	Selectors []Selector `json:"selectors"`
}

// Subscription describes which events a session listens to and who
// receives them. Build one with NewSubscription.
type Subscription struct {
	Filter  Filter
	Version string
	// Timeout is the gateway-side subscription timeout in seconds.
	Timeout int

	ids       []string
	packages  []Package
	listeners map[Interface][]any
	order     []Interface
}

// SubscriptionOption configures a Subscription.
type SubscriptionOption func(*Subscription)

// NewSubscription returns a subscription with version "1.0", a 10 second
// timeout and the given options applied. The filter selects every package
// that has a listener or was named with WithPackages.
func NewSubscription(opts ...SubscriptionOption) *Subscription {
	s := &Subscription{
		Version:   constants.SubscriptionVersion,
		Timeout:   constants.DefaultSubscriptionTimeout,
		listeners: make(map[Interface][]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Filter = Filter{Selectors: []Selector{{IDs: s.ids, Names: s.packages}}}
	return s
}

// WithListener adds a listener for iface. The listener must implement the
// Go interface bound to iface in the registry in use.
func WithListener(iface Interface, listener any) SubscriptionOption {
	return func(s *Subscription) {
		if iface.IsZero() || listener == nil {
			return
		}
		if _, ok := s.listeners[iface]; !ok {
			s.order = append(s.order, iface)
		}
		s.listeners[iface] = append(s.listeners[iface], listener)
		s.addPackage(iface.Package)
	}
}

// WithPackages subscribes to packages without attaching a listener.
func WithPackages(pkgs ...Package) SubscriptionOption {
	return func(s *Subscription) {
		for _, p := range pkgs {
			s.addPackage(p)
		}
	}
}

// WithIDs restricts the subscription to the given user login names or node ids.
func WithIDs(ids ...string) SubscriptionOption {
	return func(s *Subscription) {
		s.ids = append(s.ids, ids...)
	}
}

// WithVersion overrides the subscription format version.
func WithVersion(version string) SubscriptionOption {
	return func(s *Subscription) {
		s.Version = version
	}
}

// WithTimeout sets the gateway-side subscription timeout in seconds.
func WithTimeout(seconds int) SubscriptionOption {
	return func(s *Subscription) {
		if seconds > 0 {
			s.Timeout = seconds
		}
	}
}

// WithTelephonyListener adds a TelephonyListener.
func WithTelephonyListener(l TelephonyListener) SubscriptionOption {
	return WithListener(TelephonyInterface, l)
}

// WithRoutingListener adds a RoutingListener.
func WithRoutingListener(l RoutingListener) SubscriptionOption {
	return WithListener(RoutingInterface, l)
}

// WithEventSummaryListener adds an EventSummaryListener.
func WithEventSummaryListener(l EventSummaryListener) SubscriptionOption {
	return WithListener(EventSummaryInterface, l)
}

// WithUsersListener adds a UsersListener.
func WithUsersListener(l UsersListener) SubscriptionOption {
	return WithListener(UsersInterface, l)
}

// WithComlogListener adds a ComlogListener.
func WithComlogListener(l ComlogListener) SubscriptionOption {
	return WithListener(ComlogInterface, l)
}

// WithCallCenterAgentListener adds a CallCenterAgentListener.
func WithCallCenterAgentListener(l CallCenterAgentListener) SubscriptionOption {
	return WithListener(CallCenterAgentInterface, l)
}

// WithMaintenanceListener adds a MaintenanceListener.
func WithMaintenanceListener(l MaintenanceListener) SubscriptionOption {
	return WithListener(MaintenanceInterface, l)
}

// WithPbxManagementListener adds a PbxManagementListener.
func WithPbxManagementListener(l PbxManagementListener) SubscriptionOption {
	return WithListener(PbxManagementInterface, l)
}

// Listeners returns the listeners registered for iface, in registration order.
func (s *Subscription) Listeners(iface Interface) []any {
	return s.listeners[iface]
}

// Interfaces returns the interfaces that have at least one listener.
func (s *Subscription) Interfaces() []Interface {
	return slices.Clone(s.order)
}

// Packages returns the packages selected by the filter.
func (s *Subscription) Packages() []Package {
	return slices.Clone(s.packages)
}

func (s *Subscription) addPackage(p Package) {
	if p == "" || p == PackageInternal || slices.Contains(s.packages, p) {
		return
	}
	s.packages = append(s.packages, p)
}

// MarshalJSON encodes the subscription request body sent to the gateway.
func (s *Subscription) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Filter  Filter `json:"filter"`
		Version string `json:"version"`
		Timeout int    `json:"timeout"`
	}{s.Filter, s.Version, s.Timeout})
}
