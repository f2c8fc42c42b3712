package relay

import (
	"github.com/agentstation/gatelink/pkg/events"
)

// Listener implements every built-in listener interface and hands each
// event to its sinks, in order.
type Listener struct {
	sinks []func(events.Event)
}

// NewListener returns a listener broadcasting to hub.
func NewListener(hub *Hub) *Listener {
	return NewFuncListener(hub.BroadcastEvent)
}

// NewFuncListener returns a listener calling every non-nil sink.
func NewFuncListener(sinks ...func(events.Event)) *Listener {
	l := &Listener{}
	for _, s := range sinks {
		if s != nil {
			l.sinks = append(l.sinks, s)
		}
	}
	return l
}

// SubscriptionOptions registers l for the listener interfaces of pkgs, or
// of every package when pkgs is empty.
func (l *Listener) SubscriptionOptions(pkgs ...events.Package) []events.SubscriptionOption {
	if len(pkgs) == 0 {
		pkgs = events.Packages()
	}
	var opts []events.SubscriptionOption
	for _, iface := range interfaces {
		for _, p := range pkgs {
			if iface.Package == p {
				opts = append(opts, events.WithListener(iface, l))
			}
		}
	}
	return opts
}

var interfaces = []events.Interface{
	events.TelephonyInterface,
	events.RoutingInterface,
	events.EventSummaryInterface,
	events.UsersInterface,
	events.ComlogInterface,
	events.CallCenterAgentInterface,
	events.MaintenanceInterface,
	events.PbxManagementInterface,
}

func (l *Listener) relay(ev events.Event) {
	for _, sink := range l.sinks {
		sink(ev)
	}
}

var (
	_ events.TelephonyListener       = (*Listener)(nil)
	_ events.RoutingListener         = (*Listener)(nil)
	_ events.EventSummaryListener    = (*Listener)(nil)
	_ events.UsersListener           = (*Listener)(nil)
	_ events.ComlogListener          = (*Listener)(nil)
	_ events.CallCenterAgentListener = (*Listener)(nil)
	_ events.MaintenanceListener     = (*Listener)(nil)
	_ events.PbxManagementListener   = (*Listener)(nil)
)

func (l *Listener) OnCallCreated(e *events.OnCallCreatedEvent) {
	l.relay(e)
}

func (l *Listener) OnCallModified(e *events.OnCallModifiedEvent) {
	l.relay(e)
}

func (l *Listener) OnCallRemoved(e *events.OnCallRemovedEvent) {
	l.relay(e)
}

func (l *Listener) OnTelephonyState(e *events.OnTelephonyStateEvent) {
	l.relay(e)
}

func (l *Listener) OnDeviceStateModified(e *events.OnDeviceStateModifiedEvent) {
	l.relay(e)
}

func (l *Listener) OnRoutingStateChanged(e *events.OnRoutingStateChangedEvent) {
	l.relay(e)
}

func (l *Listener) OnEventSummaryUpdated(e *events.OnEventSummaryUpdatedEvent) {
	l.relay(e)
}

func (l *Listener) OnUserCreated(e *events.OnUserCreatedEvent) {
	l.relay(e)
}

func (l *Listener) OnUserDeleted(e *events.OnUserDeletedEvent) {
	l.relay(e)
}

func (l *Listener) OnUserInfoChanged(e *events.OnUserInfoChangedEvent) {
	l.relay(e)
}

func (l *Listener) OnComRecordCreated(e *events.OnComRecordCreatedEvent) {
	l.relay(e)
}

func (l *Listener) OnComRecordModified(e *events.OnComRecordModifiedEvent) {
	l.relay(e)
}

func (l *Listener) OnComRecordsDeleted(e *events.OnComRecordsDeletedEvent) {
	l.relay(e)
}

func (l *Listener) OnOperatorStateChanged(e *events.OnOperatorStateChangedEvent) {
	l.relay(e)
}

func (l *Listener) OnSupervisorHelpRequested(e *events.OnSupervisorHelpRequestedEvent) {
	l.relay(e)
}

func (l *Listener) OnSupervisorHelpCancelled(e *events.OnSupervisorHelpCancelledEvent) {
	l.relay(e)
}

func (l *Listener) OnCtiLinkDown(e *events.OnCtiLinkDownEvent) {
	l.relay(e)
}

func (l *Listener) OnCtiLinkUp(e *events.OnCtiLinkUpEvent) {
	l.relay(e)
}

func (l *Listener) OnPbxLinkDown(e *events.OnPbxLinkDownEvent) {
	l.relay(e)
}

func (l *Listener) OnPbxLinkUp(e *events.OnPbxLinkUpEvent) {
	l.relay(e)
}

func (l *Listener) OnPbxLoaded(e *events.OnPbxLoadedEvent) {
	l.relay(e)
}

func (l *Listener) OnPbxObjectInstanceCreated(e *events.OnPbxObjectInstanceCreatedEvent) {
	l.relay(e)
}

func (l *Listener) OnPbxObjectInstanceDeleted(e *events.OnPbxObjectInstanceDeletedEvent) {
	l.relay(e)
}

func (l *Listener) OnPbxObjectInstanceModified(e *events.OnPbxObjectInstanceModifiedEvent) {
	l.relay(e)
}
