// Package events defines the notifications pushed by the telephony gateway,
// the listener interfaces application code implements to receive them, and
// the subscription that selects which of them a session listens to.
//
// Every payload type implements Event. Its EventName is the short name the
// gateway writes in the eventName field of a channel line; the registered
// type name is that short name with the "Event" suffix.
package events

// Event is implemented by every payload delivered on the event channel.
type Event interface {
	EventName() string
}

// Package is an event category, used as the subscription filter name.
type Package string

// Event packages known to the gateway.
const (
	PackageTelephony       Package = "telephony"
	PackageRouting         Package = "routing"
	PackageEventSummary    Package = "eventSummary"
	PackageUsers           Package = "users"
	PackageComlog          Package = "comlog"
	PackageCallCenterAgent Package = "callCenterAgent"
	PackageMaintenance     Package = "maintenance"
	PackagePbxManagement   Package = "pbxManagement"

	// PackageInternal holds channel-level events that have no listener interface.
	PackageInternal Package = "internal"
)

// Packages returns every package an application can subscribe to.
func Packages() []Package {
	return []Package{
		PackageTelephony,
		PackageRouting,
		PackageEventSummary,
		PackageUsers,
		PackageComlog,
		PackageCallCenterAgent,
		PackageMaintenance,
		PackagePbxManagement,
	}
}

// Interface tags a listener interface. The zero value means "no interface".
type Interface struct {
	Package Package
	Name    string
}

// IsZero reports whether i names no interface.
func (i Interface) IsZero() bool {
	return i.Name == ""
}

// String returns the qualified interface name, e.g. "telephony.TelephonyListener".
func (i Interface) String() string {
	if i.IsZero() {
		return ""
	}
	return string(i.Package) + "." + i.Name
}

// Listener interface tags.
var (
	TelephonyInterface       = Interface{Package: PackageTelephony, Name: "TelephonyListener"}
	RoutingInterface         = Interface{Package: PackageRouting, Name: "RoutingListener"}
	EventSummaryInterface    = Interface{Package: PackageEventSummary, Name: "EventSummaryListener"}
	UsersInterface           = Interface{Package: PackageUsers, Name: "UsersListener"}
	ComlogInterface          = Interface{Package: PackageComlog, Name: "ComlogListener"}
	CallCenterAgentInterface = Interface{Package: PackageCallCenterAgent, Name: "CallCenterAgentListener"}
	MaintenanceInterface     = Interface{Package: PackageMaintenance, Name: "MaintenanceListener"}
	PbxManagementInterface   = Interface{Package: PackagePbxManagement, Name: "PbxManagementListener"}
)

// ChannelInformationEvent is the first event written on every new channel
// stream. It confirms the channel is live and doubles as a heartbeat.
type ChannelInformationEvent struct {
	Lifetime int    `json:"lifetime,omitempty"`
	Message  string `json:"message,omitempty"`
}

// EventName implements Event.
func (*ChannelInformationEvent) EventName() string { return "OnChannelInformation" }
