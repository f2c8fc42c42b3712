package events

// Call is the state of a call as reported by telephony events.
type Call struct {
	CallRef      string   `json:"callRef"`
	State        string   `json:"state"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Leg is one device's participation in a call.
type Leg struct {
	DeviceID string `json:"deviceId"`
	State    string `json:"state"`
	Ringing  bool   `json:"ringing,omitempty"`
}

// OnCallCreatedEvent reports a new call for the logged user.
type OnCallCreatedEvent struct {
	LoginName string `json:"loginName"`
	Call      Call   `json:"call"`
	Legs      []Leg  `json:"legs,omitempty"`
}

// EventName implements Event.
func (*OnCallCreatedEvent) EventName() string { return "OnCallCreated" }

// OnCallModifiedEvent reports a change in an existing call.
type OnCallModifiedEvent struct {
	LoginName       string `json:"loginName"`
	PreviousCallRef string `json:"previousCallRef,omitempty"`
	Call            Call   `json:"call"`
	Legs            []Leg  `json:"legs,omitempty"`
}

// EventName implements Event.
func (*OnCallModifiedEvent) EventName() string { return "OnCallModified" }

// OnCallRemovedEvent reports the end of a call.
type OnCallRemovedEvent struct {
	LoginName  string `json:"loginName"`
	CallRef    string `json:"callRef"`
	NewCallRef string `json:"newCallRef,omitempty"`
	Cause      string `json:"cause,omitempty"`
}

// EventName implements Event.
func (*OnCallRemovedEvent) EventName() string { return "OnCallRemoved" }

// OnTelephonyStateEvent carries a full snapshot of the user's calls.
type OnTelephonyStateEvent struct {
	LoginName string `json:"loginName"`
	Calls     []Call `json:"calls"`
}

// EventName implements Event.
func (*OnTelephonyStateEvent) EventName() string { return "OnTelephonyState" }

// OnDeviceStateModifiedEvent reports a device state change.
type OnDeviceStateModifiedEvent struct {
	LoginName string `json:"loginName"`
	DeviceID  string `json:"deviceId"`
	State     string `json:"state"`
}

// EventName implements Event.
func (*OnDeviceStateModifiedEvent) EventName() string { return "OnDeviceStateModified" }

// TelephonyListener receives events of the telephony package.
type TelephonyListener interface {
	OnCallCreated(*OnCallCreatedEvent)
	OnCallModified(*OnCallModifiedEvent)
	OnCallRemoved(*OnCallRemovedEvent)
	OnTelephonyState(*OnTelephonyStateEvent)
	OnDeviceStateModified(*OnDeviceStateModifiedEvent)
}
