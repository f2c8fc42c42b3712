package events

// RoutingState is the forward and overflow configuration of a user.
type RoutingState struct {
	Forward  string `json:"forward,omitempty"`
	Overflow string `json:"overflow,omitempty"`
	DND      bool   `json:"dnd"`
}

// OnRoutingStateChangedEvent reports a routing configuration change.
type OnRoutingStateChangedEvent struct {
	LoginName    string       `json:"loginName"`
	RoutingState RoutingState `json:"routingState"`
}

// EventName implements Event.
func (*OnRoutingStateChangedEvent) EventName() string { return "OnRoutingStateChanged" }

// RoutingListener receives events of the routing package.
type RoutingListener interface {
	OnRoutingStateChanged(*OnRoutingStateChangedEvent)
}

// EventSummary holds the counters of unread items for a user.
type EventSummary struct {
	MissedCalls      int `json:"missedCalls"`
	VoiceMessages    int `json:"voiceMessages"`
	CallbackRequests int `json:"callbackRequests"`
	Faxes            int `json:"faxes"`
	TextMessages     int `json:"textMessages"`
}

// OnEventSummaryUpdatedEvent reports new unread-item counters.
type OnEventSummaryUpdatedEvent struct {
	LoginName    string       `json:"loginName"`
	EventSummary EventSummary `json:"eventSummary"`
}

// EventName implements Event.
func (*OnEventSummaryUpdatedEvent) EventName() string { return "OnEventSummaryUpdated" }

// EventSummaryListener receives events of the eventSummary package.
type EventSummaryListener interface {
	OnEventSummaryUpdated(*OnEventSummaryUpdatedEvent)
}
