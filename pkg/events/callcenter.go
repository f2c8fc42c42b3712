package events

// OperatorState is the state of a call center agent.
type OperatorState struct {
	MainState      string `json:"mainState"`
	ProACDDeviceID string `json:"proAcdDeviceNumber,omitempty"`
	WithdrawReason string `json:"withdrawReason,omitempty"`
	Withdrawn      bool   `json:"withdraw"`
}

// OnOperatorStateChangedEvent reports a change of agent state. The withdraw
// reason is always a label here, whatever shape the gateway sent it in.
type OnOperatorStateChangedEvent struct {
	LoginName string        `json:"loginName"`
	State     OperatorState `json:"state"`
}

// EventName implements Event.
func (*OnOperatorStateChangedEvent) EventName() string { return "OnOperatorStateChanged" }

// OnSupervisorHelpRequestedEvent reports an agent asking for supervisor help.
type OnSupervisorHelpRequestedEvent struct {
	LoginName   string `json:"loginName"`
	AgentNumber string `json:"agentNumber"`
}

// EventName implements Event.
func (*OnSupervisorHelpRequestedEvent) EventName() string { return "OnSupervisorHelpRequested" }

// OnSupervisorHelpCancelledEvent reports a cancelled help request.
type OnSupervisorHelpCancelledEvent struct {
	LoginName   string `json:"loginName"`
	AgentNumber string `json:"agentNumber"`
}

// EventName implements Event.
func (*OnSupervisorHelpCancelledEvent) EventName() string { return "OnSupervisorHelpCancelled" }

// CallCenterAgentListener receives events of the callCenterAgent package.
type CallCenterAgentListener interface {
	OnOperatorStateChanged(*OnOperatorStateChangedEvent)
	OnSupervisorHelpRequested(*OnSupervisorHelpRequestedEvent)
	OnSupervisorHelpCancelled(*OnSupervisorHelpCancelledEvent)
}
