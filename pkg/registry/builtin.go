package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/agentstation/gatelink/pkg/events"
)

// NewDefault returns a registry holding every built-in listener interface,
// the internal channel events and the built-in adapters.
func NewDefault() *Registry {
	r := New()
	RegisterBuiltins(r)
	return r
}

// RegisterBuiltins adds the built-in catalog to r.
func RegisterBuiltins(r *Registry) {
	r.MustRegister(events.TelephonyInterface,
		On("OnCallCreated", events.TelephonyListener.OnCallCreated),
		On("OnCallModified", events.TelephonyListener.OnCallModified),
		On("OnCallRemoved", events.TelephonyListener.OnCallRemoved),
		On("OnTelephonyState", events.TelephonyListener.OnTelephonyState),
		On("OnDeviceStateModified", events.TelephonyListener.OnDeviceStateModified),
	)
	r.MustRegister(events.RoutingInterface,
		On("OnRoutingStateChanged", events.RoutingListener.OnRoutingStateChanged),
	)
	r.MustRegister(events.EventSummaryInterface,
		On("OnEventSummaryUpdated", events.EventSummaryListener.OnEventSummaryUpdated),
	)
	r.MustRegister(events.UsersInterface,
		On("OnUserCreated", events.UsersListener.OnUserCreated),
		On("OnUserDeleted", events.UsersListener.OnUserDeleted),
		On("OnUserInfoChanged", events.UsersListener.OnUserInfoChanged),
	)
	r.MustRegister(events.ComlogInterface,
		On("OnComRecordCreated", events.ComlogListener.OnComRecordCreated),
		On("OnComRecordModified", events.ComlogListener.OnComRecordModified),
		On("OnComRecordsDeleted", events.ComlogListener.OnComRecordsDeleted),
	)
	r.MustRegister(events.CallCenterAgentInterface,
		On("OnOperatorStateChanged", events.CallCenterAgentListener.OnOperatorStateChanged),
		On("OnSupervisorHelpRequested", events.CallCenterAgentListener.OnSupervisorHelpRequested),
		On("OnSupervisorHelpCancelled", events.CallCenterAgentListener.OnSupervisorHelpCancelled),
	)
	r.MustRegister(events.MaintenanceInterface,
		On("OnCtiLinkDown", events.MaintenanceListener.OnCtiLinkDown),
		On("OnCtiLinkUp", events.MaintenanceListener.OnCtiLinkUp),
		On("OnPbxLinkDown", events.MaintenanceListener.OnPbxLinkDown),
		On("OnPbxLinkUp", events.MaintenanceListener.OnPbxLinkUp),
		On("OnPbxLoaded", events.MaintenanceListener.OnPbxLoaded),
	)
	r.MustRegister(events.PbxManagementInterface,
		On("OnPbxObjectInstanceCreated", events.PbxManagementListener.OnPbxObjectInstanceCreated),
		On("OnPbxObjectInstanceDeleted", events.PbxManagementListener.OnPbxObjectInstanceDeleted),
		On("OnPbxObjectInstanceModified", events.PbxManagementListener.OnPbxObjectInstanceModified),
	)

	r.MustRegisterInternal(Internal[events.ChannelInformationEvent]())

	r.MustRegisterAdapter("OnOperatorStateChanged", Adapt(adaptOperatorState))
	r.MustRegisterAdapter("OnEventSummaryUpdated", Adapt(adaptEventSummary))
}

// operatorStateWire is OnOperatorStateChanged as sent by the gateway, where
// withdrawReason is either an index or a label.
type operatorStateWire struct {
	LoginName string `json:"loginName"`
	State     struct {
		MainState      string          `json:"mainState"`
		ProACDDeviceID string          `json:"proAcdDeviceNumber"`
		WithdrawReason json.RawMessage `json:"withdrawReason"`
		Withdrawn      bool            `json:"withdraw"`
	} `json:"state"`
}

func adaptOperatorState(w *operatorStateWire) (events.Event, error) {
	reason, err := flexString(w.State.WithdrawReason)
	if err != nil {
		return nil, fmt.Errorf("withdrawReason: %w", err)
	}
	return &events.OnOperatorStateChangedEvent{
		LoginName: w.LoginName,
		State: events.OperatorState{
			MainState:      w.State.MainState,
			ProACDDeviceID: w.State.ProACDDeviceID,
			WithdrawReason: reason,
			Withdrawn:      w.State.Withdrawn,
		},
	}, nil
}

// eventSummaryWire is OnEventSummaryUpdated as sent by the gateway, where
// counters arrive either as numbers or as numeric strings.
type eventSummaryWire struct {
	LoginName    string `json:"loginName"`
	EventSummary struct {
		MissedCalls      json.RawMessage `json:"missedCalls"`
		VoiceMessages    json.RawMessage `json:"voiceMessages"`
		CallbackRequests json.RawMessage `json:"callbackRequests"`
		Faxes            json.RawMessage `json:"faxes"`
		TextMessages     json.RawMessage `json:"textMessages"`
	} `json:"eventSummary"`
}

func adaptEventSummary(w *eventSummaryWire) (events.Event, error) {
	ev := &events.OnEventSummaryUpdatedEvent{LoginName: w.LoginName}
	counters := []struct {
		name string
		raw  json.RawMessage
		dst  *int
	}{
		{"missedCalls", w.EventSummary.MissedCalls, &ev.EventSummary.MissedCalls},
		{"voiceMessages", w.EventSummary.VoiceMessages, &ev.EventSummary.VoiceMessages},
		{"callbackRequests", w.EventSummary.CallbackRequests, &ev.EventSummary.CallbackRequests},
		{"faxes", w.EventSummary.Faxes, &ev.EventSummary.Faxes},
		{"textMessages", w.EventSummary.TextMessages, &ev.EventSummary.TextMessages},
	}
	for _, c := range counters {
		n, err := flexInt(c.raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.dst = n
	}
	return ev, nil
}

// flexString decodes a JSON string or number into its string form.
func flexString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// flexInt decodes a JSON number or numeric string into an int.
func flexInt(raw json.RawMessage) (int, error) {
	s, err := flexString(raw)
	if err != nil || s == "" {
		return 0, err
	}
	return strconv.Atoi(s)
}
