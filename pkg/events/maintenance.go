package events

// LinkEvent is the common shape of link up/down notifications.
type LinkEvent struct {
	NodeID string `json:"nodeId"`
}

// OnCtiLinkDownEvent reports a lost CTI link to a node.
type OnCtiLinkDownEvent LinkEvent

// EventName implements Event.
func (*OnCtiLinkDownEvent) EventName() string { return "OnCtiLinkDown" }

// OnCtiLinkUpEvent reports a restored CTI link to a node.
type OnCtiLinkUpEvent LinkEvent

// EventName implements Event.
func (*OnCtiLinkUpEvent) EventName() string { return "OnCtiLinkUp" }

// OnPbxLinkDownEvent reports a lost link to a PBX node.
type OnPbxLinkDownEvent LinkEvent

// EventName implements Event.
func (*OnPbxLinkDownEvent) EventName() string { return "OnPbxLinkDown" }

// OnPbxLinkUpEvent reports a restored link to a PBX node.
type OnPbxLinkUpEvent LinkEvent

// EventName implements Event.
func (*OnPbxLinkUpEvent) EventName() string { return "OnPbxLinkUp" }

// OnPbxLoadedEvent reports a PBX node whose configuration finished loading.
type OnPbxLoadedEvent LinkEvent

// EventName implements Event.
func (*OnPbxLoadedEvent) EventName() string { return "OnPbxLoaded" }

// MaintenanceListener receives events of the maintenance package.
type MaintenanceListener interface {
	OnCtiLinkDown(*OnCtiLinkDownEvent)
	OnCtiLinkUp(*OnCtiLinkUpEvent)
	OnPbxLinkDown(*OnPbxLinkDownEvent)
	OnPbxLinkUp(*OnPbxLinkUpEvent)
	OnPbxLoaded(*OnPbxLoadedEvent)
}

// PbxObjectEvent is the common shape of PBX object notifications.
type PbxObjectEvent struct {
	NodeID         string `json:"nodeId"`
	ObjectName     string `json:"objectName"`
	ObjectID       string `json:"objectId"`
	FatherObjectID string `json:"fatherObjectId,omitempty"`
}

// OnPbxObjectInstanceCreatedEvent reports a created PBX object.
type OnPbxObjectInstanceCreatedEvent PbxObjectEvent

// EventName implements Event.
func (*OnPbxObjectInstanceCreatedEvent) EventName() string { return "OnPbxObjectInstanceCreated" }

// OnPbxObjectInstanceDeletedEvent reports a deleted PBX object.
type OnPbxObjectInstanceDeletedEvent PbxObjectEvent

// EventName implements Event.
func (*OnPbxObjectInstanceDeletedEvent) EventName() string { return "OnPbxObjectInstanceDeleted" }

// OnPbxObjectInstanceModifiedEvent reports a modified PBX object.
type OnPbxObjectInstanceModifiedEvent PbxObjectEvent

// EventName implements Event.
func (*OnPbxObjectInstanceModifiedEvent) EventName() string { return "OnPbxObjectInstanceModified" }

// PbxManagementListener receives events of the pbxManagement package.
type PbxManagementListener interface {
	OnPbxObjectInstanceCreated(*OnPbxObjectInstanceCreatedEvent)
	OnPbxObjectInstanceDeleted(*OnPbxObjectInstanceDeletedEvent)
	OnPbxObjectInstanceModified(*OnPbxObjectInstanceModifiedEvent)
}
