package events

// OnUserCreatedEvent reports a user added to the directory.
type OnUserCreatedEvent struct {
	LoginName string `json:"loginName"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// EventName implements Event.
func (*OnUserCreatedEvent) EventName() string { return "OnUserCreated" }

// OnUserDeletedEvent reports a user removed from the directory.
type OnUserDeletedEvent struct {
	LoginName string `json:"loginName"`
}

// EventName implements Event.
func (*OnUserDeletedEvent) EventName() string { return "OnUserDeleted" }

// OnUserInfoChangedEvent reports modified user attributes.
type OnUserInfoChangedEvent struct {
	LoginName string   `json:"loginName"`
	Changes   []string `json:"changes,omitempty"`
}

// EventName implements Event.
func (*OnUserInfoChangedEvent) EventName() string { return "OnUserInfoChanged" }

// UsersListener receives events of the users package.
type UsersListener interface {
	OnUserCreated(*OnUserCreatedEvent)
	OnUserDeleted(*OnUserDeletedEvent)
	OnUserInfoChanged(*OnUserInfoChangedEvent)
}

// ComRecord is one communication log entry.
type ComRecord struct {
	RecordID  int64  `json:"recordId"`
	CallRef   string `json:"callRef,omitempty"`
	Direction string `json:"direction,omitempty"`
	Unread    bool   `json:"unread"`
}

// OnComRecordCreatedEvent reports a new communication log entry.
type OnComRecordCreatedEvent struct {
	LoginName string    `json:"loginName"`
	Record    ComRecord `json:"record"`
}

// EventName implements Event.
func (*OnComRecordCreatedEvent) EventName() string { return "OnComRecordCreated" }

// OnComRecordModifiedEvent reports a modified communication log entry.
type OnComRecordModifiedEvent struct {
	LoginName string    `json:"loginName"`
	Record    ComRecord `json:"record"`
}

// EventName implements Event.
func (*OnComRecordModifiedEvent) EventName() string { return "OnComRecordModified" }

// OnComRecordsDeletedEvent reports deleted communication log entries.
type OnComRecordsDeletedEvent struct {
	LoginName string  `json:"loginName"`
	RecordIDs []int64 `json:"recordIds"`
}

// EventName implements Event.
func (*OnComRecordsDeletedEvent) EventName() string { return "OnComRecordsDeleted" }

// ComlogListener receives events of the comlog package.
type ComlogListener interface {
	OnComRecordCreated(*OnComRecordCreatedEvent)
	OnComRecordModified(*OnComRecordModifiedEvent)
	OnComRecordsDeleted(*OnComRecordsDeletedEvent)
}
