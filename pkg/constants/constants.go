// Package constants provides shared constants used throughout the gatelink codebase.
// This includes timeouts, queue sizes, wire format names and other values
// that should be consistent across the runtime and the CLI.
package constants

import "time"

// Timeout constants define various timeout durations used in the runtime
const (
	// DefaultHTTPTimeout is the timeout for request/response calls to the gateway REST API.
	// The event channel uses a client without a timeout since its body never ends.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultReadyTimeout bounds how long ListenEvents waits for the first
	// channel information event
	DefaultReadyTimeout = 30 * time.Second

	// DefaultRetryInterval is the delay the default monitoring policy asks for
	// after a transient failure
	DefaultRetryInterval = 2 * time.Second

	// DefaultSessionTTL is used as keep-alive period when the gateway reports no time-to-live
	DefaultSessionTTL = 60 * time.Second

	// ShutdownTimeout bounds session teardown in the CLI
	ShutdownTimeout = 5 * time.Second

	// DefaultSubscriptionTimeout is the gateway-side subscription timeout, in seconds
	DefaultSubscriptionTimeout = 10
)

// Reconnect backoff constants for consecutive unproductive event channel streams
const (
	// ReconnectInitialDelay is the first delay after an empty stream
	ReconnectInitialDelay = 250 * time.Millisecond

	// ReconnectMaxDelay caps the reconnect delay
	ReconnectMaxDelay = 30 * time.Second

	// ReconnectMultiplier is the growth factor between attempts
	ReconnectMultiplier = 2.0
)

// Limit constants define various limits and capacities
const (
	// DefaultQueueCapacity is the capacity of the queue between the chunk listener and dispatcher
	DefaultQueueCapacity = 1000

	// MaxEventLineSize is the largest single event line accepted from the channel (1 MiB)
	MaxEventLineSize = 1 << 20

	// InitialLineBufferSize is the starting size of the channel line buffer
	InitialLineBufferSize = 64 * 1024

	// RelayBufferSize is the per-client buffer of the websocket relay
	RelayBufferSize = 256
)

// Wire format constants
const (
	// EventNameField is the discriminator carried by every event line
	EventNameField = "eventName"

	// EventNameFallbackField is accepted when EventNameField is missing
	EventNameFallbackField = "event"

	// EventSuffix is appended to the wire discriminator to form the registered type name
	EventSuffix = "Event"

	// SubscriptionVersion is the subscription request format version
	SubscriptionVersion = "1.0"

	// DefaultApplicationName identifies the client when opening a session
	DefaultApplicationName = "gatelink"
)

// Format constants
const (
	// TimeFormatISO8601 is the ISO 8601 time format
	TimeFormatISO8601 = time.RFC3339

	// TimeFormatLog is the format used in log output
	TimeFormatLog = "2006-01-02 15:04:05.000"

	// TimeFormatClock is the time of day shown next to streamed events
	TimeFormatClock = "15:04:05.000"
)
