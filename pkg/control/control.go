// Package control defines the gateway operations the runtime consumes:
// opening and refreshing a session, and managing event subscriptions.
package control

import (
	"context"
	"time"

	"github.com/agentstation/gatelink/pkg/events"
)

// SessionInfo describes an opened session.
type SessionInfo struct {
	// TimeToLive is how long the gateway keeps an idle session.
	TimeToLive     time.Duration
	PublicBaseURL  string
	PrivateBaseURL string
}

// SessionControl opens, refreshes and closes the gateway session.
type SessionControl interface {
	Open(ctx context.Context) (SessionInfo, error)
	// KeepAlive refreshes the session. It returns false without error when
	// the gateway no longer knows the session.
	KeepAlive(ctx context.Context) (bool, error)
	Close(ctx context.Context) error
}

// SubscriptionResult is the gateway answer to a subscription request.
type SubscriptionResult struct {
	Accepted          bool
	ID                string
	PrivatePollingURL string
	PublicPollingURL  string
	Message           string
}

// PollingURL returns the private polling URL when private is true and the
// public one otherwise, falling back to whichever is set.
func (r SubscriptionResult) PollingURL(private bool) string {
	if (private && r.PrivatePollingURL != "") || r.PublicPollingURL == "" {
		return r.PrivatePollingURL
	}
	return r.PublicPollingURL
}

// SubscriptionControl creates and deletes event subscriptions.
type SubscriptionControl interface {
	Create(ctx context.Context, sub *events.Subscription) (SubscriptionResult, error)
	// Delete returns false when the subscription was already gone.
	Delete(ctx context.Context, id string) (bool, error)
}
