package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/control"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
)

// Subscription statuses returned by the gateway.
const (
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

// SubscriptionService implements control.SubscriptionControl.
type SubscriptionService struct {
	api *API
}

var _ control.SubscriptionControl = (*SubscriptionService)(nil)

// Subscriptions returns the subscription surface.
func (a *API) Subscriptions() *SubscriptionService {
	return &SubscriptionService{api: a}
}

type subscriptionResponse struct {
	Status            string `json:"status"`
	SubscriptionID    string `json:"subscriptionId"`
	Message           string `json:"message"`
	PrivatePollingURL string `json:"privatePollingUrl"`
	PublicPollingURL  string `json:"publicPollingUrl"`
}

// Create submits sub. Relative polling URLs are resolved against the base URL.
func (s *SubscriptionService) Create(ctx context.Context, sub *events.Subscription) (control.SubscriptionResult, error) {
	var out subscriptionResponse
	if err := s.api.call(ctx, "create subscription", http.MethodPost, "subscriptions", sub, &out); err != nil {
		return control.SubscriptionResult{}, err
	}

	res := control.SubscriptionResult{
		Accepted: out.Status == StatusAccepted,
		ID:       out.SubscriptionID,
		Message:  out.Message,
	}
	if out.PrivatePollingURL != "" {
		res.PrivatePollingURL = s.api.Resolve(out.PrivatePollingURL)
	}
	if out.PublicPollingURL != "" {
		res.PublicPollingURL = s.api.Resolve(out.PublicPollingURL)
	}
	return res, nil
}

// Delete removes the subscription. It reports false when the gateway did not know it.
func (s *SubscriptionService) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.NewValidationError("id", id, "subscription id is required")
	}
	resp, err := s.api.do(ctx, http.MethodDelete, "subscriptions/"+url.PathEscape(id), nil)
	if err != nil {
		return false, errors.WrapAPI("delete subscription", 0, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		transport.CloseBody(resp)
		return false, nil
	}
	if err := transport.DecodeResponse(resp, "delete subscription", nil); err != nil {
		return false, err
	}
	return true, nil
}
