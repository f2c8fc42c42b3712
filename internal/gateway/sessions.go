package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/control"
	"github.com/agentstation/gatelink/pkg/errors"
)

// SessionService implements control.SessionControl.
type SessionService struct {
	api             *API
	applicationName string
}

var _ control.SessionControl = (*SessionService)(nil)

// Sessions returns the session surface, identifying the client as applicationName.
func (a *API) Sessions(applicationName string) *SessionService {
	return &SessionService{api: a, applicationName: applicationName}
}

type openSessionRequest struct {
	ApplicationName string `json:"applicationName,omitempty"`
}

type sessionResponse struct {
	TimeToLive     int    `json:"timeToLive"`
	PublicBaseURL  string `json:"publicBaseUrl"`
	PrivateBaseURL string `json:"privateBaseUrl"`
}

// Open opens the session.
func (s *SessionService) Open(ctx context.Context) (control.SessionInfo, error) {
	var out sessionResponse
	err := s.api.call(ctx, "open session", http.MethodPost, "sessions", openSessionRequest{ApplicationName: s.applicationName}, &out)
	if err != nil {
		return control.SessionInfo{}, err
	}
	return control.SessionInfo{
		TimeToLive:     time.Duration(out.TimeToLive) * time.Second,
		PublicBaseURL:  out.PublicBaseURL,
		PrivateBaseURL: out.PrivateBaseURL,
	}, nil
}

// KeepAlive refreshes the session. It reports false when the gateway
// answers 401, 403 or 404, meaning the session no longer exists.
func (s *SessionService) KeepAlive(ctx context.Context) (bool, error) {
	resp, err := s.api.do(ctx, http.MethodPost, "sessions/keepalive", nil)
	if err != nil {
		return false, errors.WrapAPI("keepalive", 0, err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		transport.CloseBody(resp)
		return false, nil
	}
	if err := transport.DecodeResponse(resp, "keepalive", nil); err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the session. A session the gateway already dropped is not an error.
func (s *SessionService) Close(ctx context.Context) error {
	err := s.api.call(ctx, "close session", http.MethodDelete, "sessions", nil, nil)
	var apiErr *errors.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}
