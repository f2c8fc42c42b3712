// Package gateway implements the session and subscription control
// surfaces over the gateway REST API.
package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/gatelink/internal/transport"
	"github.com/agentstation/gatelink/pkg/errors"
)

// API is a REST client rooted at the gateway base URL,
// e.g. https://gw.example.com/api/rest/1.0/.
type API struct {
	base *url.URL
	doer transport.Doer
}

// NewAPI returns an API for baseURL sending requests through doer.
func NewAPI(baseURL string, doer transport.Doer) (*API, error) {
	if baseURL == "" {
		return nil, errors.NewValidationError("url", baseURL, "gateway base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.NewValidationError("url", baseURL, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewValidationError("url", baseURL, "scheme must be http or https")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if doer == nil {
		return nil, errors.NewValidationError("doer", nil, "HTTP doer is required")
	}
	return &API{base: u, doer: doer}, nil
}

// BaseURL returns the base URL with a trailing slash.
func (a *API) BaseURL() string {
	return a.base.String()
}

// Resolve resolves ref against the base URL. Absolute refs are returned unchanged.
func (a *API) Resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return a.base.ResolveReference(u).String()
}

// do sends a JSON request to path relative to the base URL.
func (a *API) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	req, err := transport.NewJSONRequest(ctx, method, a.Resolve(path), body)
	if err != nil {
		return nil, err
	}
	return a.doer.Do(req)
}

// call sends a request and decodes a 2xx JSON answer into target.
func (a *API) call(ctx context.Context, operation, method, path string, body, target any) error {
	resp, err := a.do(ctx, method, path, body)
	if err != nil {
		return errors.WrapAPI(operation, 0, err)
	}
	return transport.DecodeResponse(resp, operation, target)
}
