package transport

import (
	"net/http"
	"strings"

	"github.com/agentstation/gatelink/pkg/errors"
)

// Authenticator applies a pre-obtained gateway credential to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, credential string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, credential string) {
	req.Header.Set("Authorization", "Bearer "+credential)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, credential string) {
	req.Header.Set(a.Header, credential)
}

// CookieAuth sends the credential as a session cookie, the way the gateway
// expects it after a browser-style login.
type CookieAuth struct {
	Name string
}

// Apply implements the Authenticator interface for CookieAuth.
func (a *CookieAuth) Apply(req *http.Request, credential string) {
	req.AddCookie(&http.Cookie{Name: a.Name, Value: credential})
}

// QueryAuth implements credential as query parameter authentication.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, credential string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, credential)
	req.URL.RawQuery = query.Encode()
}

// ParseAuthenticator builds an Authenticator from a scheme string:
// "none", "bearer", "header:<name>", "cookie:<name>" or "query:<param>".
func ParseAuthenticator(scheme string) (Authenticator, error) {
	kind, arg, _ := strings.Cut(scheme, ":")
	switch strings.ToLower(kind) {
	case "", "none":
		return &NoAuth{}, nil
	case "bearer":
		return &BearerAuth{}, nil
	case "header", "cookie", "query":
		if arg == "" {
			return nil, errors.NewValidationError("auth", scheme, kind+" authentication needs a name, e.g. "+kind+":X-Token")
		}
	default:
		return nil, errors.NewValidationError("auth", scheme, "unknown authentication scheme")
	}

	switch strings.ToLower(kind) {
	case "header":
		return &HeaderAuth{Header: arg}, nil
	case "cookie":
		return &CookieAuth{Name: arg}, nil
	default:
		return &QueryAuth{Param: arg}, nil
	}
}
