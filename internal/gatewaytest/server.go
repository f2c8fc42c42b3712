package gatewaytest

import (
	"context"
	"net/http/httptest"
	"testing"
)

// Server is a Gateway served by an httptest.Server for the life of a test.
type Server struct {
	*Gateway
	*httptest.Server
}

// NewServer starts a gateway for t. It is shut down by t's cleanup.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	g := New(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Run(ctx)
	}()

	srv := httptest.NewServer(g)
	t.Cleanup(func() {
		// Ending the broadcaster first releases the open channel streams,
		// which Close would otherwise wait for.
		cancel()
		<-done
		srv.Close()
	})
	return &Server{Gateway: g, Server: srv}
}

// BaseURL returns the REST API root to pass to the client.
func (s *Server) BaseURL() string {
	return s.URL + Prefix
}
