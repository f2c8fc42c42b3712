// Package serve runs the HTTP servers of the CLI until their context ends.
package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink/internal/cmd/emoji"
	"github.com/agentstation/gatelink/pkg/constants"
)

// Run serves srv on ln until ctx is done, then shuts it down gracefully.
// Status lines go to out; a nil out discards them.
func Run(ctx context.Context, srv *http.Server, ln net.Listener, name string, out io.Writer, logger *zerolog.Logger) error {
	if out == nil {
		out = io.Discard
	}

	logger.Info().
		Str("addr", ln.Addr().String()).
		Str("service", name).
		Msg("Server starting")
	_, _ = fmt.Fprintf(out, "%s Starting %s on %s\n", emoji.Start, name, ln.Addr())

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("%s failed: %w", name, err)
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Str("service", name).Msg("Shutdown signal received")
	_, _ = fmt.Fprintf(out, "%s Shutting down %s...\n", emoji.Stop, name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}
	<-serverErr

	logger.Info().Str("service", name).Msg("Server stopped gracefully")
	_, _ = fmt.Fprintf(out, "%s %s stopped\n", emoji.Success, name)
	return nil
}

// Listen opens a TCP listener on addr. It is separate from Run so callers
// can report the bound address before serving, which matters for ":0".
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}
