// Package mock provides the mock command, which runs an in-process gateway
// emitting synthetic events for local development.
package mock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/agentstation/gatelink/internal/appcontext"
	"github.com/agentstation/gatelink/internal/cmd/emoji"
	"github.com/agentstation/gatelink/internal/cmd/serve"
	"github.com/agentstation/gatelink/internal/gatewaytest"
	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
)

// Flags holds the mock command flags.
type Flags struct {
	Addr     string
	Interval time.Duration
	Token    string
	TTL      time.Duration
}

// NewCommand creates the mock command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a mock gateway that emits synthetic events",
		Long: `Mock serves the gateway REST API and event channel in process and emits
a synthetic call, routing, event summary or operator event on every tick.
Point listen at it with GATELINK_URL.`,
		Example: `  gatelink mock
  gatelink mock --addr :9000 --interval 500ms
  GATELINK_URL=http://localhost:8089/api/ gatelink listen telephony`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), app, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.Addr, "addr", "localhost:8089", "address to serve the mock gateway on")
	cmd.Flags().DurationVar(&flags.Interval, "interval", time.Second, "time between synthetic events")
	cmd.Flags().StringVar(&flags.Token, "token", "", "bearer token clients must present (empty disables auth)")
	cmd.Flags().DurationVar(&flags.TTL, "ttl", constants.DefaultSessionTTL, "session time-to-live reported to clients")
	return cmd
}

// Run serves the mock gateway until ctx is done.
func Run(ctx context.Context, app appcontext.Interface, flags *Flags, out io.Writer) error {
	if flags.Interval <= 0 {
		return errors.NewValidationError("interval", flags.Interval, "must be positive")
	}
	if flags.TTL < time.Second {
		return errors.NewValidationError("ttl", flags.TTL, "must be at least one second")
	}
	logger := app.Logger()

	ln, err := serve.Listen(flags.Addr)
	if err != nil {
		return err
	}

	gw := gatewaytest.New(
		gatewaytest.WithToken(flags.Token),
		gatewaytest.WithTimeToLive(flags.TTL),
		gatewaytest.WithLogger(logger),
	)
	srv := &http.Server{Handler: gw, ReadHeaderTimeout: 10 * time.Second}

	_, _ = fmt.Fprintf(out, "%s GATELINK_URL=http://%s%s\n", emoji.Info, ln.Addr(), gatewaytest.Prefix)

	ctx, cancel := context.WithCancel(ctx)
	var wg conc.WaitGroup
	wg.Go(func() { gw.Run(ctx) })
	wg.Go(func() { gw.Simulate(ctx, flags.Interval) })
	err = serve.Run(ctx, srv, ln, "mock gateway", out, logger)
	cancel()
	wg.Wait()
	return err
}
