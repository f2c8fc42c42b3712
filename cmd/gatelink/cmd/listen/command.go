// Package listen provides the listen command, which streams gateway events
// to stdout and optionally relays them to WebSocket clients.
package listen

import (
	"context"
	"io"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/agentstation/gatelink"
	"github.com/agentstation/gatelink/internal/appcontext"
	"github.com/agentstation/gatelink/internal/cmd/output"
	"github.com/agentstation/gatelink/internal/cmd/serve"
	"github.com/agentstation/gatelink/internal/relay"
	"github.com/agentstation/gatelink/pkg/constants"
	"github.com/agentstation/gatelink/pkg/errors"
	"github.com/agentstation/gatelink/pkg/events"
)

// Flags holds the listen command flags.
type Flags struct {
	Relay string
}

// NewCommand creates the listen command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:   "listen [package...]",
		Short: "Stream gateway events until interrupted",
		Long: `Listen opens a session on the gateway, subscribes to the given event
packages (all of them when none are named) and writes every event it
receives to stdout. The session is closed on SIGINT or SIGTERM.

Packages: telephony, routing, eventSummary, users, comlog, callCenterAgent,
maintenance, pbxManagement.`,
		Example: `  gatelink listen                           # All packages
  gatelink listen telephony routing         # Calls and routing only
  gatelink listen -o json | jq .event       # One JSON object per line
  gatelink listen --relay :8090             # Also relay to ws://host:8090/ws`,
		ValidArgs: packageNames(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs := make([]events.Package, len(args))
			for i, a := range args {
				pkgs[i] = events.Package(a)
			}
			return Run(cmd.Context(), app, flags, pkgs, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.Relay, "relay", "", "also relay events to WebSocket clients on this address (e.g. :8090)")
	return cmd
}

func packageNames() []string {
	pkgs := events.Packages()
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = string(p)
	}
	return names
}

// Run streams events of pkgs to out until ctx is done, the gateway ends
// the session or the event channel gives up.
func Run(ctx context.Context, app appcontext.Interface, flags *Flags, pkgs []events.Package, out io.Writer) error {
	logger := app.Logger()
	for _, p := range pkgs {
		if !slices.Contains(events.Packages(), p) {
			return errors.NewValidationError("package", p, "unknown event package")
		}
	}

	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}
	if format == "" {
		format = output.DetectFormat("")
	}
	writer := output.NewEventWriter(out, format)

	ctx, cancel := context.WithCancel(ctx)
	var wg conc.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	sinks := []func(events.Event){func(ev events.Event) {
		if err := writer.Write(ev); err != nil {
			logger.Warn().Err(err).Str("event", ev.EventName()).Msg("Failed to write event")
		}
	}}

	if flags.Relay != "" {
		ln, err := serve.Listen(flags.Relay)
		if err != nil {
			return err
		}
		hub := relay.NewHub(logger)
		wg.Go(func() { hub.Run(ctx) })

		mux := http.NewServeMux()
		mux.Handle("/ws", relay.Handler(hub))
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		wg.Go(func() {
			if err := serve.Run(ctx, srv, ln, "event relay", os.Stderr, logger); err != nil {
				logger.Error().Err(err).Msg("Relay server failed")
				cancel()
			}
		})
		sinks = append(sinks, hub.BroadcastEvent)
	}

	client, err := app.Client()
	if err != nil {
		return err
	}
	session, err := client.Open(ctx)
	if err != nil {
		return err
	}
	defer closeSession(session, app)

	listener := relay.NewFuncListener(sinks...)
	sub := events.NewSubscription(listener.SubscriptionOptions(pkgs...)...)
	if err := session.ListenEvents(ctx, sub); err != nil {
		// Interrupted before the gateway confirmed the channel.
		if errors.IsCanceled(err) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	logger.Info().
		Str("subscription", session.SubscriptionID()).
		Strs("packages", packageStrings(sub.Packages())).
		Msg("Listening for events")

	select {
	case <-ctx.Done():
	case <-session.KeepAliveDone():
		logger.Warn().Msg("Gateway session expired")
		return errors.ErrSessionClosed
	case <-session.ChannelDone():
		logger.Warn().Msg("Event channel terminated")
		return errors.ErrChannelClosed
	}
	return nil
}

func closeSession(session *gatelink.Session, app appcontext.Interface) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := session.Close(ctx); err != nil {
		app.Logger().Warn().Err(err).Msg("Failed to close session")
	}
}

func packageStrings(pkgs []events.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = string(p)
	}
	return out
}
