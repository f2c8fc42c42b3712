// Package events provides the events command, which lists the events the
// client understands.
package events

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/gatelink/internal/appcontext"
	"github.com/agentstation/gatelink/internal/cmd/output"
	"github.com/agentstation/gatelink/pkg/events"
	"github.com/agentstation/gatelink/pkg/registry"
)

// NewCommand creates the events command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "events [package]",
		Aliases: []string{"catalog"},
		Short:   "List the events of the default registry",
		Long: `Events lists every event the client can decode: its package, wire name,
listener interface and method. Wide output adds the qualified name and
whether the event goes through an adapter.`,
		Example: `  gatelink events
  gatelink events telephony
  gatelink events -o wide
  gatelink events -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(app.OutputFormat())
			if err != nil {
				return err
			}

			entries := registry.NewDefault().Entries()
			if len(args) == 1 {
				entries = filterPackage(entries, events.Package(args[0]))
			}
			app.Logger().Debug().Int("events", len(entries)).Msg("Listing events")

			formatter := output.NewFormatter(output.DetectFormat(string(format)))
			return formatter.Format(cmd.OutOrStdout(), output.CatalogData(entries))
		},
	}
}

func filterPackage(entries []registry.Entry, pkg events.Package) []registry.Entry {
	var out []registry.Entry
	for _, e := range entries {
		if e.Interface.Package == pkg || (pkg == events.PackageInternal && e.Interface.IsZero()) {
			out = append(out, e)
		}
	}
	return out
}
