// Package appcontext provides the application context interface shared by
// all commands, so command packages depend on an interface rather than on
// the concrete App.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/gatelink"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Client returns the gateway client built from the configuration,
	// creating it lazily. Extra options are applied after the configured ones.
	Client(opts ...gatelink.Option) (*gatelink.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
