// Package emoji provides symbol constants for CLI output.
package emoji

// Symbol constants keep status lines consistent across commands.
const (
	// Success marks a completed operation.
	Success = "✓"

	// Error marks a failed operation.
	Error = "✗"

	// Stop marks a shutdown in progress.
	Stop = "■"

	// Start marks a server or stream coming up.
	Start = "▶"

	// Info marks informational messages.
	Info = "i"
)
