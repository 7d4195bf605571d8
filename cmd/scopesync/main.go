// ScopeSync Core - parameter synchronisation service
//
// This is the main entry point for the ScopeSync service. It keeps a set of
// named parameters in step between a Scope DSP device (OSC), a plugin host,
// MQTT and HTTP control surfaces, and MIDI controllers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scopesync",
		Short:         "ScopeSync parameter synchronisation service",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default $SCOPESYNC_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(newServeCmd())
	root.AddCommand(newParamsCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// getConfigPath returns the configuration file path: the --config flag,
// then SCOPESYNC_CONFIG, then the default.
func getConfigPath(cmd *cobra.Command) string {
	if cmd != nil {
		if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
			return path
		}
	}
	if path := os.Getenv("SCOPESYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
