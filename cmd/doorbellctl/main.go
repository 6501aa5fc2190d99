// Doorbellctl controls a networked doorbell over its binary TCP protocol.
//
// It plays, deletes and uploads the stored audio clips, prints to the
// device console and discovers doorbells on the local network.
//
// Usage:
//
//	doorbellctl [command] [flags]
//
// See 'doorbellctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/doorbell/internal/logging"
	"github.com/muurk/doorbell/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "doorbellctl",
	Short: "Doorbell control utility",
	Long: `A command line client for networked doorbells.

Every command opens a fresh TCP connection per frame and retries until the
device acknowledges it. Devices can be named in the config file
(see 'doorbellctl devices') or addressed directly with --device.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("doorbellctl %s\n", version.Full())
	},
}
