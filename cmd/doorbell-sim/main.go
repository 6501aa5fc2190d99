// Doorbell-sim is a software doorbell speaking the doorbell TCP protocol.
//
// It accepts one frame per connection, acknowledges it and keeps uploaded
// clips in memory, so doorbellctl can be exercised without hardware.
//
// Usage:
//
//	doorbell-sim [flags]
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/doorbell/internal/credentials"
	"github.com/muurk/doorbell/internal/discovery"
	"github.com/muurk/doorbell/internal/logging"
	"github.com/muurk/doorbell/internal/protocol"
	"github.com/muurk/doorbell/internal/simulator"
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

// Flags
var (
	host        string
	port        int
	tokenFile   string
	tokenHex    string
	profileName string
	rejectFirst int
	advertiseID string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "doorbell-sim",
	Short: "Simulated doorbell",
	Long: `A simulated doorbell for testing doorbellctl without hardware.

Each connection carries one frame. Valid frames are acknowledged with the
profile's acknowledgment; refused frames get ERR. With --reject-first the
first frames are refused to exercise client retries.`,
	Example: `  # Checksummed profile on port 8080 with a hex token
  doorbell-sim --port 8080 --token-hex 0102030405060708

  # Legacy profile, refusing the first two frames
  doorbell-sim --profile legacy --reject-first 2

  # Announce as doorbell-bench.local so 'doorbellctl scan' finds it
  doorbell-sim --port 8080 --token-hex 0102030405060708 --advertise bench`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE:         runSimulator,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	flags.IntVar(&port, "port", 80, "TCP port (0 picks a free port)")
	flags.StringVar(&tokenFile, "token", "", "Token file (8 raw bytes or 16 hex characters)")
	flags.StringVar(&tokenHex, "token-hex", "", "Token as 16 hex characters")
	flags.StringVar(&profileName, "profile", protocol.ProfileChecksummed, "Wire profile: checksummed or legacy")
	flags.IntVar(&rejectFirst, "reject-first", 0, "Refuse the first n frames")
	flags.StringVar(&advertiseID, "advertise", "", "Announce over mDNS as doorbell-<id>.local")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func loadToken() (protocol.Token, error) {
	switch {
	case tokenHex != "":
		return protocol.ParseHexToken(tokenHex)
	case tokenFile != "":
		return credentials.NewFileStore(filepath.Dir(tokenFile)).LoadToken(filepath.Base(tokenFile))
	default:
		return protocol.Token{}, fmt.Errorf("the checksummed profile needs --token or --token-hex")
	}
}

func runSimulator(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	profile, err := protocol.ProfileByName(profileName)
	if err != nil {
		return err
	}

	var token protocol.Token
	if profile.Name() == protocol.ProfileChecksummed {
		if token, err = loadToken(); err != nil {
			return err
		}
	}

	srv := simulator.New(simulator.Config{
		Host:        host,
		Port:        port,
		Profile:     profile,
		Token:       token,
		RejectFirst: rejectFirst,
	})
	if err := srv.Listen(); err != nil {
		return err
	}

	if advertiseID != "" {
		adv, err := discovery.Advertise(advertiseID, srv.Port(), nil, []string{
			"profile=" + profile.Name(),
			"version=" + version.Version,
		})
		if err != nil {
			logging.Warn("mDNS announcement failed, continuing without it", zap.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Simulated doorbell on %s (%s profile). Press Ctrl+C to stop.\n", srv.Addr(), profile.Name())
	if err := srv.Start(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d clip(s), played %v\n", srv.Files(), srv.Played())
	return nil
}
