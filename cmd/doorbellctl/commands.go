package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/doorbell/internal/audio"
	"github.com/muurk/doorbell/internal/config"
	"github.com/muurk/doorbell/internal/device"
	"github.com/muurk/doorbell/internal/discovery"
	"github.com/muurk/doorbell/internal/protocol"
	"github.com/muurk/doorbell/internal/transport"
	"github.com/muurk/doorbell/internal/ui"
)

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(uploadBatchCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(devicesCmd)
}

// reportFailure prints a failure box and returns err for the exit status
func reportFailure(p *ui.Printer, title string, err error) error {
	if errors.Is(err, ui.ErrInterrupted) {
		return err
	}
	hints := transport.GetTroubleshootingHint(err)
	switch {
	case protocol.IsFatal(err):
		hints = []string{"The command was not sent; fix the arguments and try again"}
	case transport.IsExhausted(err):
		hints = append(hints, "Use --max-attempts 0 to retry until the doorbell answers")
	}
	p.PrintError(title, errors.New(transport.GetShortErrorMessage(err)), hints)
	return err
}

var playCmd = &cobra.Command{
	Use:   "play <file-id>",
	Short: "Play a stored clip",
	Long: `Play the clip stored under file-id (0-255).

The frame is resent until the doorbell acknowledges it, so a lost
acknowledgment can make the clip play twice.`,
	Example: `  doorbellctl play 3
  doorbellctl play 0 --device 192.168.4.69`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseFileID(args[0])
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		if err := s.client.PlayAudio(id); err != nil {
			return reportFailure(p, "Play failed", err)
		}
		s.touch()
		p.PrintSuccess("Clip played", map[string]string{"File": strconv.Itoa(id), "Device": s.Address()})
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file-id>...",
	Short: "Delete stored clips",
	Long:  `Delete one or more stored clips. Ids are deleted in the order given; the first failure stops the rest.`,
	Example: `  doorbellctl delete 3
  doorbellctl delete 0 1 2 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int, len(args))
		for i, arg := range args {
			id, err := parseFileID(arg)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		s, err := openSession()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		for _, id := range ids {
			if err := s.client.DeleteFile(id); err != nil {
				return reportFailure(p, fmt.Sprintf("Delete %d failed", id), err)
			}
			p.Printf("  %s deleted %d\n", ui.SuccessMarker, id)
		}
		s.touch()
		p.PrintSuccess("Clips deleted", map[string]string{"Count": strconv.Itoa(len(ids)), "Device": s.Address()})
		return nil
	},
}

var printCmd = &cobra.Command{
	Use:     "print <text>...",
	Short:   "Print text on the device console",
	Long:    `Send UTF-8 text to the doorbell's diagnostic console. Arguments are joined with spaces.`,
	Example: `  doorbellctl print "hello from the hallway"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		s, err := openSession()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		if err := s.client.PrintString(text); err != nil {
			return reportFailure(p, "Print failed", err)
		}
		s.touch()
		p.PrintSuccess("Text printed", map[string]string{"Bytes": strconv.Itoa(len(text))})
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file-id> <file.wav>",
	Short: "Upload a WAV clip",
	Long: `Upload a WAV file and store it under file-id.

The audio is converted to unsigned 8-bit mono (first channel, high byte of
wider samples) and sent in chunks of 4000 samples. The device is expected
to play 16 kHz audio; other rates are uploaded unchanged with a warning.
Each chunk is followed by the configured pacing delay (pacing_ms).`,
	Example: `  doorbellctl upload 3 chime.wav
  doorbellctl upload 0 ding.wav --device front`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseFileID(args[0])
		if err != nil {
			return err
		}
		clip, err := audio.NewWAVSource().Read(args[1])
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader("Upload", "doorbellctl upload "+strings.Join(args, " "), s.Params())

		start := time.Now()
		err = p.RunUpload("Uploading "+filepath.Base(args[1]), func(onProgress device.ProgressFunc) error {
			return s.client.UploadFile(id, clip, onProgress)
		})
		if err != nil {
			return reportFailure(p, "Upload failed", err)
		}
		s.touch()
		p.PrintSuccess("Upload complete", map[string]string{
			"File":     strconv.Itoa(id),
			"Samples":  strconv.Itoa(len(clip.Samples)),
			"Length":   fmt.Sprintf("%.2fs", clip.Duration()),
			"Duration": time.Since(start).Round(time.Millisecond).String(),
		})
		return nil
	},
}

var uploadBatchCmd = &cobra.Command{
	Use:   "upload-batch <first-file-id> <file.wav>...",
	Short: "Upload several WAV clips to consecutive ids",
	Long: `Upload each file in turn, storing the first under first-file-id, the
next under first-file-id+1 and so on. The first failure stops the batch.`,
	Example: `  doorbellctl upload-batch 0 ding.wav dong.wav chime.wav`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		first, err := parseFileID(args[0])
		if err != nil {
			return err
		}
		items, err := batchItems(first, args[1:])
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader("Batch upload", "doorbellctl upload-batch "+strings.Join(args, " "), s.Params())

		label := fmt.Sprintf("Uploading %d files", len(items))
		err = p.RunUpload(label, func(onProgress device.ProgressFunc) error {
			return s.client.UploadBatch(items, audio.NewWAVSource(), onProgress)
		})
		if err != nil {
			return reportFailure(p, "Batch upload failed", err)
		}
		s.touch()
		p.PrintSuccess("Batch upload complete", map[string]string{
			"Files": strconv.Itoa(len(items)),
			"Ids":   fmt.Sprintf("%d-%d", first, first+len(items)-1),
		})
		return nil
	},
}

// Scan flags
var (
	scanTimeout int
	scanSave    bool
	scanID      string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for doorbells on the network",
	Long: `Scan for doorbells using mDNS/DNS-SD discovery (_doorbell._tcp).

With --id, the scan stops as soon as that doorbell answers.

With --save, discovered doorbells are added to the config file under their
id, keeping any token_file and profile already configured.`,
	Example: `  doorbellctl scan
  doorbellctl scan --timeout 3 --save
  doorbellctl scan --id frontdoor --save`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Add discovered doorbells to the config file")
	scanCmd.Flags().StringVar(&scanID, "id", "", "Wait for one doorbell (doorbell-<id>.local) instead of listing all")
}

func runScan(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Printf("Scanning for doorbells (timeout: %ds)...\n\n", scanTimeout)

	timeout := time.Duration(scanTimeout) * time.Second
	var devices []*discovery.Device
	if scanID != "" {
		d, err := discovery.FindDevice(scanID, timeout)
		if err != nil {
			return err
		}
		devices = append(devices, d)
	} else {
		var err error
		devices, err = discovery.ScanForDevices(timeout)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	if len(devices) == 0 {
		p.Println("No doorbells found.")
		p.Println("\nTroubleshooting:")
		p.Println("  - Ensure the doorbell is powered on and joined to this network")
		p.Println("  - Try increasing --timeout for slower networks")
		p.Println("  - Use --device to address the doorbell by IP if discovery fails")
		return nil
	}

	p.Printf("Found %d doorbell(s):\n\n", len(devices))
	for i, d := range devices {
		p.Printf("%d. %s\n", i+1, d.Hostname)
		p.Printf("   ID:      %s\n", d.ID)
		p.Printf("   Address: %s\n", d.Address())
		if len(d.Metadata) > 0 {
			p.Printf("   Metadata: %v\n", d.Metadata)
		}
		p.Newline()
	}

	if !scanSave {
		p.Println("Use 'doorbellctl scan --save' to remember these doorbells")
		return nil
	}

	reg, path, err := loadRegistry()
	if err != nil {
		return err
	}
	for _, d := range devices {
		entry := reg.EnsureDevice(d.ID)
		entry.Port = d.Port
		if entry.Profile == "" {
			entry.Profile = d.Profile()
		}
		reg.UpdateDeviceLastSeen(d.ID, d.IP)
		if err := entry.Validate(); err != nil {
			entry.Profile = ""
		}
	}
	if err := reg.SaveTo(path); err != nil {
		return err
	}
	p.Printf("Saved %d doorbell(s) to %s\n", len(devices), path)
	return nil
}

// devices flags
var (
	addPort      int
	addTokenFile string
	addProfile   string
	addDefault   bool
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage configured doorbells",
	RunE:  runDevicesList,
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured doorbells",
	RunE:  runDevicesList,
}

var devicesAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Add or replace a doorbell",
	Example: `  doorbellctl devices add front 192.168.4.69 --token-file front.token --default
  doorbellctl devices add garage 10.0.0.7 --profile legacy`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, path, err := loadRegistry()
		if err != nil {
			return err
		}
		d := &config.Device{
			Address:   args[1],
			Port:      addPort,
			TokenFile: addTokenFile,
			Profile:   addProfile,
		}
		if err := reg.AddDevice(args[0], d); err != nil {
			return err
		}
		if addDefault {
			reg.Preferences.DefaultDevice = args[0]
		}
		if err := reg.SaveTo(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s saved %s\n", ui.SuccessMarker, args[0])
		return nil
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a doorbell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, path, err := loadRegistry()
		if err != nil {
			return err
		}
		if !reg.RemoveDevice(args[0]) {
			return fmt.Errorf("unknown device %q", args[0])
		}
		if err := reg.SaveTo(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed %s\n", ui.SuccessMarker, args[0])
		return nil
	},
}

func init() {
	devicesAddCmd.Flags().IntVar(&addPort, "port", 0, "TCP port (default 80)")
	devicesAddCmd.Flags().StringVar(&addTokenFile, "token-file", "", "Token file, relative to the config directory")
	devicesAddCmd.Flags().StringVar(&addProfile, "profile", "", "Wire profile: checksummed (default) or legacy")
	devicesAddCmd.Flags().BoolVar(&addDefault, "default", false, "Make this the default device")

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	reg, path, err := loadRegistry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(reg.Devices) == 0 {
		fmt.Fprintf(out, "No doorbells configured in %s\n", path)
		fmt.Fprintln(out, "Use 'doorbellctl devices add' or 'doorbellctl scan --save'")
		return nil
	}

	names := make([]string, 0, len(reg.Devices))
	for name := range reg.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d := reg.Devices[name]
		marker := " "
		if name == reg.Preferences.DefaultDevice {
			marker = "*"
		}
		cfg := d.TransportConfig(reg.Preferences)
		profile := d.Profile
		if profile == "" {
			profile = protocol.ProfileChecksummed
		}
		line := fmt.Sprintf("%s %-12s %-22s %s", marker, name, cfg.Address(), profile)
		if d.TokenFile != "" {
			line += "  token=" + d.TokenFile
		}
		if !d.LastSeen.IsZero() {
			line += "  seen=" + d.LastSeen.Format(time.RFC3339)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
