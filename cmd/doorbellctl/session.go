package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/doorbell/internal/config"
	"github.com/muurk/doorbell/internal/credentials"
	"github.com/muurk/doorbell/internal/device"
	"github.com/muurk/doorbell/internal/logging"
	"github.com/muurk/doorbell/internal/protocol"
	"github.com/muurk/doorbell/internal/transport"
)

// Global flags
var (
	deviceFlag      string
	portFlag        int
	tokenFileFlag   string
	tokenHexFlag    string
	profileFlag     string
	logLevel        string
	configPath      string
	maxAttemptsFlag int
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&deviceFlag, "device", "", "Configured device name, or a host/IP to address directly")
	flags.IntVar(&portFlag, "port", 0, "Device TCP port (default from config, else 80)")
	flags.StringVar(&tokenFileFlag, "token", "", "Token file (8 raw bytes or 16 hex characters)")
	flags.StringVar(&tokenHexFlag, "token-hex", "", "Token as 16 hex characters")
	flags.StringVar(&profileFlag, "profile", "", "Wire profile: checksummed or legacy")
	flags.IntVar(&maxAttemptsFlag, "max-attempts", -1, "Give up after this many attempts per frame (0 = never, -1 = from config)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from "+logging.LogLevelEnvVar)
	flags.StringVar(&configPath, "config", "", "Config file (default: OS config dir)")
}

// session is a resolved device ready to receive commands
type session struct {
	name      string // Registry name, empty for ad hoc addresses
	registry  *config.Registry
	regPath   string
	transport *transport.Transport
	client    *device.Client
}

// loadRegistry reads --config or the default registry, returning it and its path
func loadRegistry() (*config.Registry, string, error) {
	if configPath == "" {
		return config.LoadDefaultRegistry()
	}
	reg, err := config.LoadRegistryFrom(configPath)
	if err != nil {
		return nil, "", err
	}
	return reg, configPath, nil
}

// resolveDevice picks the device entry the global flags describe. Flags
// override registry values.
func resolveDevice(reg *config.Registry) (string, config.Device, error) {
	var name string
	var dev config.Device

	switch {
	case deviceFlag != "" && reg.GetDevice(deviceFlag) != nil:
		name = deviceFlag
		dev = *reg.GetDevice(deviceFlag)
	case deviceFlag != "":
		dev = config.Device{Address: deviceFlag}
	case reg.Preferences.DefaultDevice != "":
		n, d, err := reg.Resolve("")
		if err != nil {
			return "", dev, err
		}
		name, dev = n, *d
	default:
		dev = config.Device{Address: transport.DefaultHost}
	}

	if portFlag != 0 {
		dev.Port = portFlag
	}
	if profileFlag != "" {
		dev.Profile = profileFlag
	}
	if tokenFileFlag != "" {
		dev.TokenFile = tokenFileFlag
	}
	if err := dev.Validate(); err != nil {
		return "", dev, err
	}
	return name, dev, nil
}

func loadToken(dev config.Device, regPath string) (protocol.Token, error) {
	if tokenHexFlag != "" {
		return protocol.ParseHexToken(tokenHexFlag)
	}
	// --token is relative to the working directory, token_file to the config file
	store := credentials.NewFileStore(filepath.Dir(regPath))
	if tokenFileFlag != "" {
		store = credentials.NewFileStore("")
	}
	token, err := store.LoadToken(dev.TokenFile)
	if err != nil {
		return protocol.Token{}, fmt.Errorf("%w (use --token or --token-hex)", err)
	}
	return token, nil
}

// openSession resolves the target device and builds its transport and client
func openSession() (*session, error) {
	reg, regPath, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	name, dev, err := resolveDevice(reg)
	if err != nil {
		return nil, err
	}

	profile, err := protocol.ProfileByName(dev.Profile)
	if err != nil {
		return nil, err
	}

	var token protocol.Token
	if profile.Name() == protocol.ProfileChecksummed {
		token, err = loadToken(dev, regPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := dev.TransportConfig(reg.Preferences)
	if maxAttemptsFlag >= 0 {
		cfg.MaxAttempts = maxAttemptsFlag
	}

	tr := transport.New(cfg, profile, transport.WithStateHook(func(attempt int, s transport.State) {
		if s == transport.StateBackoff {
			logging.Info("Retrying frame",
				zap.String("device", cfg.Address()),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", cfg.Backoff),
			)
		}
	}))

	client := device.NewClient(protocol.NewEncoder(profile, token), tr, device.WithPacing(reg.Preferences.Pacing()))

	return &session{
		name:      name,
		registry:  reg,
		regPath:   regPath,
		transport: tr,
		client:    client,
	}, nil
}

// Address returns host:port of the session's device
func (s *session) Address() string {
	return s.transport.Config().Address()
}

// Params returns header parameters describing the session
func (s *session) Params() map[string]string {
	params := map[string]string{
		"Device":  s.Address(),
		"Profile": s.transport.Profile().Name(),
	}
	if s.name != "" {
		params["Name"] = s.name
	}
	return params
}

// touch records a successful exchange for named devices
func (s *session) touch() {
	if s.name == "" {
		return
	}
	s.registry.EnsureDevice(s.name).LastSeen = time.Now()
	if err := s.registry.SaveTo(s.regPath); err != nil {
		logging.Warn("Failed to update last_seen", zap.String("device", s.name), zap.Error(err))
	}
}

// parseFileID parses a file identifier argument
func parseFileID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid file id %q: %w", arg, err)
	}
	if id < 0 || id > protocol.MaxFileID {
		return 0, fmt.Errorf("file id %d out of range 0-%d", id, protocol.MaxFileID)
	}
	return id, nil
}

// batchItems assigns consecutive ids starting at first to files
func batchItems(first int, files []string) ([]device.BatchItem, error) {
	last := first + len(files) - 1
	if last > protocol.MaxFileID {
		return nil, fmt.Errorf("%d files starting at id %d would exceed id %d", len(files), first, protocol.MaxFileID)
	}
	items := make([]device.BatchItem, len(files))
	for i, f := range files {
		items[i] = device.BatchItem{FileID: first + i, Name: f}
	}
	return items, nil
}
