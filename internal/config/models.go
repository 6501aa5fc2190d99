package config

import (
	"fmt"
	"time"

	"github.com/muurk/doorbell/internal/device"
	"github.com/muurk/doorbell/internal/protocol"
	"github.com/muurk/doorbell/internal/transport"
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device is one configured doorbell.
type Device struct {
	Address   string    `yaml:"address"`              // Hostname or IP
	Port      int       `yaml:"port,omitempty"`       // 0 = transport.DefaultPort
	TokenFile string    `yaml:"token_file,omitempty"` // Relative to the config dir
	Profile   string    `yaml:"profile,omitempty"`    // "checksummed" (default) or "legacy"
	LastSeen  time.Time `yaml:"last_seen,omitempty"`  // Last discovery or successful command
}

// Preferences holds timing defaults applied to every device.
type Preferences struct {
	DefaultDevice string `yaml:"default_device,omitempty"`
	BackoffMS     int    `yaml:"backoff_ms"`
	PacingMS      int    `yaml:"pacing_ms"`
	DialTimeoutMS int    `yaml:"dial_timeout_ms"`
	ReadTimeoutMS int    `yaml:"read_timeout_ms"`
	MaxAttempts   int    `yaml:"max_attempts"` // 0 = retry until acknowledged
}

// DefaultPreferences returns the built-in timing
func DefaultPreferences() *Preferences {
	return &Preferences{
		BackoffMS:     int(transport.DefaultBackoff / time.Millisecond),
		PacingMS:      int(device.DefaultPacing / time.Millisecond),
		DialTimeoutMS: int(transport.DefaultDialTimeout / time.Millisecond),
		ReadTimeoutMS: int(transport.DefaultReadTimeout / time.Millisecond),
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: DefaultPreferences(),
	}
}

// GetDevice retrieves a device by name.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(name string) *Device {
	return r.Devices[name]
}

// EnsureDevice returns the named device, creating an empty entry if needed.
func (r *Registry) EnsureDevice(name string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if d, exists := r.Devices[name]; exists {
		return d
	}
	d := &Device{}
	r.Devices[name] = d
	return d
}

// AddDevice validates and stores a device under name, replacing any previous entry.
func (r *Registry) AddDevice(name string, d *Device) error {
	if name == "" {
		return fmt.Errorf("device name is required")
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("device %q: %w", name, err)
	}
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	r.Devices[name] = d
	return nil
}

// RemoveDevice deletes a device and clears it as default. It reports whether
// the device existed.
func (r *Registry) RemoveDevice(name string) bool {
	if _, ok := r.Devices[name]; !ok {
		return false
	}
	delete(r.Devices, name)
	if r.Preferences != nil && r.Preferences.DefaultDevice == name {
		r.Preferences.DefaultDevice = ""
	}
	return true
}

// UpdateDeviceLastSeen updates the last seen timestamp and address for a device.
func (r *Registry) UpdateDeviceLastSeen(name, address string) {
	d := r.EnsureDevice(name)
	d.LastSeen = time.Now()
	if address != "" {
		d.Address = address
	}
}

// Resolve returns the named device, or the default device when name is empty.
func (r *Registry) Resolve(name string) (string, *Device, error) {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultDevice
	}
	if name == "" {
		return "", nil, fmt.Errorf("no device given and no default_device configured")
	}
	d := r.GetDevice(name)
	if d == nil {
		return name, nil, fmt.Errorf("unknown device %q", name)
	}
	return name, d, nil
}

// Validate checks address, port and profile
func (d *Device) Validate() error {
	if d.Address == "" {
		return fmt.Errorf("address is required")
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("port %d out of range", d.Port)
	}
	if _, err := protocol.ProfileByName(d.Profile); err != nil {
		return err
	}
	return nil
}

// TransportConfig converts the device and preferences into transport settings
func (d *Device) TransportConfig(prefs *Preferences) transport.Config {
	cfg := transport.DefaultConfig(d.Address)
	if d.Port != 0 {
		cfg.Port = d.Port
	}
	if prefs != nil {
		cfg.Backoff = time.Duration(prefs.BackoffMS) * time.Millisecond
		cfg.DialTimeout = time.Duration(prefs.DialTimeoutMS) * time.Millisecond
		cfg.ReadTimeout = time.Duration(prefs.ReadTimeoutMS) * time.Millisecond
		cfg.MaxAttempts = prefs.MaxAttempts
	}
	return cfg
}

// applyDefaults fills zero timing fields, which YAML leaves unset when a key is missing
func (p *Preferences) applyDefaults() {
	def := DefaultPreferences()
	if p.BackoffMS <= 0 {
		p.BackoffMS = def.BackoffMS
	}
	if p.PacingMS <= 0 {
		p.PacingMS = def.PacingMS
	}
	if p.DialTimeoutMS <= 0 {
		p.DialTimeoutMS = def.DialTimeoutMS
	}
	if p.ReadTimeoutMS <= 0 {
		p.ReadTimeoutMS = def.ReadTimeoutMS
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
}

// Pacing returns the upload pacing delay
func (p *Preferences) Pacing() time.Duration {
	return time.Duration(p.PacingMS) * time.Millisecond
}
