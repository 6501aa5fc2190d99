package discovery

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/doorbell/internal/logging"
)

const (
	// ServiceType is the mDNS service type doorbells advertise
	ServiceType = "_doorbell._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// HostPrefix starts every doorbell hostname ("doorbell-<id>.local.")
	HostPrefix = "doorbell-"

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the command port when the advertisement omits one
	DefaultPort = 80
)

// hostPattern matches doorbell hostnames (e.g., "doorbell-frontdoor.local.")
var hostPattern = regexp.MustCompile(`^doorbell-([A-Za-z0-9-]+)\.local\.?$`)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all doorbells on the local network
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background())
}

// ScanForDevicesWithContext discovers devices until the timeout or ctx ends.
// Devices announced more than once are reported once.
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var mu sync.Mutex
	devices := make([]*Device, 0)
	seen := make(map[string]bool)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if !seen[device.ID] {
				seen[device.ID] = true
				devices = append(devices, device)
				logging.Debug("Discovered doorbell",
					zap.String("id", device.ID),
					zap.String("ip", device.IP),
					zap.Int("port", device.Port),
				)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Device(nil), devices...), nil
}

// WaitForDevice waits for a specific doorbell by ID
func (s *Scanner) WaitForDevice(id string) (*Device, error) {
	return s.WaitForDeviceWithContext(context.Background(), id)
}

// WaitForDeviceWithContext waits for a specific device with a custom context
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, id string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	deviceChan := make(chan *Device, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device != nil && device.ID == id {
				deviceChan <- device
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case device := <-deviceChan:
		return device, nil
	case <-ctx.Done():
		select {
		case device := <-deviceChan:
			return device, nil
		default:
		}
		return nil, fmt.Errorf("doorbell %s not found within %s", id, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry is not a doorbell or has no address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	hostname := entry.HostName
	if hostname == "" {
		return nil
	}

	matches := hostPattern.FindStringSubmatch(hostname)
	if len(matches) < 2 {
		return nil
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Device{
		ID:           matches[1],
		Hostname:     hostname,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertisement is a running mDNS announcement
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise announces a doorbell with the given ID listening on port. ips may
// be empty to announce every address of the host.
func Advertise(id string, port int, ips []string, text []string) (*Advertisement, error) {
	if !hostPattern.MatchString(HostPrefix + id + ".local.") {
		return nil, fmt.Errorf("invalid doorbell id %q", id)
	}
	if len(ips) == 0 {
		var err error
		ips, err = localIPs()
		if err != nil {
			return nil, err
		}
	}

	server, err := zeroconf.RegisterProxy(HostPrefix+id, ServiceType, ServiceDomain, port, HostPrefix+id, ips, text, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising doorbell",
		zap.String("id", id),
		zap.Int("port", port),
		zap.Strings("ips", ips),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the announcement
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

func localIPs() ([]string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("failed to list interface addresses: %w", err)
	}
	var ips []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		ips = append(ips, ipNet.IP.String())
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no non-loopback IPv4 address to advertise")
	}
	return ips, nil
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevices()
}

// FindDevice waits up to timeout for the doorbell announcing id
func FindDevice(id string, timeout time.Duration) (*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.WaitForDevice(id)
}
