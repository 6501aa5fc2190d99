package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a discovered doorbell on the network
type Device struct {
	// ID is the name following "doorbell-" in the hostname (e.g., "frontdoor")
	ID string

	// Hostname is the mDNS hostname (e.g., "doorbell-frontdoor.local.")
	Hostname string

	// IP is the announced address, IPv4 preferred
	IP string

	// Port is the command port (typically 80)
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("Doorbell %s (%s) at %s", d.ID, d.Hostname, d.Address())
}

// Address returns host:port for the transport
func (d *Device) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// Profile returns the wire profile announced in the TXT record, empty when
// the doorbell does not announce one
func (d *Device) Profile() string {
	return d.GetMetadata("profile")
}
