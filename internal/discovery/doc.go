// Package discovery finds doorbells on the local network over mDNS.
//
// Doorbells advertise the "_doorbell._tcp" service under a hostname of the
// form "doorbell-<id>.local.". Entries with other hostnames are ignored.
// When the advertisement carries no port, DefaultPort (80) is assumed.
//
// # Usage Example
//
//	devices, err := discovery.ScanForDevices(5 * time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Println(d.ID, d.Address())
//	}
//
// The simulator uses Advertise to announce itself the same way, so
// "doorbellctl scan" can be tried without hardware.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
