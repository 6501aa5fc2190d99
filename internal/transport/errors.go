package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of a failed exchange
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (reset, broken pipe, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a dial or read deadline expired
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates the device hostname could not be resolved
	ErrTypeDNS
	// ErrTypeAddress indicates the configured address is malformed
	ErrTypeAddress
	// ErrTypeRejected indicates the device replied with something other than the ack
	ErrTypeRejected
	// ErrTypeNoReply indicates the connection closed before any reply arrived
	ErrTypeNoReply
	// ErrTypeExhausted indicates the configured attempt limit was reached
	ErrTypeExhausted
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorConnectionReset
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAddress:
		return "Address Error"
	case ErrTypeRejected:
		return "Rejected"
	case ErrTypeNoReply:
		return "No Reply"
	case ErrTypeExhausted:
		return "Retries Exhausted"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// TransportError represents a failed frame exchange with the device
type TransportError struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Address        string              // Device address (for context)
	Reply          []byte              // Reply bytes for rejected exchanges
	Attempts       int                 // Attempts made, set on ErrTypeExhausted
	Retryable      bool                // Whether another attempt may succeed
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a dial, write or read error
func ClassifyNetworkError(err error, address string) *TransportError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &TransportError{
			Type:           ErrTypeTimeout,
			Message:        "Device did not respond in time",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Address:        address,
			Retryable:      true,
		}
	}

	// doorbell-<id>.local names stop resolving while the device reboots
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Address:        address,
			Retryable:      true,
		}
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return &TransportError{
			Type:      ErrTypeAddress,
			Message:   fmt.Sprintf("Invalid device address %q", address),
			Err:       err,
			Address:   address,
			Retryable: false,
		}
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return &TransportError{
			Type:           ErrTypeConnectionRefused,
			Message:        "Device refused connection",
			Err:            err,
			NetworkSubtype: NetworkErrorConnectionRefused,
			Address:        address,
			Retryable:      true,
		}
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return &TransportError{
			Type:           ErrTypeNetwork,
			Message:        "Connection reset by device",
			Err:            err,
			NetworkSubtype: NetworkErrorConnectionReset,
			Address:        address,
			Retryable:      true,
		}
	case errors.Is(err, syscall.EHOSTUNREACH):
		return &TransportError{
			Type:           ErrTypeNetwork,
			Message:        "Host unreachable",
			Err:            err,
			NetworkSubtype: NetworkErrorHostUnreachable,
			Address:        address,
			Retryable:      true,
		}
	case errors.Is(err, syscall.ENETUNREACH):
		return &TransportError{
			Type:           ErrTypeNetwork,
			Message:        "Network unreachable",
			Err:            err,
			NetworkSubtype: NetworkErrorNetworkUnreachable,
			Address:        address,
			Retryable:      true,
		}
	}

	return &TransportError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Address:        address,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, address string, err error) *TransportError {
	classified := ClassifyNetworkError(err, address)
	if classified == nil {
		return &TransportError{Type: ErrTypeNetwork, Message: message, Address: address, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewRejectedError creates an error for a reply that is not the ack literal
func NewRejectedError(address string, reply []byte) *TransportError {
	return &TransportError{
		Type:      ErrTypeRejected,
		Message:   fmt.Sprintf("unexpected reply %q", reply),
		Address:   address,
		Reply:     append([]byte(nil), reply...),
		Retryable: true,
	}
}

// NewNoReplyError creates an error for a connection that closed or timed out
// before the device sent anything
func NewNoReplyError(address string, err error) *TransportError {
	if os.IsTimeout(err) {
		return NewNetworkError("no reply before read deadline", address, err)
	}
	return &TransportError{
		Type:      ErrTypeNoReply,
		Message:   "connection closed without reply",
		Err:       err,
		Address:   address,
		Retryable: true,
	}
}

// NewExhaustedError wraps the last failure once the attempt limit is reached
func NewExhaustedError(address string, attempts int, last error) *TransportError {
	return &TransportError{
		Type:      ErrTypeExhausted,
		Message:   fmt.Sprintf("gave up after %d attempts", attempts),
		Err:       last,
		Address:   address,
		Attempts:  attempts,
		Retryable: false,
	}
}

func asTransportError(err error) (*TransportError, bool) {
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr, true
	}
	return nil, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	if tErr, ok := asTransportError(err); ok {
		return tErr.Type == ErrTypeNetwork ||
			tErr.Type == ErrTypeTimeout ||
			tErr.Type == ErrTypeConnectionRefused ||
			tErr.Type == ErrTypeDNS
	}
	return false
}

// IsRejected checks if the device answered with something other than the ack
func IsRejected(err error) bool {
	if tErr, ok := asTransportError(err); ok {
		return tErr.Type == ErrTypeRejected
	}
	return false
}

// IsExhausted checks if an error reports a reached attempt limit
func IsExhausted(err error) bool {
	if tErr, ok := asTransportError(err); ok {
		return tErr.Type == ErrTypeExhausted
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if tErr, ok := asTransportError(err); ok {
		return tErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	tErr, ok := asTransportError(err)
	if !ok {
		return err.Error()
	}

	switch tErr.Type {
	case ErrTypeTimeout:
		return "Doorbell not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Doorbell refused connection - is the firmware running?"
	case ErrTypeDNS:
		return "Cannot resolve doorbell hostname"
	case ErrTypeAddress:
		return "Invalid doorbell address"
	case ErrTypeRejected:
		return "Doorbell rejected the command - check the token and protocol profile"
	case ErrTypeNoReply:
		return "Doorbell closed the connection without replying"
	case ErrTypeExhausted:
		if tErr.Err != nil {
			return fmt.Sprintf("Gave up after %d attempts: %s", tErr.Attempts, GetShortErrorMessage(tErr.Err))
		}
		return fmt.Sprintf("Gave up after %d attempts", tErr.Attempts)
	case ErrTypeNetwork:
		switch tErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Doorbell unreachable - check network connection"
		case NetworkErrorNetworkUnreachable:
			return "Network unreachable - check WiFi connection"
		case NetworkErrorConnectionReset:
			return "Connection reset by doorbell"
		default:
			return "Network error - check connection"
		}
	default:
		return tErr.Message
	}
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) []string {
	tErr, ok := asTransportError(err)
	if !ok {
		return nil
	}
	if tErr.Type == ErrTypeExhausted && tErr.Err != nil {
		return GetTroubleshootingHint(tErr.Err)
	}

	switch tErr.Type {
	case ErrTypeTimeout, ErrTypeNoReply:
		return []string{
			"Check that the doorbell is powered on",
			"Move closer to the doorbell to improve WiFi signal",
			"Raise read_timeout_ms in the config file for slow networks",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"The firmware listens on port 80 by default - verify --port",
			"Reboot the doorbell if it was just flashed",
		}
	case ErrTypeDNS, ErrTypeAddress:
		return []string{
			"Use the IP address instead of a hostname",
			"Run 'doorbellctl scan' to find the doorbell",
		}
	case ErrTypeRejected:
		hints := []string{
			"Verify the token file matches the token flashed into the firmware",
		}
		if strings.EqualFold(strings.TrimSpace(string(tErr.Reply)), "ack") {
			hints = append(hints, "The reply looks like older firmware - try --profile legacy")
		} else {
			hints = append(hints, "Check --profile matches the firmware generation")
		}
		return hints
	default:
		return []string{
			"Check your network connection",
			"Verify the doorbell IP address (default 192.168.4.69)",
		}
	}
}
