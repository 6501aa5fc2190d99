package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/doorbell/internal/logging"
	"github.com/muurk/doorbell/internal/protocol"
)

const (
	// DefaultHost is the address the doorbell firmware uses on its own network
	DefaultHost = "192.168.4.69"

	// DefaultPort is the TCP port the firmware listens on
	DefaultPort = 80

	// DefaultBackoff is the fixed wait between failed attempts
	DefaultBackoff = 500 * time.Millisecond

	// DefaultDialTimeout bounds connection establishment
	DefaultDialTimeout = 5 * time.Second

	// DefaultReadTimeout bounds the wait for the device reply
	DefaultReadTimeout = 5 * time.Second
)

// Config holds the static device address and exchange timing
type Config struct {
	Host        string
	Port        int
	DialTimeout time.Duration // 0 = no timeout
	ReadTimeout time.Duration // 0 = no deadline on write and read
	Backoff     time.Duration // Wait after a failed attempt
	MaxAttempts int           // 0 = retry until success
}

// DefaultConfig returns the configuration for a device at host
func DefaultConfig(host string) Config {
	if host == "" {
		host = DefaultHost
	}
	return Config{
		Host:        host,
		Port:        DefaultPort,
		DialTimeout: DefaultDialTimeout,
		ReadTimeout: DefaultReadTimeout,
		Backoff:     DefaultBackoff,
	}
}

// Address returns host:port
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// State is a step of a single frame exchange
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateSending
	StateAwaitingReply
	StateSuccess
	StateFailure
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateBackoff:
		return "backoff"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option customizes a Transport
type Option func(*Transport)

// WithDialer replaces the network dialer
func WithDialer(d Dialer) Option {
	return func(t *Transport) { t.dialer = d }
}

// WithSleep replaces time.Sleep for the backoff wait
func WithSleep(sleep func(time.Duration)) Option {
	return func(t *Transport) { t.sleep = sleep }
}

// WithStateHook registers a callback invoked on every state transition
func WithStateHook(hook func(attempt int, s State)) Option {
	return func(t *Transport) { t.onState = hook }
}

// Transport delivers frames to the device one at a time. Each attempt uses a
// fresh connection that is closed before Send moves on, and failed attempts
// are retried after a fixed backoff until the device acknowledges the frame.
type Transport struct {
	config  Config
	profile protocol.Profile
	dialer  Dialer
	sleep   func(time.Duration)
	onState func(attempt int, s State)

	// mu keeps exchanges strictly sequential; the device has no request IDs
	mu sync.Mutex
}

// New creates a Transport. A nil profile selects protocol.Checksummed.
func New(config Config, profile protocol.Profile, opts ...Option) *Transport {
	if profile == nil {
		profile = protocol.Checksummed
	}
	if config.Backoff <= 0 {
		config.Backoff = DefaultBackoff
	}
	t := &Transport{
		config:  config,
		profile: profile,
		dialer:  &net.Dialer{},
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the transport configuration
func (t *Transport) Config() Config {
	return t.config
}

// Profile returns the wire profile whose ack the transport expects
func (t *Transport) Profile() protocol.Profile {
	return t.profile
}

// Send delivers frame and blocks until the device acknowledges it.
//
// With MaxAttempts == 0 this only returns early for a malformed address,
// which no retry can fix. Callers must accept that a frame may be
// executed more than once by the device.
func (t *Transport) Send(frame []byte) error {
	if len(frame) == 0 {
		return fmt.Errorf("refusing to send empty frame")
	}
	if len(frame) >= protocol.MaxFrameSize {
		return &protocol.FrameTooLargeError{Size: len(frame), Limit: protocol.MaxFrameSize}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	addr := t.config.Address()
	policy := t.newBackOff()
	policy.Reset()

	t.transition(0, StateIdle)
	for attempt := 1; ; attempt++ {
		err := t.attempt(attempt, addr, frame)
		if err == nil {
			t.transition(attempt, StateSuccess)
			logging.Debug("Frame acknowledged",
				zap.String("device", addr),
				zap.Int("attempt", attempt),
			)
			return nil
		}

		t.transition(attempt, StateFailure)
		logging.Warn("Frame exchange failed",
			zap.String("device", addr),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if !IsRetryable(err) {
			return err
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return NewExhaustedError(addr, attempt, err)
		}

		t.transition(attempt, StateBackoff)
		t.sleep(wait)
	}
}

// attempt performs one connect/write/read cycle. The connection is closed on
// every return path.
func (t *Transport) attempt(attempt int, addr string, frame []byte) error {
	t.transition(attempt, StateConnecting)

	ctx := context.Background()
	if t.config.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.DialTimeout)
		defer cancel()
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return NewNetworkError("failed to connect", addr, err)
	}
	logging.LogConnection(addr, "connected")
	defer func() {
		_ = conn.Close()
		logging.LogConnection(addr, "closed")
	}()

	if t.config.ReadTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(t.config.ReadTimeout)); err != nil {
			return NewNetworkError("failed to set deadline", addr, err)
		}
	}

	t.transition(attempt, StateSending)
	logging.LogFrame("sent", addr, t.profile.Redact(frame))
	n, err := conn.Write(frame)
	if err != nil {
		return NewNetworkError("failed to write frame", addr, err)
	}
	if n != len(frame) {
		return NewNetworkError(fmt.Sprintf("short write: %d of %d bytes", n, len(frame)), addr, io.ErrShortWrite)
	}

	t.transition(attempt, StateAwaitingReply)
	buf := make([]byte, protocol.MaxReplySize)
	n, err = conn.Read(buf)
	reply := buf[:n]
	if n == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return NewNoReplyError(addr, err)
	}
	logging.LogRawBytes("Device reply", reply)

	if !protocol.IsAck(t.profile, reply) {
		return NewRejectedError(addr, reply)
	}
	return nil
}

func (t *Transport) newBackOff() backoff.BackOff {
	var policy backoff.BackOff = backoff.NewConstantBackOff(t.config.Backoff)
	if t.config.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(t.config.MaxAttempts-1))
	}
	return policy
}

func (t *Transport) transition(attempt int, s State) {
	if t.onState != nil {
		t.onState(attempt, s)
	}
}
