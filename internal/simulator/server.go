package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/doorbell/internal/logging"
	"github.com/muurk/doorbell/internal/protocol"
)

// DefaultReadTimeout bounds how long a connection may take to deliver its frame
const DefaultReadTimeout = 5 * time.Second

// Accept retry delays for listener errors other than close
const (
	acceptRetryMin = 5 * time.Millisecond
	acceptRetryMax = time.Second
)

// ErrorReply is sent for frames the simulator refuses
var ErrorReply = []byte("ERR\r\n")

// Config holds the simulator configuration
type Config struct {
	Host        string
	Port        int // 0 picks a free port
	Profile     protocol.Profile
	Token       protocol.Token // Checked for checksummed frames only
	RejectFirst int            // Reply with ErrorReply to the first n frames
	ReadTimeout time.Duration
}

// Event is one accepted or refused frame, in arrival order
type Event struct {
	Command  protocol.Command
	FileID   int // -1 when the command carries none
	Accepted bool
	Reason   string
}

// Server represents a simulated doorbell
type Server struct {
	config   Config
	listener net.Listener
	wg       sync.WaitGroup
	sleep    func(time.Duration)

	mu          sync.Mutex
	activeConns map[string]net.Conn
	files       map[byte][]byte
	played      []int
	printed     []string
	events      []Event
	received    int
}

// New creates a new simulator
func New(config Config) *Server {
	if config.Profile == nil {
		config.Profile = protocol.Checksummed
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	return &Server{
		config:      config,
		sleep:       time.Sleep,
		activeConns: make(map[string]net.Conn),
		files:       make(map[byte][]byte),
	}
}

// Listen opens the TCP listener without serving it
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	logging.Info("Simulator listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("profile", s.config.Profile.Name()),
		zap.Int("reject_first", s.config.RejectFirst),
	)
	return nil
}

// Addr returns the bound listener address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Listen
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Start serves and blocks until SIGINT/SIGTERM or an accept failure. It
// listens first unless Listen was already called.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping simulator...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Serve accepts connections until the listener is closed. Other accept
// errors (EMFILE and the like) are retried with a growing delay.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("simulator is not listening")
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = acceptRetryMin
	retry.MaxInterval = acceptRetryMax
	retry.MaxElapsedTime = 0
	retry.Reset()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			wait := retry.NextBackOff()
			logging.Error("Failed to accept connection", zap.Error(err), zap.Duration("retry_in", wait))
			s.sleep(wait)
			continue
		}
		retry.Reset()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection reads one frame, answers it and closes the connection
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	_ = conn.SetDeadline(time.Now().Add(s.config.ReadTimeout))

	raw, err := s.config.Profile.ReadFrame(conn)
	if err != nil {
		logging.Warn("Failed to read frame",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		if errors.Is(err, protocol.ErrInvalidFrame) {
			s.reply(conn, remoteAddr, ErrorReply)
		}
		return
	}
	logging.LogFrame("received", remoteAddr, s.config.Profile.Redact(raw))

	s.reply(conn, remoteAddr, s.Handle(raw))
}

func (s *Server) reply(conn net.Conn, remoteAddr string, reply []byte) {
	if _, err := conn.Write(reply); err != nil {
		logging.Warn("Failed to write reply",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Handle validates one raw frame, applies it and returns the reply bytes
func (s *Server) Handle(raw []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received++
	if s.received <= s.config.RejectFirst {
		s.events = append(s.events, Event{FileID: -1, Reason: "injected rejection"})
		return ErrorReply
	}

	frame, err := s.config.Profile.Parse(raw)
	if err != nil {
		s.events = append(s.events, Event{FileID: -1, Reason: err.Error()})
		return ErrorReply
	}

	event := Event{Command: frame.Command, FileID: -1}
	if id, ok := frame.FileID(); ok {
		event.FileID = int(id)
	}

	if reason := s.apply(frame); reason != "" {
		event.Reason = reason
		s.events = append(s.events, event)
		logging.Warn("Frame refused",
			zap.Stringer("command", frame.Command),
			zap.String("reason", reason),
		)
		return ErrorReply
	}

	event.Accepted = true
	s.events = append(s.events, event)
	return s.config.Profile.Ack()
}

// apply mutates the file table; it returns a refusal reason or ""
func (s *Server) apply(frame *protocol.Frame) string {
	if s.config.Profile.Name() == protocol.ProfileChecksummed && frame.Token != s.config.Token {
		return "token mismatch"
	}

	switch frame.Command {
	case protocol.CmdPrintString:
		s.printed = append(s.printed, string(frame.Payload))
		logging.Info("Device console", zap.String("text", string(frame.Payload)))
		return ""
	}

	id, ok := frame.FileID()
	if !ok {
		return "missing file id"
	}

	switch frame.Command {
	case protocol.CmdPlayAudio:
		s.played = append(s.played, int(id))
	case protocol.CmdDeleteFile:
		delete(s.files, id)
	case protocol.CmdUploadAudioStart:
		s.files[id] = bytes.Clone(frame.Payload[1:])
	case protocol.CmdUploadAudioContinue:
		data, started := s.files[id]
		if !started {
			return "continue without start"
		}
		s.files[id] = append(data, frame.Payload[1:]...)
	default:
		return "unknown command"
	}
	return ""
}

// Shutdown closes the listener and active connections, then waits for handlers
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down simulator...")

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}
	return nil
}

// File returns a copy of the stored clip
func (s *Server) File(id int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[byte(id)]
	return bytes.Clone(data), ok
}

// Files returns the number of stored clips
func (s *Server) Files() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Played returns the played file ids in order
func (s *Server) Played() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.played...)
}

// Printed returns the printed strings in order
func (s *Server) Printed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.printed...)
}

// Events returns every frame outcome in order
func (s *Server) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// GetActiveConnections returns the number of open connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
