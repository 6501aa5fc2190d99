// Package logging provides structured logging for the doorbell tools.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the transport, the device client and the simulator.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (frame hex dumps, state transitions)
//   - Info: Normal operations (commands sent, uploads completed)
//   - Warn: Non-fatal issues (rejected replies, retries)
//   - Error: Fatal issues (startup failures, aborted commands)
//
// Logging is silent unless a level is passed to Initialize or set in the
// DOORBELL_LOG_LEVEL environment variable.
//
// # Structured Logging
//
//	logging.Info("Command acknowledged",
//	    zap.String("device", "192.168.4.69:80"),
//	    zap.Stringer("command", protocol.CmdPlayAudio),
//	    zap.Int("attempts", 2),
//	)
//
// # Frames
//
// Frames carry the shared token, so they are only ever logged through
// LogFrame after the profile has redacted them:
//
//	logging.LogFrame("sent", addr, profile.Redact(frame))
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
