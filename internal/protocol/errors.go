package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching
var (
	ErrFrameTooLarge = errors.New("frame too large")
	ErrEncoding      = errors.New("encoding error")
	ErrInvalidFrame  = errors.New("invalid frame")
)

// FrameTooLargeError is returned when a frame would reach MaxFrameSize.
// It is never retried.
type FrameTooLargeError struct {
	Size  int // Total frame size that was requested
	Limit int // Exclusive limit
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame too large: %d bytes (must be below %d)", e.Size, e.Limit)
}

// Is reports whether target is ErrFrameTooLarge
func (e *FrameTooLargeError) Is(target error) bool {
	return target == ErrFrameTooLarge
}

// EncodingError is returned for invalid command arguments
// (out-of-range file ID, non UTF-8 text, sample out of byte range).
type EncodingError struct {
	Field   string
	Message string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrEncoding
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// ValidationError describes why a received frame was rejected
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid frame: " + e.Message
}

// Is reports whether target is ErrInvalidFrame
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidFrame
}

func newEncodingError(field, format string, args ...any) *EncodingError {
	return &EncodingError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsFrameTooLarge checks if an error is a FrameTooLargeError
func IsFrameTooLarge(err error) bool {
	return errors.Is(err, ErrFrameTooLarge)
}

// IsEncodingError checks if an error is an EncodingError
func IsEncodingError(err error) bool {
	return errors.Is(err, ErrEncoding)
}

// IsFatal reports whether err must abort the current command without retry
func IsFatal(err error) bool {
	return IsFrameTooLarge(err) || IsEncodingError(err)
}
