package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MaxFrameSize is the exclusive upper bound on a frame's total length
	MaxFrameSize = 4096

	// HeaderSize counts the size field, token and command byte of a checksummed frame
	HeaderSize = 2 + TokenSize + 1

	// ChecksummedOverhead is the checksum byte plus HeaderSize
	ChecksummedOverhead = 1 + HeaderSize

	// LegacyHeaderSize counts the size field and command byte of a legacy frame
	LegacyHeaderSize = 3

	// MaxReplySize bounds a single read of the device reply
	MaxReplySize = 1024
)

// Profile names accepted by ProfileByName
const (
	ProfileChecksummed = "checksummed"
	ProfileLegacy      = "legacy"
)

// Frame is a parsed protocol frame
type Frame struct {
	Command Command
	Token   Token // Zero for legacy frames
	Payload []byte
	Raw     []byte // Original frame bytes
}

// FileID returns the first payload byte for commands addressing a stored file
func (f *Frame) FileID() (byte, bool) {
	switch f.Command {
	case CmdPlayAudio, CmdDeleteFile, CmdUploadAudioStart, CmdUploadAudioContinue:
		if len(f.Payload) > 0 {
			return f.Payload[0], true
		}
	}
	return 0, false
}

// String returns a debug representation that omits the token
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{Command=%s, PayloadLen=%d, Size=%d}", f.Command, len(f.Payload), len(f.Raw))
}

// Profile is one generation of the wire format. Implementations are stateless.
type Profile interface {
	// Name identifies the profile in configuration ("checksummed", "legacy")
	Name() string

	// Build assembles the complete wire frame for a command
	Build(cmd Command, payload []byte, token Token) ([]byte, error)

	// ReadFrame reads exactly one frame from r using the size field
	ReadFrame(r io.Reader) ([]byte, error)

	// Parse validates raw and splits it into its fields
	Parse(raw []byte) (*Frame, error)

	// Ack is the literal the device replies with on success
	Ack() []byte

	// MaxPayload is the largest payload Build accepts
	MaxPayload() int

	// Redact returns a copy of frame that is safe to log
	Redact(frame []byte) []byte
}

var (
	// Checksummed is the current wire format and the default profile
	Checksummed Profile = checksummedProfile{}

	// Legacy is the original 3-byte header format without token or checksum
	Legacy Profile = legacyProfile{}
)

// ProfileByName returns the profile registered under name.
// An empty name selects Checksummed.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "", ProfileChecksummed:
		return Checksummed, nil
	case ProfileLegacy:
		return Legacy, nil
	default:
		return nil, fmt.Errorf("unknown protocol profile %q (expected %q or %q)", name, ProfileChecksummed, ProfileLegacy)
	}
}

// IsAck reports whether reply is exactly the profile's acknowledgment
func IsAck(p Profile, reply []byte) bool {
	return bytes.Equal(reply, p.Ack())
}

type checksummedProfile struct{}

var checksummedAck = []byte("ACK\r\n")

func (checksummedProfile) Name() string { return ProfileChecksummed }

func (checksummedProfile) Ack() []byte { return bytes.Clone(checksummedAck) }

func (checksummedProfile) MaxPayload() int { return MaxFrameSize - 1 - ChecksummedOverhead }

// Build lays out [checksum][size][token][command][payload]
func (checksummedProfile) Build(cmd Command, payload []byte, token Token) ([]byte, error) {
	size := HeaderSize + len(payload)
	total := 1 + size
	if total >= MaxFrameSize {
		return nil, &FrameTooLargeError{Size: total, Limit: MaxFrameSize}
	}

	frame := make([]byte, total)
	binary.BigEndian.PutUint16(frame[1:3], uint16(size))
	copy(frame[3:3+TokenSize], token[:])
	frame[3+TokenSize] = byte(cmd)
	copy(frame[ChecksummedOverhead:], payload)

	frame[0] = Checksum(frame[1:])
	return frame, nil
}

func (checksummedProfile) ReadFrame(r io.Reader) ([]byte, error) {
	head := make([]byte, 3)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	size := int(binary.BigEndian.Uint16(head[1:3]))
	if size < HeaderSize {
		return nil, newValidationError("size field %d smaller than header (%d)", size, HeaderSize)
	}
	if 1+size >= MaxFrameSize {
		return nil, newValidationError("size field %d exceeds frame limit", size)
	}

	frame := make([]byte, 1+size)
	copy(frame, head)
	if _, err := io.ReadFull(r, frame[3:]); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}
	return frame, nil
}

func (checksummedProfile) Parse(raw []byte) (*Frame, error) {
	if len(raw) < ChecksummedOverhead {
		return nil, newValidationError("frame too small: %d bytes (minimum %d)", len(raw), ChecksummedOverhead)
	}
	if len(raw) >= MaxFrameSize {
		return nil, newValidationError("frame too large: %d bytes", len(raw))
	}

	size := int(binary.BigEndian.Uint16(raw[1:3]))
	if size != len(raw)-1 {
		return nil, newValidationError("size field %d does not match frame length %d", size, len(raw))
	}
	if !VerifyChecksum(raw) {
		return nil, newValidationError("checksum mismatch: got 0x%02x, want 0x%02x", raw[0], Checksum(raw[1:]))
	}

	cmd := Command(raw[3+TokenSize])
	if !cmd.Valid() {
		return nil, newValidationError("unknown command: 0x%02x", byte(cmd))
	}

	f := &Frame{
		Command: cmd,
		Payload: raw[ChecksummedOverhead:],
		Raw:     raw,
	}
	copy(f.Token[:], raw[3:3+TokenSize])
	return f, nil
}

// Redact replaces the token bytes with '*'
func (checksummedProfile) Redact(frame []byte) []byte {
	out := bytes.Clone(frame)
	if len(out) >= 3+TokenSize {
		for i := 3; i < 3+TokenSize; i++ {
			out[i] = '*'
		}
	}
	return out
}

type legacyProfile struct{}

var legacyAck = []byte("ack")

func (legacyProfile) Name() string { return ProfileLegacy }

func (legacyProfile) Ack() []byte { return bytes.Clone(legacyAck) }

func (legacyProfile) MaxPayload() int { return MaxFrameSize - 1 - LegacyHeaderSize }

// Build lays out [size][command][payload]. The token is ignored.
func (legacyProfile) Build(cmd Command, payload []byte, _ Token) ([]byte, error) {
	total := LegacyHeaderSize + len(payload)
	if total >= MaxFrameSize {
		return nil, &FrameTooLargeError{Size: total, Limit: MaxFrameSize}
	}

	frame := make([]byte, total)
	binary.BigEndian.PutUint16(frame[0:2], uint16(total))
	frame[2] = byte(cmd)
	copy(frame[LegacyHeaderSize:], payload)
	return frame, nil
}

func (legacyProfile) ReadFrame(r io.Reader) ([]byte, error) {
	head := make([]byte, 2)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	size := int(binary.BigEndian.Uint16(head))
	if size < LegacyHeaderSize {
		return nil, newValidationError("size field %d smaller than header (%d)", size, LegacyHeaderSize)
	}
	if size >= MaxFrameSize {
		return nil, newValidationError("size field %d exceeds frame limit", size)
	}

	frame := make([]byte, size)
	copy(frame, head)
	if _, err := io.ReadFull(r, frame[2:]); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}
	return frame, nil
}

func (legacyProfile) Parse(raw []byte) (*Frame, error) {
	if len(raw) < LegacyHeaderSize {
		return nil, newValidationError("frame too small: %d bytes (minimum %d)", len(raw), LegacyHeaderSize)
	}
	if len(raw) >= MaxFrameSize {
		return nil, newValidationError("frame too large: %d bytes", len(raw))
	}

	size := int(binary.BigEndian.Uint16(raw[0:2]))
	if size != len(raw) {
		return nil, newValidationError("size field %d does not match frame length %d", size, len(raw))
	}

	cmd := Command(raw[2])
	if !cmd.Valid() {
		return nil, newValidationError("unknown command: 0x%02x", byte(cmd))
	}

	return &Frame{
		Command: cmd,
		Payload: raw[LegacyHeaderSize:],
		Raw:     raw,
	}, nil
}

func (legacyProfile) Redact(frame []byte) []byte {
	return bytes.Clone(frame)
}
