package protocol

import (
	"encoding/hex"
	"fmt"
)

// Command identifies the operation carried by a frame
type Command byte

// Command codes understood by the firmware
const (
	CmdPrintString         Command = 1
	CmdPlayAudio           Command = 2
	CmdUploadAudioStart    Command = 3
	CmdUploadAudioContinue Command = 4
	CmdDeleteFile          Command = 5
)

// String returns a human-readable command name
func (c Command) String() string {
	switch c {
	case CmdPrintString:
		return "print_string"
	case CmdPlayAudio:
		return "play_audio"
	case CmdUploadAudioStart:
		return "upload_audio_start"
	case CmdUploadAudioContinue:
		return "upload_audio_continue"
	case CmdDeleteFile:
		return "delete_file"
	default:
		return fmt.Sprintf("unknown(0x%02X)", byte(c))
	}
}

// Valid reports whether c is one of the known commands
func (c Command) Valid() bool {
	return c >= CmdPrintString && c <= CmdDeleteFile
}

// TokenSize is the length of the shared authentication token
const TokenSize = 8

// Token is the shared secret embedded in every checksummed frame.
// It formats as a redacted placeholder so it never ends up in logs.
type Token [TokenSize]byte

// ParseToken copies b into a Token. b must be exactly TokenSize bytes.
func ParseToken(b []byte) (Token, error) {
	var t Token
	if len(b) != TokenSize {
		return t, newEncodingError("token", "expected %d bytes, got %d", TokenSize, len(b))
	}
	copy(t[:], b)
	return t, nil
}

// ParseHexToken decodes a 16 character hex string into a Token
func ParseHexToken(s string) (Token, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Token{}, newEncodingError("token", "not hex: %v", err)
	}
	return ParseToken(b)
}

// Bytes returns a copy of the raw token bytes
func (t Token) Bytes() []byte {
	b := make([]byte, TokenSize)
	copy(b, t[:])
	return b
}

// IsZero reports whether the token is unset
func (t Token) IsZero() bool {
	return t == Token{}
}

func (t Token) String() string {
	return "[REDACTED]"
}

// GoString keeps %#v from printing the raw bytes
func (t Token) GoString() string {
	return "protocol.Token{[REDACTED]}"
}
