package protocol

import (
	"unicode/utf8"
)

// Message constructor library for building frames to send to the doorbell

// MaxFileID is the highest file slot the firmware addresses
const MaxFileID = 255

// Encoder builds frames for each logical command using one profile and token.
// It holds no mutable state: identical calls produce identical frames.
type Encoder struct {
	Profile Profile
	Token   Token
}

// NewEncoder creates an encoder. A nil profile selects Checksummed.
func NewEncoder(profile Profile, token Token) *Encoder {
	if profile == nil {
		profile = Checksummed
	}
	return &Encoder{Profile: profile, Token: token}
}

// PlayAudio builds a play command for a stored clip
//
// Payload Structure:
//
//	[0]     fileID
func (e *Encoder) PlayAudio(fileID int) ([]byte, error) {
	id, err := checkFileID(fileID)
	if err != nil {
		return nil, err
	}
	return e.Profile.Build(CmdPlayAudio, []byte{id}, e.Token)
}

// DeleteFile builds a delete command for a stored clip
//
// Payload Structure:
//
//	[0]     fileID
func (e *Encoder) DeleteFile(fileID int) ([]byte, error) {
	id, err := checkFileID(fileID)
	if err != nil {
		return nil, err
	}
	return e.Profile.Build(CmdDeleteFile, []byte{id}, e.Token)
}

// PrintString builds a diagnostic print command. The text is sent as UTF-8
// without terminator; text that does not fit in one frame is rejected with
// FrameTooLargeError.
func (e *Encoder) PrintString(text string) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, newEncodingError("text", "not valid UTF-8")
	}
	return e.Profile.Build(CmdPrintString, []byte(text), e.Token)
}

// UploadChunk builds one audio upload frame. The first chunk of a file uses
// UploadAudioStart, which makes the device reset its buffer; later chunks use
// UploadAudioContinue and are appended.
//
// Payload Structure:
//
//	[0]     fileID
//	[1+]    samples (one byte each)
func (e *Encoder) UploadChunk(fileID int, chunk []byte, first bool) ([]byte, error) {
	id, err := checkFileID(fileID)
	if err != nil {
		return nil, err
	}

	cmd := CmdUploadAudioContinue
	if first {
		cmd = CmdUploadAudioStart
	}

	payload := make([]byte, 1+len(chunk))
	payload[0] = id
	copy(payload[1:], chunk)
	return e.Profile.Build(cmd, payload, e.Token)
}

func checkFileID(fileID int) (byte, error) {
	if fileID < 0 || fileID > MaxFileID {
		return 0, newEncodingError("file id", "%d out of range 0..%d", fileID, MaxFileID)
	}
	return byte(fileID), nil
}
