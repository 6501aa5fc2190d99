package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncoderPlayAudio(t *testing.T) {
	enc := NewEncoder(Checksummed, testToken)

	frame, err := enc.PlayAudio(4)
	if err != nil {
		t.Fatalf("PlayAudio() error = %v", err)
	}

	want := []byte{0xCA, 0, 12, 1, 2, 3, 4, 5, 6, 7, 8, 2, 4}
	if !bytes.Equal(frame, want) {
		t.Errorf("PlayAudio(4) = %v, want %v", frame, want)
	}
	// checksum + size(2) + token(8) + command + file id
	if len(frame) != 13 {
		t.Errorf("frame length = %d, want 13", len(frame))
	}
}

func TestEncoderIsPure(t *testing.T) {
	enc := NewEncoder(nil, testToken)

	a, err := enc.PlayAudio(3)
	if err != nil {
		t.Fatalf("PlayAudio() error = %v", err)
	}
	b, _ := enc.PlayAudio(3)
	if !bytes.Equal(a, b) {
		t.Errorf("repeated PlayAudio(3) differ: %v vs %v", a, b)
	}
	if enc.Profile != Checksummed {
		t.Errorf("nil profile should default to checksummed, got %s", enc.Profile.Name())
	}
}

func TestEncoderFileIDRange(t *testing.T) {
	enc := NewEncoder(Checksummed, testToken)

	tests := []struct {
		name    string
		build   func(id int) ([]byte, error)
		id      int
		wantErr bool
	}{
		{name: "play 0", build: enc.PlayAudio, id: 0},
		{name: "play 255", build: enc.PlayAudio, id: 255},
		{name: "play 256", build: enc.PlayAudio, id: 256, wantErr: true},
		{name: "play -1", build: enc.PlayAudio, id: -1, wantErr: true},
		{name: "delete 7", build: enc.DeleteFile, id: 7},
		{name: "delete 1000", build: enc.DeleteFile, id: 1000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := tt.build(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsEncodingError(err) {
					t.Errorf("error = %T, want EncodingError", err)
				}
				if !IsFatal(err) {
					t.Error("encoding errors must be fatal")
				}
				return
			}
			if frame[len(frame)-1] != byte(tt.id) {
				t.Errorf("file id byte = %d, want %d", frame[len(frame)-1], tt.id)
			}
		})
	}
}

func TestEncoderDeleteFile(t *testing.T) {
	enc := NewEncoder(Checksummed, testToken)
	frame, err := enc.DeleteFile(2)
	if err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}

	f, err := Checksummed.Parse(frame)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.Command != CmdDeleteFile {
		t.Errorf("Command = %v, want %v", f.Command, CmdDeleteFile)
	}
	if !bytes.Equal(f.Payload, []byte{2}) {
		t.Errorf("Payload = %v, want [2]", f.Payload)
	}
}

func TestEncoderPrintString(t *testing.T) {
	enc := NewEncoder(Checksummed, testToken)
	maxText := Checksummed.MaxPayload()

	tests := []struct {
		name      string
		text      string
		wantErr   bool
		wantLarge bool
	}{
		{name: "ascii", text: "hello doorbell"},
		{name: "utf-8", text: "Grüße 🔔"},
		{name: "empty", text: ""},
		{name: "largest", text: strings.Repeat("a", maxText)},
		{name: "too long", text: strings.Repeat("a", maxText+1), wantErr: true, wantLarge: true},
		{name: "invalid utf-8", text: string([]byte{0xff, 0xfe}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := enc.PrintString(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PrintString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if tt.wantLarge != IsFrameTooLarge(err) {
					t.Errorf("PrintString() error = %v, wantLarge %v", err, tt.wantLarge)
				}
				return
			}

			f, err := Checksummed.Parse(frame)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if f.Command != CmdPrintString {
				t.Errorf("Command = %v, want %v", f.Command, CmdPrintString)
			}
			if string(f.Payload) != tt.text {
				t.Errorf("Payload = %q, want %q", f.Payload, tt.text)
			}
		})
	}
}

func TestEncoderUploadChunk(t *testing.T) {
	enc := NewEncoder(Checksummed, testToken)
	samples := []byte{10, 20, 30}

	first, err := enc.UploadChunk(6, samples, true)
	if err != nil {
		t.Fatalf("UploadChunk(first) error = %v", err)
	}
	next, err := enc.UploadChunk(6, samples, false)
	if err != nil {
		t.Fatalf("UploadChunk(continue) error = %v", err)
	}

	for _, tc := range []struct {
		frame []byte
		cmd   Command
	}{
		{first, CmdUploadAudioStart},
		{next, CmdUploadAudioContinue},
	} {
		f, err := Checksummed.Parse(tc.frame)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if f.Command != tc.cmd {
			t.Errorf("Command = %v, want %v", f.Command, tc.cmd)
		}
		if !bytes.Equal(f.Payload, []byte{6, 10, 20, 30}) {
			t.Errorf("Payload = %v, want [6 10 20 30]", f.Payload)
		}
	}

	if _, err := enc.UploadChunk(6, make([]byte, MaxChunkSamples), true); err != nil {
		t.Errorf("full chunk should fit in a frame: %v", err)
	}
}

func TestEncoderLegacyProfile(t *testing.T) {
	enc := NewEncoder(Legacy, testToken)

	frame, err := enc.UploadChunk(1, []byte{5, 5}, true)
	if err != nil {
		t.Fatalf("UploadChunk() error = %v", err)
	}
	want := []byte{0, 6, 3, 1, 5, 5}
	if !bytes.Equal(frame, want) {
		t.Errorf("UploadChunk() = %v, want %v", frame, want)
	}
}
