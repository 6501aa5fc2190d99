package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

var testToken = Token{1, 2, 3, 4, 5, 6, 7, 8}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{name: "empty", data: nil, want: 0},
		{name: "single byte", data: []byte{1}, want: 0xFF},
		{name: "wraps", data: []byte{0xFF, 0x02}, want: 0xFF},
		{name: "play example", data: []byte{0, 12, 1, 2, 3, 4, 5, 6, 7, 8, 2, 4}, want: 0xCA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = 0x%02x, want 0x%02x", got, tt.want)
			}
		})
	}
}

func TestChecksumSumsToZero(t *testing.T) {
	data := make([]byte, 0, 600)
	for i := 0; i < 600; i++ {
		data = append(data, byte(i*37+11))

		var sum byte
		for _, b := range data {
			sum += b
		}
		if sum+Checksum(data) != 0 {
			t.Fatalf("checksum law broken for length %d", len(data))
		}
	}
}

func TestVerifyChecksum(t *testing.T) {
	frame, err := Checksummed.Build(CmdPrintString, []byte("hello"), testToken)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !VerifyChecksum(frame) {
		t.Error("VerifyChecksum() = false for freshly built frame")
	}

	frame[len(frame)-1] ^= 0x01
	if VerifyChecksum(frame) {
		t.Error("VerifyChecksum() = true after corrupting payload")
	}

	if VerifyChecksum(nil) {
		t.Error("VerifyChecksum(nil) should be false")
	}
}

func TestChecksummedBuild(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		payload []byte
		wantErr bool
	}{
		{name: "empty payload", cmd: CmdPrintString, payload: []byte{}},
		{name: "single byte payload", cmd: CmdPlayAudio, payload: []byte{4}},
		{name: "upload sized payload", cmd: CmdUploadAudioStart, payload: make([]byte, 1+MaxChunkSamples)},
		{name: "largest payload", cmd: CmdPrintString, payload: make([]byte, MaxFrameSize-1-ChecksummedOverhead)},
		{name: "one byte too many", cmd: CmdPrintString, payload: make([]byte, MaxFrameSize-ChecksummedOverhead), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Checksummed.Build(tt.cmd, tt.payload, testToken)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsFrameTooLarge(err) {
					t.Errorf("Build() error = %T, want FrameTooLargeError", err)
				}
				return
			}

			size := int(binary.BigEndian.Uint16(frame[1:3]))
			if size != len(frame)-1 {
				t.Errorf("size field = %d, want len-1 = %d", size, len(frame)-1)
			}
			if size != HeaderSize+len(tt.payload) {
				t.Errorf("size field = %d, want %d", size, HeaderSize+len(tt.payload))
			}
			if len(frame) >= MaxFrameSize {
				t.Errorf("frame length %d not below %d", len(frame), MaxFrameSize)
			}
			if !bytes.Equal(frame[3:11], testToken[:]) {
				t.Errorf("token bytes = %v, want %v", frame[3:11], testToken[:])
			}
			if Command(frame[11]) != tt.cmd {
				t.Errorf("command = %v, want %v", Command(frame[11]), tt.cmd)
			}
			if !VerifyChecksum(frame) {
				t.Error("frame does not sum to zero")
			}
		})
	}
}

func TestChecksummedBuild_PlayExample(t *testing.T) {
	frame, err := Checksummed.Build(CmdPlayAudio, []byte{4}, testToken)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []byte{0xCA, 0, 12, 1, 2, 3, 4, 5, 6, 7, 8, 2, 4}
	if !bytes.Equal(frame, want) {
		t.Errorf("Build() = %v, want %v", frame, want)
	}
}

func TestChecksummedParse(t *testing.T) {
	valid, _ := Checksummed.Build(CmdDeleteFile, []byte{9}, testToken)

	badChecksum := bytes.Clone(valid)
	badChecksum[0]++

	badSize := bytes.Clone(valid)
	badSize[2]++

	badCommand, _ := Checksummed.Build(Command(0x42), nil, testToken)

	tests := []struct {
		name    string
		raw     []byte
		wantErr bool
	}{
		{name: "valid", raw: valid},
		{name: "too short", raw: valid[:5], wantErr: true},
		{name: "bad checksum", raw: badChecksum, wantErr: true},
		{name: "size mismatch", raw: badSize, wantErr: true},
		{name: "unknown command", raw: badCommand, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Checksummed.Parse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFrame) {
					t.Errorf("Parse() error should match ErrInvalidFrame, got %v", err)
				}
				return
			}
			if f.Command != CmdDeleteFile {
				t.Errorf("Command = %v, want %v", f.Command, CmdDeleteFile)
			}
			if f.Token != testToken {
				t.Error("Token does not round-trip")
			}
			if id, ok := f.FileID(); !ok || id != 9 {
				t.Errorf("FileID() = %d, %v, want 9, true", id, ok)
			}
		})
	}
}

func TestChecksummedReadFrame(t *testing.T) {
	first, _ := Checksummed.Build(CmdPrintString, []byte("one"), testToken)
	second, _ := Checksummed.Build(CmdPlayAudio, []byte{2}, testToken)

	r := bytes.NewReader(append(bytes.Clone(first), second...))

	got, err := Checksummed.ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Errorf("first frame = %v, want %v", got, first)
	}

	got, err = Checksummed.ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Errorf("second frame = %v, want %v", got, second)
	}

	if _, err := Checksummed.ReadFrame(r); !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame() at end error = %v, want io.EOF", err)
	}
}

func TestChecksummedReadFrame_RejectsBadSize(t *testing.T) {
	if _, err := Checksummed.ReadFrame(bytes.NewReader([]byte{0, 0, 3})); err == nil {
		t.Error("ReadFrame() should reject a size below the header size")
	}
	if _, err := Checksummed.ReadFrame(bytes.NewReader([]byte{0, 0x10, 0x00})); err == nil {
		t.Error("ReadFrame() should reject a size at the frame limit")
	}
}

func TestChecksummedRedact(t *testing.T) {
	frame, _ := Checksummed.Build(CmdPlayAudio, []byte{1}, testToken)
	redacted := Checksummed.Redact(frame)

	if bytes.Contains(redacted, testToken[:]) {
		t.Error("Redact() left token bytes in place")
	}
	if !bytes.Equal(redacted[3:11], []byte("********")) {
		t.Errorf("Redact() token bytes = %q", redacted[3:11])
	}
	if !bytes.Equal(frame[3:11], testToken[:]) {
		t.Error("Redact() modified the original frame")
	}
}

func TestLegacyBuild(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		payload []byte
		want    []byte
		wantErr bool
	}{
		{name: "play", cmd: CmdPlayAudio, payload: []byte{3}, want: []byte{0, 4, 2, 3}},
		{name: "delete", cmd: CmdDeleteFile, payload: []byte{1}, want: []byte{0, 4, 5, 1}},
		{name: "print", cmd: CmdPrintString, payload: []byte("hi"), want: []byte{0, 5, 1, 'h', 'i'}},
		{name: "too large", cmd: CmdPrintString, payload: make([]byte, MaxFrameSize-LegacyHeaderSize), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Legacy.Build(tt.cmd, tt.payload, testToken)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !bytes.Equal(frame, tt.want) {
				t.Errorf("Build() = %v, want %v", frame, tt.want)
			}

			parsed, err := Legacy.Parse(frame)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if parsed.Command != tt.cmd {
				t.Errorf("Command = %v, want %v", parsed.Command, tt.cmd)
			}
			if !parsed.Token.IsZero() {
				t.Error("legacy frames carry no token")
			}
		})
	}
}

func TestLegacyReadFrame(t *testing.T) {
	frame, _ := Legacy.Build(CmdPrintString, []byte("legacy"), Token{})
	got, err := Legacy.ReadFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("ReadFrame() = %v, want %v", got, frame)
	}
}

func TestProfileByName(t *testing.T) {
	tests := []struct {
		name    string
		want    Profile
		wantAck string
		wantErr bool
	}{
		{name: "", want: Checksummed, wantAck: "ACK\r\n"},
		{name: "checksummed", want: Checksummed, wantAck: "ACK\r\n"},
		{name: "legacy", want: Legacy, wantAck: "ack"},
		{name: "v3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ProfileByName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProfileByName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p != tt.want {
				t.Errorf("ProfileByName() = %s, want %s", p.Name(), tt.want.Name())
			}
			if string(p.Ack()) != tt.wantAck {
				t.Errorf("Ack() = %q, want %q", p.Ack(), tt.wantAck)
			}
		})
	}
}

func TestIsAck(t *testing.T) {
	tests := []struct {
		reply []byte
		want  bool
	}{
		{reply: []byte("ACK\r\n"), want: true},
		{reply: []byte("ACK"), want: false},
		{reply: []byte("ack"), want: false},
		{reply: []byte("ACK\r\nACK\r\n"), want: false},
		{reply: nil, want: false},
	}

	for _, tt := range tests {
		if got := IsAck(Checksummed, tt.reply); got != tt.want {
			t.Errorf("IsAck(%q) = %v, want %v", tt.reply, got, tt.want)
		}
	}
}

func TestTokenIsNeverFormatted(t *testing.T) {
	tok, err := ParseHexToken("0102030405060708")
	if err != nil {
		t.Fatalf("ParseHexToken() error = %v", err)
	}
	if tok != testToken {
		t.Errorf("ParseHexToken() = %v, want testToken", tok.Bytes())
	}
	if s := tok.String(); s != "[REDACTED]" {
		t.Errorf("String() = %q", s)
	}

	if _, err := ParseToken([]byte{1, 2, 3}); !IsEncodingError(err) {
		t.Errorf("ParseToken(short) error = %v, want EncodingError", err)
	}
	if _, err := ParseHexToken("zz"); !IsEncodingError(err) {
		t.Errorf("ParseHexToken(bad) error = %v, want EncodingError", err)
	}
}
