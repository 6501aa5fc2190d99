package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/muurk/doorbell/internal/protocol"
)

var wantToken = protocol.Token{1, 2, 3, 4, 5, 6, 7, 8}

func TestFileStore_LoadToken(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content []byte
		wantErr bool
	}{
		{name: "raw", content: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{name: "raw with newline byte", content: []byte{1, 2, 3, 4, 5, 6, 7, '\n'}, wantErr: false},
		{name: "hex", content: []byte("0102030405060708")},
		{name: "hex with newline", content: []byte("0102030405060708\n")},
		{name: "hex with crlf", content: []byte("0102030405060708\r\n")},
		{name: "too short", content: []byte{1, 2, 3}, wantErr: true},
		{name: "bad hex", content: []byte("zz02030405060708"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := tt.name + ".bin"
			if err := os.WriteFile(filepath.Join(dir, name), tt.content, 0o600); err != nil {
				t.Fatal(err)
			}

			tok, err := NewFileStore(dir).LoadToken(name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.name == "raw with newline byte" {
				// 8 raw bytes are taken verbatim, even when the last one is '\n'
				if tok[7] != '\n' {
					t.Errorf("last token byte = %d, want newline", tok[7])
				}
				return
			}
			if tok != wantToken {
				t.Errorf("LoadToken() = %v, want %v", tok.Bytes(), wantToken.Bytes())
			}
		})
	}
}

func TestFileStore_DefaultAndAbsolute(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultTokenFile), wantToken[:], 0o600); err != nil {
		t.Fatal(err)
	}

	tok, err := NewFileStore(dir).LoadToken("")
	if err != nil {
		t.Fatalf("LoadToken(\"\") error = %v", err)
	}
	if tok != wantToken {
		t.Error("default token file not used")
	}

	tok, err = NewFileStore("/nonexistent").LoadToken(filepath.Join(dir, DefaultTokenFile))
	if err != nil {
		t.Fatalf("absolute LoadToken() error = %v", err)
	}
	if tok != wantToken {
		t.Error("absolute path should bypass Dir")
	}
}

func TestFileStore_Missing(t *testing.T) {
	if _, err := NewFileStore(t.TempDir()).LoadToken("nope"); err == nil {
		t.Error("LoadToken() should fail for a missing file")
	}
}

func TestStatic(t *testing.T) {
	var s Store = Static(wantToken)
	tok, err := s.LoadToken("anything")
	if err != nil || tok != wantToken {
		t.Errorf("Static.LoadToken() = %v, %v", tok.Bytes(), err)
	}
}
