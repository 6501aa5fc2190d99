// Package credentials loads the shared token flashed into the doorbell firmware.
package credentials

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/muurk/doorbell/internal/logging"
	"github.com/muurk/doorbell/internal/protocol"
)

// DefaultTokenFile is the token file name looked up in the config directory
const DefaultTokenFile = "token.bin"

// Store loads a token by name
type Store interface {
	LoadToken(name string) (protocol.Token, error)
}

// FileStore reads tokens from files. Relative names resolve against Dir.
//
// A token file holds either the 8 raw token bytes, or the same bytes as 16
// hex characters with an optional trailing newline.
type FileStore struct {
	Dir string
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// LoadToken reads and parses the token file
func (s *FileStore) LoadToken(name string) (protocol.Token, error) {
	if name == "" {
		name = DefaultTokenFile
	}
	path := name
	if !filepath.IsAbs(path) && s.Dir != "" {
		path = filepath.Join(s.Dir, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return protocol.Token{}, fmt.Errorf("failed to read token file: %w", err)
	}

	info, err := os.Stat(path)
	if err == nil && info.Mode().Perm()&0o077 != 0 {
		logging.Warn("Token file is readable by other users",
			zap.String("path", path),
			zap.String("mode", info.Mode().Perm().String()),
		)
	}

	return ParseTokenData(data)
}

// ParseTokenData accepts raw or hex-encoded token bytes
func ParseTokenData(data []byte) (protocol.Token, error) {
	if len(data) == protocol.TokenSize {
		return protocol.ParseToken(data)
	}

	text := bytes.TrimRight(data, "\r\n")
	if len(text) == 2*protocol.TokenSize {
		return protocol.ParseHexToken(string(text))
	}

	return protocol.Token{}, fmt.Errorf("token file must hold %d raw bytes or %d hex characters, got %d bytes",
		protocol.TokenSize, 2*protocol.TokenSize, len(data))
}

// Static is a Store that always returns the same token
type Static protocol.Token

// LoadToken implements Store
func (s Static) LoadToken(string) (protocol.Token, error) {
	return protocol.Token(s), nil
}
