// Package audio decodes clips into the unsigned 8-bit mono samples the
// doorbell firmware plays back.
package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/muurk/doorbell/internal/logging"
)

// DeviceSampleRate is the playback rate of the doorbell DAC
const DeviceSampleRate = 16000

// Clip is a decoded audio file
type Clip struct {
	SampleRate int
	Samples    []int // Unsigned 8-bit values, 0..255
}

// Duration returns the clip length in seconds
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Source loads clips by name
type Source interface {
	Read(name string) (*Clip, error)
}

// WAVSource reads PCM WAV files from disk.
//
// 8-bit files pass through unchanged. Wider PCM is scaled down to unsigned
// 8-bit, and only the first channel of multi-channel files is kept.
type WAVSource struct{}

// NewWAVSource creates a WAV file source
func NewWAVSource() *WAVSource {
	return &WAVSource{}
}

// Read decodes the WAV file at path
func (s *WAVSource) Read(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	samples, err := toUnsigned8(buf.Data, int(dec.BitDepth), channels)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", path, err)
	}

	clip := &Clip{
		SampleRate: int(dec.SampleRate),
		Samples:    samples,
	}

	if clip.SampleRate != DeviceSampleRate {
		logging.Warn("Clip sample rate differs from device playback rate",
			zap.String("file", path),
			zap.Int("sample_rate", clip.SampleRate),
			zap.Int("device_rate", DeviceSampleRate),
		)
	}
	logging.Debug("Decoded audio file",
		zap.String("file", path),
		zap.Int("bit_depth", int(dec.BitDepth)),
		zap.Int("channels", channels),
		zap.Int("samples", len(samples)),
	)

	return clip, nil
}

// toUnsigned8 keeps channel 0 of interleaved data and maps it onto 0..255
func toUnsigned8(data []int, bitDepth, channels int) ([]int, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	out := make([]int, 0, len(data)/channels)
	for i := 0; i < len(data); i += channels {
		v := data[i]
		if bitDepth > 8 {
			// Signed PCM: drop the low bits and recentre on 128
			v = (v >> (bitDepth - 8)) + 128
		}
		out = append(out, v)
	}
	return out, nil
}
