package audio

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestWAVSource_8BitPassthrough(t *testing.T) {
	data := []int{0, 1, 128, 200, 255}
	path := writeWAV(t, DeviceSampleRate, 8, 1, data)

	clip, err := NewWAVSource().Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if clip.SampleRate != DeviceSampleRate {
		t.Errorf("SampleRate = %d, want %d", clip.SampleRate, DeviceSampleRate)
	}
	if len(clip.Samples) != len(data) {
		t.Fatalf("got %d samples, want %d", len(clip.Samples), len(data))
	}
	for i := range data {
		if clip.Samples[i] != data[i] {
			t.Errorf("sample %d = %d, want %d", i, clip.Samples[i], data[i])
		}
	}
}

func TestWAVSource_16BitStereo(t *testing.T) {
	// Interleaved L/R; only L is kept
	data := []int{-32768, 100, 0, 100, 32767, 100}
	path := writeWAV(t, 8000, 16, 2, data)

	clip, err := NewWAVSource().Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := []int{0, 128, 255}
	if len(clip.Samples) != len(want) {
		t.Fatalf("got %v, want %v", clip.Samples, want)
	}
	for i := range want {
		if clip.Samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, clip.Samples[i], want[i])
		}
	}
	if clip.Duration() != float64(3)/8000 {
		t.Errorf("Duration() = %v", clip.Duration())
	}
}

func TestWAVSource_Errors(t *testing.T) {
	if _, err := NewWAVSource().Read(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Read() should fail for a missing file")
	}

	junk := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(junk, []byte("definitely not RIFF data"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWAVSource().Read(junk); err == nil {
		t.Error("Read() should fail for a non-WAV file")
	}
}

func TestToUnsigned8(t *testing.T) {
	if _, err := toUnsigned8([]int{1}, 12, 1); err == nil {
		t.Error("12-bit input should be rejected")
	}

	got, err := toUnsigned8([]int{-8388608, 8388607}, 24, 1)
	if err != nil {
		t.Fatalf("toUnsigned8() error = %v", err)
	}
	if got[0] != 0 || got[1] != 255 {
		t.Errorf("24-bit scaling = %v, want [0 255]", got)
	}
}

func TestClipDurationZeroRate(t *testing.T) {
	if (&Clip{Samples: []int{1, 2}}).Duration() != 0 {
		t.Error("zero sample rate should report zero duration")
	}
}
