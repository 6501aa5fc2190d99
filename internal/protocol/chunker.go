package protocol

import (
	"io"
)

const (
	// MaxChunkSamples is the number of samples carried by one upload frame
	MaxChunkSamples = 4000

	// MinSampleValue is the lowest sample the device accepts in-stream.
	// The firmware treats 0 as a terminator.
	MinSampleValue = 1

	// MaxSampleValue is the highest sample value that fits in one byte
	MaxSampleValue = 255
)

// Chunk is one bounded slice of an upload
type Chunk struct {
	Index int    // Zero-based chunk number
	First bool   // Only true for the chunk that starts the upload
	Data  []byte // Clamped samples, one byte each
}

// Chunker splits a sample sequence into upload chunks. It is forward-only:
// every call to Next consumes samples, and once io.EOF is returned the
// chunker stays exhausted.
type Chunker struct {
	samples []int
	pos     int
	index   int
	size    int
	err     error
}

// NewChunker creates a chunker producing MaxChunkSamples-sized chunks
func NewChunker(samples []int) *Chunker {
	return NewChunkerSize(samples, MaxChunkSamples)
}

// NewChunkerSize creates a chunker with a custom chunk size.
// Sizes outside 1..MaxChunkSamples fall back to MaxChunkSamples.
func NewChunkerSize(samples []int, size int) *Chunker {
	if size <= 0 || size > MaxChunkSamples {
		size = MaxChunkSamples
	}
	return &Chunker{samples: samples, size: size}
}

// Next returns the next chunk, or io.EOF when no samples remain.
// A sample above MaxSampleValue yields an EncodingError and ends the sequence.
func (c *Chunker) Next() (Chunk, error) {
	if c.err != nil {
		return Chunk{}, c.err
	}
	if c.pos >= len(c.samples) {
		c.err = io.EOF
		return Chunk{}, c.err
	}

	end := c.pos + c.size
	if end > len(c.samples) {
		end = len(c.samples)
	}

	data := make([]byte, end-c.pos)
	for i, s := range c.samples[c.pos:end] {
		if s < MinSampleValue {
			s = MinSampleValue
		}
		if s > MaxSampleValue {
			c.err = newEncodingError("sample", "value %d at offset %d exceeds %d", s, c.pos+i, MaxSampleValue)
			return Chunk{}, c.err
		}
		data[i] = byte(s)
	}

	chunk := Chunk{
		Index: c.index,
		First: c.index == 0,
		Data:  data,
	}
	c.pos = end
	c.index++
	return chunk, nil
}

// ValidateSamples reports the first sample above MaxSampleValue as an
// EncodingError. Values below MinSampleValue are clamped, not rejected.
func ValidateSamples(samples []int) error {
	for i, s := range samples {
		if s > MaxSampleValue {
			return newEncodingError("sample", "value %d at offset %d exceeds %d", s, i, MaxSampleValue)
		}
	}
	return nil
}

// Remaining returns the number of samples not yet consumed
func (c *Chunker) Remaining() int {
	return len(c.samples) - c.pos
}

// Total returns the number of chunks the full sequence splits into
func (c *Chunker) Total() int {
	return (len(c.samples) + c.size - 1) / c.size
}
