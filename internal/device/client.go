// Package device exposes the doorbell command surface: play, delete, print
// and chunked audio upload.
package device

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/doorbell/internal/audio"
	"github.com/muurk/doorbell/internal/logging"
	"github.com/muurk/doorbell/internal/protocol"
)

// DefaultPacing is the wait after each acknowledged upload chunk. The
// firmware writes every chunk to flash before it can accept the next one.
const DefaultPacing = 1200 * time.Millisecond

// Sender delivers one frame and blocks until the device acknowledges it.
// *transport.Transport satisfies it.
type Sender interface {
	Send(frame []byte) error
}

// Progress describes an acknowledged upload chunk
type Progress struct {
	FileID       int
	Chunk        int // 1-based
	TotalChunks  int
	SamplesSent  int
	TotalSamples int
}

// Fraction returns the completed share of the upload, 0.0 - 1.0
func (p Progress) Fraction() float64 {
	if p.TotalSamples == 0 {
		return 1
	}
	return float64(p.SamplesSent) / float64(p.TotalSamples)
}

// ProgressFunc is called after each acknowledged chunk
type ProgressFunc func(Progress)

// Client sends commands to one doorbell
type Client struct {
	encoder *protocol.Encoder
	sender  Sender
	pacing  time.Duration
	sleep   func(time.Duration)
}

// Option customizes a Client
type Option func(*Client)

// WithPacing overrides the delay between upload chunks
func WithPacing(d time.Duration) Option {
	return func(c *Client) { c.pacing = d }
}

// WithSleep replaces time.Sleep for the pacing delay
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a client that encodes with encoder and sends through sender
func NewClient(encoder *protocol.Encoder, sender Sender, opts ...Option) *Client {
	c := &Client{
		encoder: encoder,
		sender:  sender,
		pacing:  DefaultPacing,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlayAudio plays stored clip fileID. The device has no deduplication, so a
// retried frame can play the clip twice.
func (c *Client) PlayAudio(fileID int) error {
	frame, err := c.encoder.PlayAudio(fileID)
	if err != nil {
		return fmt.Errorf("failed to encode play command: %w", err)
	}
	if err := c.sender.Send(frame); err != nil {
		return fmt.Errorf("play %d: %w", fileID, err)
	}
	logging.Info("Played clip", zap.Int("file_id", fileID))
	return nil
}

// DeleteFile removes stored clip fileID
func (c *Client) DeleteFile(fileID int) error {
	frame, err := c.encoder.DeleteFile(fileID)
	if err != nil {
		return fmt.Errorf("failed to encode delete command: %w", err)
	}
	if err := c.sender.Send(frame); err != nil {
		return fmt.Errorf("delete %d: %w", fileID, err)
	}
	logging.Info("Deleted clip", zap.Int("file_id", fileID))
	return nil
}

// PrintString writes text to the device's diagnostic console
func (c *Client) PrintString(text string) error {
	frame, err := c.encoder.PrintString(text)
	if err != nil {
		return fmt.Errorf("failed to encode print command: %w", err)
	}
	if err := c.sender.Send(frame); err != nil {
		return fmt.Errorf("print: %w", err)
	}
	logging.Info("Printed string", zap.Int("length", len(text)))
	return nil
}

// UploadFile stores clip under fileID. Chunks are sent strictly in order,
// each only after the previous one was acknowledged, followed by the pacing
// delay. The whole clip is validated before the first chunk is sent.
func (c *Client) UploadFile(fileID int, clip *audio.Clip, progress ProgressFunc) error {
	if clip == nil || len(clip.Samples) == 0 {
		return &protocol.EncodingError{Field: "clip", Message: "no samples to upload"}
	}
	if err := protocol.ValidateSamples(clip.Samples); err != nil {
		return fmt.Errorf("upload %d: %w", fileID, err)
	}

	chunker := protocol.NewChunker(clip.Samples)
	total := chunker.Total()
	sent := 0

	logging.Info("Uploading clip",
		zap.Int("file_id", fileID),
		zap.Int("samples", len(clip.Samples)),
		zap.Int("chunks", total),
	)

	for {
		chunk, err := chunker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("upload %d: %w", fileID, err)
		}

		frame, err := c.encoder.UploadChunk(fileID, chunk.Data, chunk.First)
		if err != nil {
			return fmt.Errorf("failed to encode chunk %d: %w", chunk.Index+1, err)
		}
		if err := c.sender.Send(frame); err != nil {
			return fmt.Errorf("upload %d chunk %d/%d: %w", fileID, chunk.Index+1, total, err)
		}

		sent += len(chunk.Data)
		logging.Debug("Chunk acknowledged",
			zap.Int("file_id", fileID),
			zap.Int("chunk", chunk.Index+1),
			zap.Int("total", total),
		)
		if progress != nil {
			progress(Progress{
				FileID:       fileID,
				Chunk:        chunk.Index + 1,
				TotalChunks:  total,
				SamplesSent:  sent,
				TotalSamples: len(clip.Samples),
			})
		}

		if c.pacing > 0 {
			c.sleep(c.pacing)
		}
	}

	logging.Info("Upload complete", zap.Int("file_id", fileID), zap.Int("chunks", total))
	return nil
}

// UploadFromSource reads name from source and uploads it under fileID
func (c *Client) UploadFromSource(fileID int, source audio.Source, name string, progress ProgressFunc) error {
	clip, err := source.Read(name)
	if err != nil {
		return err
	}
	return c.UploadFile(fileID, clip, progress)
}

// BatchItem is one clip of a batch upload
type BatchItem struct {
	FileID int
	Name   string
}

// UploadBatch uploads items one after another, stopping at the first error
func (c *Client) UploadBatch(items []BatchItem, source audio.Source, progress ProgressFunc) error {
	for _, item := range items {
		if err := c.UploadFromSource(item.FileID, source, item.Name, progress); err != nil {
			return fmt.Errorf("%s: %w", item.Name, err)
		}
	}
	return nil
}
