// Package protocol implements the doorbell device packet protocol.
//
// This package handles construction, checksumming, parsing and validation of
// the binary frames exchanged with the doorbell firmware, plus the chunking of
// audio sample streams into upload frames.
//
// # Frame Format
//
// The current firmware accepts frames with this structure:
//
//	[0]      checksum   (-sum(bytes[1:])) mod 256
//	[1-2]    size       11 + len(payload), big-endian
//	[3-10]   token      8-byte shared secret
//	[11]     command    see Command
//	[12+]    payload    command-specific
//
// Every byte of a valid frame, checksum included, sums to zero modulo 256.
// Frames are limited to 4095 bytes in total.
//
// Earlier firmware used a shorter format without checksum or token:
//
//	[0-1]    size       total frame length, big-endian
//	[2]      command
//	[3+]     payload
//
// Both formats are available as a Profile. Checksummed is the default;
// Legacy is kept for devices that were never reflashed.
//
// # Commands
//
//   - PrintString: payload is UTF-8 text without terminator
//   - PlayAudio: payload is [fileID]
//   - UploadAudioStart: payload is [fileID] + samples; resets the file buffer
//   - UploadAudioContinue: payload is [fileID] + samples; appends to the buffer
//   - DeleteFile: payload is [fileID]
//
// # Acknowledgment
//
// The device answers each accepted frame with a fixed literal: "ACK\r\n" for
// the checksummed profile and "ack" for the legacy profile. Any other reply is
// a rejection.
//
// # Usage Example
//
//	enc := protocol.NewEncoder(protocol.Checksummed, token)
//	frame, err := enc.PlayAudio(3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	chunker := protocol.NewChunker(samples)
//	for {
//	    chunk, err := chunker.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	    frame, err := enc.UploadChunk(fileID, chunk.Data, chunk.First)
//	}
//
// # Error Handling
//
// The package distinguishes between:
//   - FrameTooLargeError: the frame would exceed MaxFrameSize
//   - EncodingError: invalid input such as an out-of-range file ID
//   - ValidationError: a received frame is malformed or fails its checksum
//
// # Thread Safety
//
// All construction and parsing functions are stateless and safe for
// concurrent use. A Chunker is single-use and not safe for concurrent use.
package protocol
