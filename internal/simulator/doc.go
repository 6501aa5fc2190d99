// Package simulator emulates the doorbell firmware over TCP.
//
// The simulator accepts one frame per connection, validates it the way the
// firmware does and answers with the profile's acknowledgment literal. Valid
// commands are applied to an in-memory file table so tests and the
// doorbell-sim binary can observe what a client actually stored.
//
// # File table
//
//   - upload_audio_start replaces the file's contents with the chunk
//   - upload_audio_continue appends, and is rejected for a file never started
//   - delete_file removes the file (deleting a missing file is accepted)
//   - play_audio and print_string are recorded in order
//
// # Fault injection
//
// Config.RejectFirst makes the simulator answer the first n frames with a
// non-ack reply before processing them, which exercises client retries.
package simulator
