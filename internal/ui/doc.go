// Package ui provides terminal output for the doorbellctl CLI.
//
// This package uses Bubble Tea and Lipgloss to render command output. Most
// components follow a "render once" pattern; the upload progress bar is the
// only live display.
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success/failure boxes with details or troubleshooting tips
//   - UploadModel: chunk progress bar driven by device.ProgressFunc
//   - Printer: writes the above to an io.Writer
//
// When stdout is not a terminal, RunUpload falls back to one plain line per
// acknowledged chunk so output stays readable in logs and pipes.
//
// # Logging Integration
//
// Logging is controlled via DOORBELL_LOG_LEVEL or --log-level. When unset,
// zap logging is silent so the styled output is displayed cleanly.
package ui
