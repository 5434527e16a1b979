// Package log provides structured event logging for the connection
// lifecycle.
//
// Applications implement the Logger interface (or use one of the
// provided implementations) to observe state transitions, control
// messages, buffer activity, and errors. Events are structured values
// rather than formatted strings so they can be captured to a CBOR
// stream and replayed later.
//
// Provided implementations:
//   - NoopLogger: discards everything (the default)
//   - SlogAdapter: bridges events to log/slog for console output
//   - FileLogger: appends CBOR-encoded events to a file
//   - MultiLogger: fans out to several loggers at once
package log
