// Package logging assembles the structured slog loggers used by posterjoin.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so fetch and filter runs tag every
// line with the same component, run id, and warning fields. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
