// Package dataset reads the MovieLens-style inputs posterjoin works with: the
// poster join CSV, the `::`-delimited ratings log, and the movies and users
// metadata files.
//
// Ratings are surfaced as raw lines (terminator included) alongside their
// parsed fields so callers can copy them to an output file byte for byte.
// Malformed lines surface as *LineError values wrapping ErrMalformedLine.
package dataset
