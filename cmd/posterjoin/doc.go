// Package main hosts the posterjoin CLI entrypoint and command graph.
//
// The Cobra command tree exposes the poster fetcher and the rating filter as
// separate commands, plus run history from the ledger and configuration
// scaffolding. Configuration resolution, logger construction and ledger
// access live in commandContext so each command only wires flags to the
// internal packages.
package main
