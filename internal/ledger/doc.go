// Package ledger persists posterjoin run history in SQLite.
//
// Each fetch or filter invocation becomes a run row carrying its summary as
// JSON; fetch runs additionally record one outcome row per distinct movie id
// (downloaded, present, missing, failed). The status command reads the ledger
// to show what the last runs did without re-scanning the dataset.
package ledger
