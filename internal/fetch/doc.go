// Package fetch downloads poster images for every movie referenced by the
// ratings log.
//
// A Fetcher reads the join table that maps movie ids to poster URLs, walks
// the ratings log visiting each movie id once in first-occurrence order, and
// stores mov_id<id>.jpg in the poster directory unless it is already there.
// Movies without a join entry and failed downloads are logged and counted;
// neither stops the run. Each outcome can be recorded in the run ledger.
package fetch
