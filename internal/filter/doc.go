// Package filter reduces the ratings log to the movies that have a poster.
//
// The Filter loads movie and user metadata, builds the has-poster set from
// mov_id<id>.jpg files in the poster directory, and appends every ratings
// line whose movie id is in that set to the output file. Lines keep their
// content and order; only the last appended line loses trailing whitespace.
package filter
