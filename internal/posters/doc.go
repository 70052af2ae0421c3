// Package posters owns the on-disk poster layout and the HTTP downloader that
// fills it.
//
// A poster for movie id N lives at <poster_dir>/mov_idN.jpg. Presence of that
// file is the only signal the filter uses, so downloads are written
// atomically and a failed download never leaves a file behind.
package posters
