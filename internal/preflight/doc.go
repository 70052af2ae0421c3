// Package preflight provides readiness checks for the dataset files, the
// writable directories and the poster source that posterjoin depends on.
//
// The CLI "posterjoin check" command runs RunAll before a long fetch so a
// missing ratings file or an unreachable poster host is reported up front.
package preflight
