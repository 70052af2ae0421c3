package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Rating is one `user_id::movie_id::score::timestamp` record. Raw holds the
// line exactly as read, terminator included.
type Rating struct {
	UserID  int
	MovieID int
	Score   int
	Raw     string
}

// ratingFields is the field count of a ratings line, timestamp included.
const ratingFields = 4

// MovieIDField returns the second field of a ratings line as text. Only the
// separator count is checked; the value is not parsed.
func MovieIDField(raw string) (string, bool) {
	parts := strings.SplitN(raw, FieldSeparator, 3)
	if len(parts) < 2 {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// ParseRating parses user, movie and score as integers and drops the
// timestamp. The line must carry exactly four fields.
func ParseRating(raw string) (Rating, error) {
	parts := strings.Split(strings.TrimSpace(raw), FieldSeparator)
	if len(parts) != ratingFields {
		return Rating{}, fmt.Errorf("expected %d fields, got %d", ratingFields, len(parts))
	}
	values := make([]int, 3)
	names := [...]string{"user_id", "movie_id", "score"}
	for i := range values {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return Rating{}, fmt.Errorf("%s %q is not an integer", names[i], parts[i])
		}
		values[i] = v
	}
	return Rating{UserID: values[0], MovieID: values[1], Score: values[2], Raw: raw}, nil
}

// EachRating streams the ratings log, stopping at the first malformed line.
func EachRating(path string, fn func(Rating) error) error {
	return EachLine(path, func(lineNo int, raw string) error {
		rating, err := ParseRating(raw)
		if err != nil {
			return &LineError{Path: path, Line: lineNo, Reason: err.Error()}
		}
		return fn(rating)
	})
}

// EachRatedMovie streams the movie id field of every ratings line.
func EachRatedMovie(path string, fn func(lineNo int, movieID string) error) error {
	return EachLine(path, func(lineNo int, raw string) error {
		movieID, ok := MovieIDField(raw)
		if !ok {
			return &LineError{Path: path, Line: lineNo, Reason: "missing movie id field"}
		}
		return fn(lineNo, movieID)
	})
}
