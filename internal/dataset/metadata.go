package dataset

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Movies maps a movie id to its remaining raw fields (title, genres).
type Movies map[int][]string

// Users maps a user id to gender, age and occupation. The trailing zip code
// field is not kept.
type Users map[int][]string

// ReadMovies loads `movie_id::title::genres` records. The file is decoded as
// ISO-8859-1, which is how the MovieLens 1M titles are encoded.
func ReadMovies(path string) (Movies, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open movies: %w", err)
	}
	defer file.Close()

	movies := Movies{}
	decoded := charmap.ISO8859_1.NewDecoder().Reader(file)
	err = readKeyed(path, decoded, func(id int, fields []string) {
		movies[id] = fields[1:]
	})
	if err != nil {
		return nil, err
	}
	return movies, nil
}

// ReadUsers loads `user_id::gender::age::occupation::zipcode` records.
func ReadUsers(path string) (Users, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open users: %w", err)
	}
	defer file.Close()

	users := Users{}
	err = readKeyed(path, file, func(id int, fields []string) {
		users[id] = fields[1 : len(fields)-1]
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// readKeyed splits each trimmed line on the separator and parses field 0 as
// the integer key. Later lines overwrite earlier ones with the same key.
func readKeyed(path string, r io.Reader, store func(id int, fields []string)) error {
	return eachLine(r, func(lineNo int, raw string) error {
		fields := strings.Split(strings.TrimSpace(raw), FieldSeparator)
		if len(fields) < 2 {
			return &LineError{Path: path, Line: lineNo, Reason: "missing field separator"}
		}
		id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return &LineError{Path: path, Line: lineNo, Reason: fmt.Sprintf("id %q is not an integer", fields[0])}
		}
		store(id, fields)
		return nil
	})
}
