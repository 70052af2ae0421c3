package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// FieldSeparator splits every field of the ratings, movies and users files.
const FieldSeparator = "::"

// EachLine calls fn for every line of path in order. The raw line keeps its
// terminator; the final line may have none. Line numbers start at 1.
func EachLine(path string, fn func(lineNo int, raw string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return eachLine(file, fn)
}

func eachLine(r io.Reader, fn func(lineNo int, raw string) error) error {
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, err := reader.ReadString('\n')
		if raw != "" {
			lineNo++
			if cbErr := fn(lineNo, raw); cbErr != nil {
				return cbErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read line %d: %w", lineNo+1, err)
		}
	}
}
