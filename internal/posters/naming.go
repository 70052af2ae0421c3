package posters

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	filePrefix = "mov_id"
	fileSuffix = ".jpg"
)

// FileName returns the poster file name for a movie id.
func FileName(movieID string) string {
	return filePrefix + movieID + fileSuffix
}

// Path returns the poster location for a movie id inside dir.
func Path(dir, movieID string) string {
	return filepath.Join(dir, FileName(movieID))
}

// ParseFileName extracts the movie id embedded in a poster file name.
func ParseFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	if len(name) < len(filePrefix)+len(fileSuffix) {
		return "", false
	}
	return name[len(filePrefix) : len(name)-len(fileSuffix)], true
}

// Set is the collection of movie ids with a poster on disk.
type Set map[int]struct{}

// Has reports whether movieID has a poster.
func (s Set) Has(movieID int) bool {
	_, ok := s[movieID]
	return ok
}

// ScanResult is the outcome of enumerating a poster directory.
type ScanResult struct {
	Posters Set
	// Ignored lists matching file names whose embedded id is not an integer.
	Ignored []string
}

// Scan enumerates mov_id*.jpg entries in dir. A missing directory yields an
// empty set.
func Scan(dir string) (ScanResult, error) {
	result := ScanResult{Posters: Set{}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return ScanResult{}, fmt.Errorf("scan posters: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		raw, ok := ParseFileName(entry.Name())
		if !ok {
			continue
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			result.Ignored = append(result.Ignored, entry.Name())
			continue
		}
		result.Posters[id] = struct{}{}
	}
	return result, nil
}
