package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"posterjoin/internal/logging"
)

// joinSourceColumn is the first column holding poster URL segments.
const joinSourceColumn = 3

// joinSampleEvery controls how often a parsed row is echoed at debug level.
const joinSampleEvery = 100

// JoinTable maps a movie id to the URL of its poster.
type JoinTable map[string]string

// JoinStats summarizes a join table read.
type JoinStats struct {
	Rows    int
	Skipped int
	Movies  int
	// FirstSource is the poster URL of the first row that carries one.
	FirstSource string
}

// ReadJoinTable parses the poster join CSV. The header row is discarded.
// Rows without a value in the fourth column are logged and skipped. When a
// movie id repeats, the last row wins.
func ReadJoinTable(path string, logger *slog.Logger) (JoinTable, JoinStats, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, JoinStats{}, fmt.Errorf("open join table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return JoinTable{}, JoinStats{}, nil
		}
		return nil, JoinStats{}, fmt.Errorf("read join table header: %w", err)
	}

	table := JoinTable{}
	var stats JoinStats
	for idx := 0; ; idx++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, JoinStats{}, fmt.Errorf("read join table: %w", err)
		}
		stats.Rows++

		if len(row) <= joinSourceColumn || row[joinSourceColumn] == "" {
			stats.Skipped++
			logger.Info("join row has no data",
				logging.Int("row", idx+2),
				logging.String("fields", strings.Join(row, ",")),
			)
			continue
		}

		table[row[0]] = JoinSegments(row[joinSourceColumn:])
		if stats.FirstSource == "" {
			stats.FirstSource = table[row[0]]
		}
		if idx%joinSampleEvery == 0 {
			logger.Debug("join row parsed",
				logging.String(logging.FieldMovieID, row[0]),
				logging.String("source", table[row[0]]),
			)
		}
	}
	stats.Movies = len(table)
	return table, stats, nil
}

// JoinSegments concatenates path segments with '/'. Unlike path.Join it
// does not clean the result, so a scheme separator such as "http://" stays
// intact. A segment starting with '/' discards everything before it, and no
// separator is added after a segment that already ends with one.
func JoinSegments(segments []string) string {
	var b strings.Builder
	for i, seg := range segments {
		switch {
		case i == 0:
			b.WriteString(seg)
		case strings.HasPrefix(seg, "/"):
			b.Reset()
			b.WriteString(seg)
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "/") {
				b.WriteByte('/')
			}
			b.WriteString(seg)
		}
	}
	return b.String()
}
