package ingest

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// openCSV opens an input file and returns a forgiving reader plus a
// lowercase column-index map built from the header row. A missing file
// maps to ErrInputMissing so optional datasets can skip cleanly.
func openCSV(path string) (*os.File, *csv.Reader, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, eris.Wrapf(ErrInputMissing, "ingest: %s", path)
		}
		return nil, nil, nil, eris.Wrapf(err, "ingest: open %s", path)
	}

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, eris.Wrapf(err, "ingest: read header of %s", path)
	}
	return f, r, mapColumns(header), nil
}

// mapColumns builds a lowercase column name → index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name from a CSV record, returning empty
// string if not found.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[strings.ToLower(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// firstCol returns the first non-empty value from the named columns. Used
// for columns whose names differ between export vintages.
func firstCol(record []string, colIdx map[string]int, names ...string) string {
	for _, name := range names {
		if v := trimQuotes(getCol(record, colIdx, name)); v != "" {
			return v
		}
	}
	return ""
}

// parseIntOr parses a string as an integer, returning def if parsing
// fails or the string is empty.
func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseFloatOr parses a string as a float64, returning def if parsing fails.
func parseFloatOr(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// trimQuotes removes surrounding double quotes from a CSV field.
func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// parseBoolYN accepts the truthy spellings the city exports use.
func parseBoolYN(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "Y") || strings.EqualFold(s, "yes") ||
		strings.EqualFold(s, "true") || s == "1"
}

// sanitizeUTF8 replaces invalid UTF-8 byte sequences (Latin-1 exports)
// with empty strings so labels render cleanly in JSON.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

// parseLatLng parses a coordinate pair. Any failure yields NaN for both
// axes so the locate short-circuit treats the record as not locatable.
func parseLatLng(latStr, lngStr string) (float64, float64) {
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if latErr != nil || lngErr != nil {
		return math.NaN(), math.NaN()
	}
	return lat, lng
}

// dateLayouts covers the date formats the city portals actually emit.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// parseDateOr tries each known layout, returning the zero time on failure.
func parseDateOr(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// parseYearOr extracts a year from a bare year or a full date field,
// returning def when neither parses.
func parseYearOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if len(s) >= 4 {
		if v, err := strconv.Atoi(s[:4]); err == nil && v >= 1900 && v <= 2200 {
			return v
		}
	}
	if ts := parseDateOr(s); !ts.IsZero() {
		return ts.Year()
	}
	return def
}
