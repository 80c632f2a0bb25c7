package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadKeywords reads a one-column CSV with a header row and returns the
// lower-cased, de-duplicated keywords. Malformed rows are skipped.
func LoadKeywords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyword file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	seen := make(map[string]bool)
	var kws []string
	line := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil || line == 1 || len(rec) == 0 {
			continue
		}
		kw := strings.ToLower(strings.TrimSpace(rec[0]))
		if kw == "" || strings.HasPrefix(kw, "#") || seen[kw] {
			continue
		}
		seen[kw] = true
		kws = append(kws, kw)
	}
	return kws, nil
}

// MergeKeywords appends extra to base, keeping first occurrences
func MergeKeywords(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	var out []string
	for _, kw := range append(append([]string{}, base...), extra...) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
