package remap

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadIdentifiers reads one identifier per line from r, trimming whitespace
// and skipping blank lines. Input order is preserved; chunk boundaries are
// deterministic for a given input.
func ReadIdentifiers(r io.Reader) ([]string, error) {
	var ids []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read identifiers: %w", err)
	}

	return ids, nil
}
