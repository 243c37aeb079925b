package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotTabular indicates a response body that is not a tab-delimited
// mapping table.
var ErrNotTabular = errors.New("not a tab-delimited mapping table")

// tabHeader is the header line the service prefixes to every tab response.
const tabHeader = "From\tTo"

// ParseTab parses one service response body in tab format into rows.
// The body must begin with the From/To header line; a header with no data
// lines is a valid empty result. The per-chunk header is consumed here so
// the merged table carries a single one.
func ParseTab(body string) ([]Row, error) {
	body = strings.TrimRight(body, "\r\n")
	if body == "" {
		return nil, fmt.Errorf("%w: empty body", ErrNotTabular)
	}

	lines := strings.Split(body, "\n")
	if strings.TrimRight(lines[0], "\r") != tabHeader {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrNotTabular, lines[0])
	}

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
			return nil, fmt.Errorf("%w: bad line %q", ErrNotTabular, line)
		}
		rows = append(rows, Row{From: fields[0], To: fields[1]})
	}

	return rows, nil
}

// WriteTab writes rows as a tab-delimited table with a single From/To
// header line.
func WriteTab(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write([]string{"From", "To"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.From, row.To}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
