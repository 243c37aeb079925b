// Package mapping holds the remapped identifier table accumulated across
// chunk submissions, and the parser/writer for the tab-delimited format
// spoken by the mapping service.
package mapping

// Row is one source-to-target identifier pair returned by the mapping
// service. A single source identifier may appear in zero, one, or many rows.
type Row struct {
	From string
	To   string
}

// Result accumulates rows across all submitted chunks, in submission order.
// Rows within a chunk keep whatever order the service returned them in.
type Result struct {
	rows []Row
}

// Append adds the rows of one successful chunk to the result.
// It never deduplicates or reorders.
func (r *Result) Append(rows []Row) {
	r.rows = append(r.rows, rows...)
}

// Rows returns the accumulated rows.
func (r *Result) Rows() []Row {
	return r.rows
}

// Len returns the number of accumulated rows.
func (r *Result) Len() int {
	return len(r.rows)
}
