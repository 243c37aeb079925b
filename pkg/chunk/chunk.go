// Package chunk splits ordered identifier lists into bounded-size batches
// for submission to the mapping service.
package chunk

import (
	"errors"
	"fmt"
)

// ErrInvalidSize indicates a chunk size below 1.
var ErrInvalidSize = errors.New("chunk size must be at least 1")

// Split partitions ids into consecutive batches of at most size elements.
// Batches are emitted in input order and are views into the original slice;
// their concatenation reproduces ids exactly. The last batch may be shorter.
// An empty input yields no batches.
func Split(ids []string, size int) ([][]string, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidSize, size)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}

	return batches, nil
}

// Count returns the number of batches Split would produce for n identifiers.
func Count(n, size int) int {
	if size < 1 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
