// Package remap drives the chunked submission of an identifier list
// through the mapping client and merges per-chunk results.
package remap

import (
	"errors"
	"fmt"
	"time"

	"github.com/seqkit/idremap/pkg/client"
)

// ErrInvalidConfiguration is returned for configuration errors that must
// abort the run before any network activity.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config carries the full run configuration. It is passed by value through
// the run; nothing reads ambient state.
type Config struct {
	// ServiceURL is the mapping endpoint.
	ServiceURL string

	// From and To are the source and destination namespace codes
	// understood by the service (e.g. ACC, P_REFSEQ_AC).
	From string
	To   string

	// Format is the output format requested from the service.
	Format string

	// Contact is the address reported to the service.
	Contact string

	// ChunkSize is the number of identifiers per submission.
	ChunkSize int

	// Delay is the fixed wait between retry attempts and between chunks.
	Delay time.Duration

	// MaxRetries is the number of additional attempts per chunk after the
	// first.
	MaxRetries int
}

// DefaultConfig returns the defaults matching the service's documented
// usage guidance.
func DefaultConfig() Config {
	return Config{
		ServiceURL: client.DefaultServiceURL,
		Format:     "tab",
		ChunkSize:  1000,
		Delay:      5 * time.Second,
		MaxRetries: 10,
	}
}

// Validate reports the first configuration error, wrapped in
// ErrInvalidConfiguration.
func (c Config) Validate() error {
	switch {
	case c.From == "":
		return fmt.Errorf("%w: source namespace is required", ErrInvalidConfiguration)
	case c.To == "":
		return fmt.Errorf("%w: destination namespace is required", ErrInvalidConfiguration)
	case c.Contact == "":
		return fmt.Errorf("%w: contact address is required", ErrInvalidConfiguration)
	case c.ServiceURL == "":
		return fmt.Errorf("%w: service url is required", ErrInvalidConfiguration)
	case c.Format == "":
		return fmt.Errorf("%w: output format is required", ErrInvalidConfiguration)
	case c.ChunkSize < 1:
		return fmt.Errorf("%w: chunk size must be at least 1 (got %d)", ErrInvalidConfiguration, c.ChunkSize)
	case c.Delay < 0:
		return fmt.Errorf("%w: delay must not be negative (got %v)", ErrInvalidConfiguration, c.Delay)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must not be negative (got %d)", ErrInvalidConfiguration, c.MaxRetries)
	}
	return nil
}
