// Package checkpoint persists per-chunk run progress in Redis so an
// interrupted mapping run can be resumed without resubmitting chunks that
// already succeeded. Progress is keyed by a run ID derived from the input
// list and namespace codes; a rerun with different input is a different run.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seqkit/idremap/pkg/mapping"
)

// ErrInvalidEntry indicates a stored checkpoint that cannot be decoded.
var ErrInvalidEntry = errors.New("invalid checkpoint entry")

// DefaultTTL is how long chunk checkpoints are kept. Long enough to resume
// an overnight cron run, short enough not to accumulate stale runs.
const DefaultTTL = 7 * 24 * time.Hour

// Store records completed chunks in Redis.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a checkpoint store. A zero ttl means DefaultTTL.
func New(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis: redisClient,
		ttl:   ttl,
	}
}

// entry is the stored payload for one completed chunk.
type entry struct {
	Rows        []mapping.Row `json:"rows"`
	CompletedAt time.Time     `json:"completed_at"`
}

func chunkKey(runID string, chunkIndex int) string {
	return fmt.Sprintf("idremap:run:%s:chunk:%d", runID, chunkIndex)
}

// Completed reports whether the chunk was already recorded for runID and,
// if so, returns its rows.
func (s *Store) Completed(ctx context.Context, runID string, chunkIndex int) ([]mapping.Row, bool, error) {
	data, err := s.redis.Get(ctx, chunkKey(runID, chunkIndex)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return e.Rows, true, nil
}

// MarkCompleted records the rows of a completed chunk under runID.
func (s *Store) MarkCompleted(ctx context.Context, runID string, chunkIndex int, rows []mapping.Row) error {
	data, err := json.Marshal(entry{
		Rows:        rows,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint entry: %w", err)
	}

	if err := s.redis.Set(ctx, chunkKey(runID, chunkIndex), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// RunID derives a stable run identifier from the identifier list and the
// namespace codes, so the same invocation resumes the same run.
func RunID(ids []string, from, to string) string {
	h := sha256.New()
	io.WriteString(h, from)
	io.WriteString(h, "\x00")
	io.WriteString(h, to)
	io.WriteString(h, "\x00")
	for _, id := range ids {
		io.WriteString(h, id)
		io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
