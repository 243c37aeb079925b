package remap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seqkit/idremap/pkg/chunk"
	"github.com/seqkit/idremap/pkg/client"
	"github.com/seqkit/idremap/pkg/mapping"
)

// Prometheus metrics for the run loop.
var (
	chunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idremap_chunks_total",
		Help: "Total chunks processed by outcome",
	}, []string{"outcome"})

	rowsMappedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idremap_rows_mapped_total",
		Help: "Total mapping rows aggregated from successful chunks",
	})
)

// Submitter performs one submission attempt for a chunk of identifiers.
// *client.Mapper is the production implementation.
type Submitter interface {
	Submit(ctx context.Context, ids []string, from, to, format string) ([]mapping.Row, error)
}

// ProgressStore persists per-chunk completion so an interrupted run can be
// resumed without resubmitting completed chunks.
type ProgressStore interface {
	Completed(ctx context.Context, runID string, chunkIndex int) ([]mapping.Row, bool, error)
	MarkCompleted(ctx context.Context, runID string, chunkIndex int, rows []mapping.Row) error
}

// ChunkFailure records one chunk whose retries were exhausted.
type ChunkFailure struct {
	// Index is the zero-based position of the chunk in submission order.
	Index int

	// Size is the number of identifiers in the chunk.
	Size int

	// Reason is the last attempt's failure description.
	Reason string
}

// Outcome is the terminal state of a run: the merged result plus the
// failures of any chunks that contributed nothing.
type Outcome struct {
	Result   *mapping.Result
	Failures []ChunkFailure
	Chunks   int
}

// Runner drives the chunked submission loop. It is strictly sequential:
// one chunk in flight at a time, results aggregated in submission order.
type Runner struct {
	cfg      Config
	submit   Submitter
	progress ProgressStore
	runID    string
	logger   zerolog.Logger
}

// NewRunner creates a runner for the given configuration. The configuration
// is validated up front; an invalid one fails here, before any network
// activity.
func NewRunner(cfg Config, s Submitter) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: submitter is required", ErrInvalidConfiguration)
	}

	return &Runner{
		cfg:    cfg,
		submit: s,
		logger: log.With().Str("component", "runner").Logger(),
	}, nil
}

// UseProgressStore enables checkpoint/resume for this run. Chunks already
// recorded under runID are replayed from the store instead of resubmitted.
func (r *Runner) UseProgressStore(store ProgressStore, runID string) {
	r.progress = store
	r.runID = runID
}

// Run submits every chunk of ids, aggregating successes and recording
// exhausted chunks without aborting. It returns an error only for
// cancellation; per-chunk exhaustion is reported in the Outcome.
func (r *Runner) Run(ctx context.Context, ids []string) (*Outcome, error) {
	chunks, err := chunk.Split(ids, r.cfg.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	policy := client.RetryPolicy{
		MaxRetries: r.cfg.MaxRetries,
		Delay:      r.cfg.Delay,
	}

	r.logger.Info().
		Int("identifiers", len(ids)).
		Int("chunks", len(chunks)).
		Str("from", r.cfg.From).
		Str("to", r.cfg.To).
		Msg("Starting mapping run")

	outcome := &Outcome{
		Result: &mapping.Result{},
		Chunks: len(chunks),
	}
	queried := 0

	for i, chunkIDs := range chunks {
		if rows, ok := r.restoreChunk(ctx, i); ok {
			outcome.Result.Append(rows)
			queried += len(chunkIDs)
			chunksTotal.WithLabelValues("restored").Inc()
			r.logger.Info().
				Int("chunk", i).
				Int("rows", len(rows)).
				Msg("Chunk restored from checkpoint")
			continue
		}

		rows, err := policy.Do(ctx, func() ([]mapping.Row, error) {
			return r.submit.Submit(ctx, chunkIDs, r.cfg.From, r.cfg.To, r.cfg.Format)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			outcome.Failures = append(outcome.Failures, ChunkFailure{
				Index:  i,
				Size:   len(chunkIDs),
				Reason: err.Error(),
			})
			chunksTotal.WithLabelValues("exhausted").Inc()
			r.logger.Warn().
				Int("chunk", i).
				Int("ids", len(chunkIDs)).
				Err(err).
				Msg("Chunk exhausted all retries, continuing with remaining chunks")
			continue
		}

		outcome.Result.Append(rows)
		rowsMappedTotal.Add(float64(len(rows)))
		chunksTotal.WithLabelValues("ok").Inc()
		r.recordChunk(ctx, i, rows)

		queried += len(chunkIDs)
		r.logger.Info().
			Int("chunk", i).
			Int("rows", len(rows)).
			Int("queried", queried).
			Msg("Chunk complete")

		// Courtesy delay before the next submission; the service is
		// rate-limited.
		if i < len(chunks)-1 {
			if err := r.pause(ctx); err != nil {
				return nil, err
			}
		}
	}

	r.logger.Info().
		Int("chunks", outcome.Chunks).
		Int("failed_chunks", len(outcome.Failures)).
		Int("rows", outcome.Result.Len()).
		Msg("Mapping run complete")

	return outcome, nil
}

// restoreChunk replays a previously completed chunk from the progress
// store, if one is configured and has it.
func (r *Runner) restoreChunk(ctx context.Context, chunkIndex int) ([]mapping.Row, bool) {
	if r.progress == nil {
		return nil, false
	}
	rows, ok, err := r.progress.Completed(ctx, r.runID, chunkIndex)
	if err != nil {
		r.logger.Warn().Err(err).Int("chunk", chunkIndex).Msg("Checkpoint lookup failed, resubmitting chunk")
		return nil, false
	}
	return rows, ok
}

// recordChunk persists a completed chunk. Checkpointing is best effort; a
// store error never fails the run.
func (r *Runner) recordChunk(ctx context.Context, chunkIndex int, rows []mapping.Row) {
	if r.progress == nil {
		return
	}
	if err := r.progress.MarkCompleted(ctx, r.runID, chunkIndex, rows); err != nil {
		r.logger.Warn().Err(err).Int("chunk", chunkIndex).Msg("Failed to checkpoint chunk")
	}
}

// pause waits the configured inter-chunk delay, honoring cancellation.
func (r *Runner) pause(ctx context.Context) error {
	if r.cfg.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", client.ErrContextCancelled, ctx.Err())
	case <-time.After(r.cfg.Delay):
		return nil
	}
}
