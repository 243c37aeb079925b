package remap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/seqkit/idremap/pkg/mapping"
)

// fakeSubmitter scripts per-chunk behavior and records every attempt.
type fakeSubmitter struct {
	// respond decides the outcome of one attempt given the ids submitted.
	respond func(ids []string) ([]mapping.Row, error)

	calls [][]string
}

func (f *fakeSubmitter) Submit(ctx context.Context, ids []string, from, to, format string) ([]mapping.Row, error) {
	f.calls = append(f.calls, ids)
	return f.respond(ids)
}

// echoRows maps every identifier to one row id -> id_mapped.
func echoRows(ids []string) []mapping.Row {
	rows := make([]mapping.Row, len(ids))
	for i, id := range ids {
		rows[i] = mapping.Row{From: id, To: id + "_mapped"}
	}
	return rows
}

func testConfig() Config {
	cfg := validConfig()
	cfg.Delay = 0 // no courtesy pauses in unit tests
	return cfg
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("ID%05d", i)
	}
	return ids
}

func TestNewRunner_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 0

	_, err := NewRunner(cfg, &fakeSubmitter{})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestRun_SingleChunk(t *testing.T) {
	// 5 identifiers with chunk size 1000: exactly one submission.
	sub := &fakeSubmitter{respond: func(ids []string) ([]mapping.Row, error) {
		return echoRows(ids), nil
	}}
	runner, err := NewRunner(testConfig(), sub)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	outcome, err := runner.Run(context.Background(), makeIDs(5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sub.calls) != 1 {
		t.Fatalf("submitted %d chunks, want 1", len(sub.calls))
	}
	if outcome.Chunks != 1 {
		t.Errorf("Chunks = %d, want 1", outcome.Chunks)
	}
	if outcome.Result.Len() != 5 {
		t.Errorf("rows = %d, want 5", outcome.Result.Len())
	}
	if len(outcome.Failures) != 0 {
		t.Errorf("failures = %v, want none", outcome.Failures)
	}
}

func TestRun_ChunkSizesAndOrder(t *testing.T) {
	// 2500 identifiers with chunk size 1000: three chunks sized
	// 1000, 1000, 500, submitted in input order.
	sub := &fakeSubmitter{respond: func(ids []string) ([]mapping.Row, error) {
		return echoRows(ids), nil
	}}
	runner, err := NewRunner(testConfig(), sub)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	ids := makeIDs(2500)
	outcome, err := runner.Run(context.Background(), ids)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantSizes := []int{1000, 1000, 500}
	if len(sub.calls) != len(wantSizes) {
		t.Fatalf("submitted %d chunks, want %d", len(sub.calls), len(wantSizes))
	}
	for i, call := range sub.calls {
		if len(call) != wantSizes[i] {
			t.Errorf("chunk %d size = %d, want %d", i, len(call), wantSizes[i])
		}
	}
	if sub.calls[0][0] != ids[0] || sub.calls[2][499] != ids[2499] {
		t.Error("chunks not submitted in input order")
	}
	if outcome.Result.Len() != 2500 {
		t.Errorf("rows = %d, want 2500", outcome.Result.Len())
	}
	// Aggregation follows submission order.
	if got := outcome.Result.Rows()[0].From; got != ids[0] {
		t.Errorf("first row from %q, want %q", got, ids[0])
	}
	if got := outcome.Result.Rows()[2499].From; got != ids[2499] {
		t.Errorf("last row from %q, want %q", got, ids[2499])
	}
}

func TestRun_EmptyInput(t *testing.T) {
	sub := &fakeSubmitter{respond: func(ids []string) ([]mapping.Row, error) {
		t.Error("no submission expected for empty input")
		return nil, nil
	}}
	runner, err := NewRunner(testConfig(), sub)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	outcome, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Chunks != 0 || outcome.Result.Len() != 0 {
		t.Errorf("expected empty outcome, got %d chunks, %d rows", outcome.Chunks, outcome.Result.Len())
	}
}

func TestRun_PartialFailure(t *testing.T) {
	// The middle chunk fails every attempt; the run continues and the
	// final result carries rows only from chunks 1 and 3.
	cfg := testConfig()
	cfg.ChunkSize = 10
	cfg.MaxRetries = 2

	ids := makeIDs(30)
	failingID := ids[10] // first id of chunk index 1

	sub := &fakeSubmitter{respond: nil}
	sub.respond = func(chunkIDs []string) ([]mapping.Row, error) {
		if chunkIDs[0] == failingID {
			return nil, errors.New("service unavailable")
		}
		return echoRows(chunkIDs), nil
	}

	runner, err := NewRunner(cfg, sub)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	outcome, err := runner.Run(context.Background(), ids)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 1 attempt for chunk 0 + (MaxRetries+1) for chunk 1 + 1 for chunk 2.
	if wantCalls := 1 + 3 + 1; len(sub.calls) != wantCalls {
		t.Errorf("attempts = %d, want %d", len(sub.calls), wantCalls)
	}
	if outcome.Result.Len() != 20 {
		t.Errorf("rows = %d, want 20 (chunks 0 and 2 only)", outcome.Result.Len())
	}
	for _, row := range outcome.Result.Rows() {
		if row.From == failingID {
			t.Errorf("row from failed chunk leaked into result: %v", row)
		}
	}
	if len(outcome.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(outcome.Failures))
	}
	f := outcome.Failures[0]
	if f.Index != 1 {
		t.Errorf("failed chunk index = %d, want 1", f.Index)
	}
	if f.Size != 10 {
		t.Errorf("failed chunk size = %d, want 10", f.Size)
	}
	if !strings.Contains(f.Reason, "service unavailable") {
		t.Errorf("failure reason %q does not carry the exhaustion cause", f.Reason)
	}
}

func TestRun_AllChunksFail(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 5
	cfg.MaxRetries = 0

	sub := &fakeSubmitter{respond: func(ids []string) ([]mapping.Row, error) {
		return nil, errors.New("down")
	}}
	runner, err := NewRunner(cfg, sub)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	outcome, err := runner.Run(context.Background(), makeIDs(15))
	if err != nil {
		t.Fatalf("Run must complete despite failures, got %v", err)
	}
	if outcome.Result.Len() != 0 {
		t.Errorf("rows = %d, want 0", outcome.Result.Len())
	}
	if len(outcome.Failures) != 3 {
		t.Errorf("failures = %d, want 3", len(outcome.Failures))
	}
}

func TestRun_EmptyChunkResultIsSuccess(t *testing.T) {
	// Zero rows for a chunk (all identifiers unrecognized) is a success,
	// not a failure.
	sub := &fakeSubmitter{respond: func(ids []string) ([]mapping.Row, error) {
		return nil, nil
	}}
	runner, err := NewRunner(testConfig(), sub)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	outcome, err := runner.Run(context.Background(), makeIDs(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcome.Failures) != 0 {
		t.Errorf("failures = %v, want none", outcome.Failures)
	}
	if outcome.Result.Len() != 0 {
		t.Errorf("rows = %d, want 0", outcome.Result.Len())
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	sub := &fakeSubmitter{respond: nil}
	sub.respond = func(ids []string) ([]mapping.Row, error) {
		calls++
		if calls == 1 {
			cancel()
			return nil, errors.New("fail")
		}
		return echoRows(ids), nil
	}

	cfg := testConfig()
	cfg.ChunkSize = 5
	cfg.MaxRetries = 3

	runner, err := NewRunner(cfg, sub)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	_, err = runner.Run(ctx, makeIDs(15))
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
}

// fakeProgressStore is an in-memory ProgressStore.
type fakeProgressStore struct {
	completed map[int][]mapping.Row
	marked    []int
}

func (f *fakeProgressStore) Completed(ctx context.Context, runID string, chunkIndex int) ([]mapping.Row, bool, error) {
	rows, ok := f.completed[chunkIndex]
	return rows, ok, nil
}

func (f *fakeProgressStore) MarkCompleted(ctx context.Context, runID string, chunkIndex int, rows []mapping.Row) error {
	f.marked = append(f.marked, chunkIndex)
	return nil
}

func TestRun_ResumeSkipsCompletedChunks(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 5

	ids := makeIDs(15)
	store := &fakeProgressStore{
		completed: map[int][]mapping.Row{
			0: echoRows(ids[:5]),
			1: echoRows(ids[5:10]),
		},
	}

	sub := &fakeSubmitter{respond: func(chunkIDs []string) ([]mapping.Row, error) {
		return echoRows(chunkIDs), nil
	}}
	runner, err := NewRunner(cfg, sub)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	runner.UseProgressStore(store, "run-1")

	outcome, err := runner.Run(context.Background(), ids)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Only the third chunk hits the service.
	if len(sub.calls) != 1 {
		t.Fatalf("submitted %d chunks, want 1", len(sub.calls))
	}
	if sub.calls[0][0] != ids[10] {
		t.Errorf("resubmitted chunk starts at %q, want %q", sub.calls[0][0], ids[10])
	}
	// Restored rows still land in the merged result, in chunk order.
	if outcome.Result.Len() != 15 {
		t.Errorf("rows = %d, want 15", outcome.Result.Len())
	}
	if got := outcome.Result.Rows()[0].From; got != ids[0] {
		t.Errorf("first row from %q, want %q", got, ids[0])
	}
	// The fresh chunk gets checkpointed.
	if len(store.marked) != 1 || store.marked[0] != 2 {
		t.Errorf("marked chunks = %v, want [2]", store.marked)
	}
}
