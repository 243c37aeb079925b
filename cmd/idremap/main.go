// Command idremap remaps biological sequence identifiers from one namespace
// to another via a remote identifier-mapping web service, batching large
// inputs into chunks with bounded retry.
//
// Partial failures do not fail the run: exhausted chunks are reported on
// stderr and the process still exits 0 once all chunks were processed.
// Configuration and input errors exit 1 before any network activity.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/seqkit/idremap/pkg/checkpoint"
	"github.com/seqkit/idremap/pkg/client"
	"github.com/seqkit/idremap/pkg/logging"
	"github.com/seqkit/idremap/pkg/mapping"
	"github.com/seqkit/idremap/pkg/remap"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "idremap: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("idremap", flag.ContinueOnError)

	var (
		inputPath   = fs.String("input", "", "file listing identifiers to remap, one per line (\"-\" for stdin)")
		outputPath  = fs.String("output", "", "file to write the mapping table to (\"-\" for stdout)")
		fromID      = fs.String("from", "", "source namespace code (e.g. ACC)")
		toID        = fs.String("to", "", "destination namespace code (e.g. P_REFSEQ_AC)")
		contact     = fs.String("contact", "", "contact address reported to the service")
		format      = fs.String("format", "tab", "output format to request")
		chunkSize   = fs.Int("chunk-size", 1000, "identifiers per submission")
		delay       = fs.Int("delay", 5, "wait in seconds between retries and between chunks")
		retries     = fs.Int("retries", 10, "retry attempts per chunk after the first")
		serviceURL  = fs.String("service-url", getEnv("IDREMAP_SERVICE_URL", client.DefaultServiceURL), "mapping service endpoint")
		logLevel    = fs.String("log-level", getEnv("IDREMAP_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
		pretty      = fs.Bool("pretty", false, "human-readable log output")
		resume      = fs.Bool("resume", false, "checkpoint chunk progress in Redis and resume prior runs")
		redisAddr   = fs.String("redis", getEnv("IDREMAP_REDIS_ADDR", "localhost:6379"), "Redis address for -resume")
		metricsAddr = fs.String("metrics-addr", "", "serve Prometheus metrics on this address for the duration of the run (e.g. :9090)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(*logLevel),
		Pretty: *pretty,
		Output: os.Stderr,
	})

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn().Err(err).Msg("Metrics server stopped")
			}
		}()
		logger.Info().Str("addr", *metricsAddr).Msg("Serving metrics")
	}

	cfg := remap.Config{
		ServiceURL: *serviceURL,
		From:       *fromID,
		To:         *toID,
		Format:     *format,
		Contact:    *contact,
		ChunkSize:  *chunkSize,
		Delay:      time.Duration(*delay) * time.Second,
		MaxRetries: *retries,
	}
	if *inputPath == "" {
		return fmt.Errorf("%w: -input is required", remap.ErrInvalidConfiguration)
	}
	if *outputPath == "" {
		return fmt.Errorf("%w: -output is required", remap.ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ids, err := readInput(*inputPath, stdin)
	if err != nil {
		return err
	}
	logger.Info().Int("identifiers", len(ids)).Str("input", *inputPath).Msg("Read identifier list")

	mapper, err := client.New(client.Config{
		ServiceURL: cfg.ServiceURL,
		Contact:    cfg.Contact,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", remap.ErrInvalidConfiguration, err)
	}

	runner, err := remap.NewRunner(cfg, mapper)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *resume {
		redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", *redisAddr, err)
		}
		runID := checkpoint.RunID(ids, cfg.From, cfg.To)
		runner.UseProgressStore(checkpoint.New(redisClient, 0), runID)
		logger.Info().Str("run_id", runID).Msg("Checkpointing enabled")
	}

	// Cancel the run on SIGINT/SIGTERM; checkpointed chunks survive.
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		logger.Warn().Str("signal", sig.String()).Msg("Cancelling run")
		cancel()
	}()

	outcome, err := runner.Run(ctx, ids)
	if err != nil {
		return err
	}

	if err := writeOutput(*outputPath, stdout, outcome.Result.Rows()); err != nil {
		return err
	}

	for _, f := range outcome.Failures {
		fmt.Fprintf(os.Stderr, "idremap: chunk %d (%d identifiers) failed: %s\n", f.Index, f.Size, f.Reason)
	}
	if n := len(outcome.Failures); n > 0 {
		fmt.Fprintf(os.Stderr, "idremap: completed with %d of %d chunks unresolved\n", n, outcome.Chunks)
	}

	logger.Info().
		Int("rows", outcome.Result.Len()).
		Int("failed_chunks", len(outcome.Failures)).
		Str("output", *outputPath).
		Msg("Wrote mapping table")

	return nil
}

func readInput(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		return remap.ReadIdentifiers(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return remap.ReadIdentifiers(f)
}

func writeOutput(path string, stdout io.Writer, rows []mapping.Row) error {
	if path == "-" {
		return mapping.WriteTab(stdout, rows)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := mapping.WriteTab(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
