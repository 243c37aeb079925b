// Package client submits identifier chunks to a remote identifier-mapping
// service and drives each submission through bounded retry with a fixed
// inter-attempt delay.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seqkit/idremap/pkg/mapping"
)

// Version is reported in the User-Agent header alongside the contact
// address, as the service's usage policy asks.
const Version = "0.1.0"

// DefaultServiceURL is the UniProt identifier-mapping endpoint.
const DefaultServiceURL = "https://www.uniprot.org/uploadlists/"

// Prometheus metrics for mapping requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idremap_requests_total",
		Help: "Total mapping service requests by HTTP status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "idremap_request_duration_seconds",
		Help:    "Mapping service request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idremap_errors_total",
		Help: "Total failed mapping attempts by class",
	}, []string{"class"})
)

// Mapper performs single-attempt submissions against the mapping service.
// Retry is layered on top by RetryPolicy; Mapper itself never retries and
// never sleeps.
type Mapper struct {
	httpClient *http.Client
	serviceURL string
	userAgent  string
	logger     zerolog.Logger
}

// Config holds the mapper configuration.
type Config struct {
	// ServiceURL is the mapping endpoint. Defaults to DefaultServiceURL.
	ServiceURL string

	// Contact is the address reported to the service (usage policy
	// requirement). Required.
	Contact string

	// Timeout bounds one request round-trip. Defaults to 30s.
	Timeout time.Duration
}

// New creates a new mapping service client.
func New(cfg Config) (*Mapper, error) {
	if cfg.Contact == "" {
		return nil, fmt.Errorf("contact address is required")
	}
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = DefaultServiceURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if _, err := url.Parse(cfg.ServiceURL); err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}

	return &Mapper{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		serviceURL: cfg.ServiceURL,
		userAgent:  fmt.Sprintf("idremap/%s (%s)", Version, cfg.Contact),
		logger:     log.With().Str("component", "mapper").Logger(),
	}, nil
}

// Submit performs exactly one mapping request for ids and parses the
// response into rows. Any network error, non-2xx status, or unparseable
// body is returned as a *ServiceError; the retry driver treats all of them
// as transient.
func (m *Mapper) Submit(ctx context.Context, ids []string, from, to, format string) ([]mapping.Row, error) {
	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.serviceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("from", from)
	q.Set("to", to)
	q.Set("format", format)
	q.Set("query", strings.Join(ids, " "))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("User-Agent", m.userAgent)

	m.logger.Debug().
		Str("from", from).
		Str("to", to).
		Int("ids", len(ids)).
		Msg("Submitting mapping request")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		m.logger.Warn().Err(err).Msg("Mapping request failed")
		return nil, &ServiceError{
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		m.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Mapping request error")
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	rows, err := mapping.ParseTab(string(body))
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
		m.logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("Unparseable mapping response")
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassMalformed,
			Message:    "unparseable response",
			Err:        err,
		}
	}

	m.logger.Debug().
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Mapping request complete")

	return rows, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (m *Mapper) SetHTTPClient(client *http.Client) {
	m.httpClient = client
}
