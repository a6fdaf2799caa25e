// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inspire is the INSPIREHEP literature API client: a rate-limit
// aware fetcher, the continuation-URL parser, and payload key
// sanitization.
package inspire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pdiddy/inspire-harvester/pkg/types"
)

// DefaultBaseURL is the INSPIREHEP literature endpoint.
const DefaultBaseURL = "https://inspirehep.net/api/literature"

// retryInHeader carries the server-computed wait in seconds on a 429.
const retryInHeader = "x-retry-in"

// Prometheus metrics for API fetch operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspire_api_requests_total",
		Help: "Total literature API requests by status",
	}, []string{"status"})

	apiRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspire_api_request_duration_seconds",
		Help:    "Literature API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	apiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspire_api_retries_total",
		Help: "Total retry attempts by cause (rate_limit, gateway_timeout)",
	}, []string{"cause"})

	apiRetryWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspire_api_retry_wait_seconds",
		Help:    "Backoff duration before API retries",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
)

// Client fetches pages from the literature API. A single Fetch blocks
// through any number of 429/504 retries; traversal code runs strictly
// sequentially on top of it, so the remote rate limit is never multiplied
// by concurrent requests.
type Client struct {
	httpClient *http.Client
	cfg        types.FetchConfig
	logger     zerolog.Logger
}

// NewClient builds a Client around an injected *http.Client. Zero config
// fields fall back to safe defaults.
func NewClient(httpClient *http.Client, cfg types.FetchConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RetryAfterFallback <= 0 {
		cfg.RetryAfterFallback = 10 * time.Second
	}
	if cfg.GatewayTimeoutDelay <= 0 {
		cfg.GatewayTimeoutDelay = 2 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "inspire-harvester/0.1"
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     log.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch issues one GET with the given parameter set and returns the parsed
// page. The retry policy is an explicit loop, not recursion:
//
//   - 429: wait the server-provided x-retry-in duration (or the configured
//     fallback) and retry. Unbounded in count, interval-bounded by the
//     server.
//   - 504: wait a fixed short delay and retry. Unbounded.
//   - 400: ErrPageSizeExceeded, never retried.
//   - any other non-200 status or transport failure: fatal.
//
// A cancelled context aborts any backoff wait and returns ctx.Err().
func (c *Client) Fetch(ctx context.Context, params url.Values) (*types.PageResponse, error) {
	for {
		resp, err := c.do(ctx, params)
		if err != nil {
			apiRequestsTotal.WithLabelValues("transport_error").Inc()
			return nil, fmt.Errorf("API request: %w", err)
		}

		apiRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		switch resp.StatusCode {
		case http.StatusOK:
			return c.decodePage(resp)

		case http.StatusTooManyRequests:
			wait := c.retryAfter(resp)
			drain(resp)
			c.logger.Warn().
				Dur("wait", wait).
				Msg("rate limited, waiting before retry")
			apiRetriesTotal.WithLabelValues("rate_limit").Inc()
			apiRetryWaitSeconds.Observe(wait.Seconds())
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}

		case http.StatusGatewayTimeout:
			drain(resp)
			c.logger.Warn().
				Dur("wait", c.cfg.GatewayTimeoutDelay).
				Msg("upstream timeout, retrying")
			apiRetriesTotal.WithLabelValues("gateway_timeout").Inc()
			apiRetryWaitSeconds.Observe(c.cfg.GatewayTimeoutDelay.Seconds())
			if err := sleep(ctx, c.cfg.GatewayTimeoutDelay); err != nil {
				return nil, err
			}

		case http.StatusBadRequest:
			drain(resp)
			return nil, fmt.Errorf("%w: requested size %q, maximum %d",
				ErrPageSizeExceeded, params.Get("size"), types.MaxPageSize)

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("body", string(body)).
				Msg("API request failed")
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		}
	}
}

func (c *Client) do(ctx context.Context, params url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("params", params.Encode()).Msg("API call")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	apiRequestDuration.Observe(time.Since(start).Seconds())
	return resp, err
}

// decodePage parses the response body and sanitizes every hit's keys
// before anything downstream sees the documents.
func (c *Client) decodePage(resp *http.Response) (*types.PageResponse, error) {
	defer resp.Body.Close()

	var page types.PageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}
	for i, doc := range page.Hits {
		page.Hits[i] = SanitizeDocument(doc)
	}

	c.logger.Debug().
		Int("total", page.Total).
		Int("hits", len(page.Hits)).
		Bool("has_next", page.Next != "").
		Msg("page fetched")
	return &page, nil
}

// retryAfter reads the server-provided wait from a 429 response. Seconds
// may be fractional. A missing or garbled header falls back to the
// configured default.
func (c *Client) retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get(retryInHeader)
	if header == "" {
		header = resp.Header.Get("Retry-After")
	}
	secs, err := strconv.ParseFloat(header, 64)
	if err != nil || secs <= 0 {
		return c.cfg.RetryAfterFallback
	}
	return time.Duration(secs * float64(time.Second))
}

// drain discards and closes a response body so the connection can be
// reused across retries.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// sleep blocks for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
