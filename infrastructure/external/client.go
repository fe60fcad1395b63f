// Package external contains HTTP clients for the pipeline's collaborator
// services. All clients share one transport wrapper with circuit breaking
// and client-side rate limiting; endpoint semantics live in the typed
// clients next to it.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/insightgrid/platform/config"
	"github.com/insightgrid/platform/pkg/logging"
	"github.com/insightgrid/platform/pkg/metrics"
	"github.com/insightgrid/platform/shared/common"
	"github.com/insightgrid/platform/shared/types"
)

// Client is the shared HTTP transport for collaborator calls.
type Client struct {
	serviceName string
	baseURL     string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	logger      *logging.Logger
	metrics     *metrics.Collector
}

// NewClient creates a collaborator HTTP client from its configuration.
func NewClient(serviceName string, cfg config.CollaboratorConfig, logger *logging.Logger, collector *metrics.Collector) *Client {
	c := &Client{
		serviceName: serviceName,
		baseURL:     cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:  logger.WithComponent(serviceName + "_client"),
		metrics: collector,
	}

	if cfg.Breaker.Enabled {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        serviceName,
			MaxRequests: cfg.Breaker.MaxRequests,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= cfg.Breaker.MinRequests && failureRate >= cfg.Breaker.FailureRate
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn("Circuit breaker state changed",
					logging.String("service", name),
					logging.String("from", from.String()),
					logging.String("to", to.String()))
			},
		})
	}

	if cfg.RateLimit.Enabled {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize)
	}

	return c
}

// PostJSON issues a JSON POST and decodes the response body into out.
func (c *Client) PostJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInternal, "failed to marshal request body")
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

// GetJSON issues a GET and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return common.WrapError(err, common.ErrCodeRateLimited, "rate limit wait aborted")
		}
	}

	call := func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, body, out)
	}

	start := time.Now()
	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(call)
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			c.metrics.RecordError("circuit_open", c.serviceName)
			return common.WrapError(err, common.ErrCodeCircuitOpen,
				fmt.Sprintf("circuit open for %s", c.serviceName))
		}
	} else {
		_, err = call()
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordPipelineOperation("collaborator_"+c.serviceName, status, time.Since(start))
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if reqCtx, ok := ctx.Value(types.RequestContextKey).(*types.RequestContext); ok && reqCtx != nil {
		req.Header.Set("X-Correlation-ID", reqCtx.CorrelationID.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordError("http_request_error", c.serviceName)
		return common.ErrExternalService(c.serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.metrics.RecordError("http_status_error", c.serviceName)
		return common.ErrExternalService(c.serviceName,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return common.WrapError(err, common.ErrCodeExternalService,
			fmt.Sprintf("failed to decode %s response", c.serviceName))
	}
	return nil
}
