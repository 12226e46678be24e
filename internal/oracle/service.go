package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// ServiceClient submits decision requests to a remote decision service over
// HTTP. Transient failures (network, 429, 5xx) are retried with exponential
// backoff; anything else is permanent and surfaces immediately.
type ServiceClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewServiceClient validates the endpoint and builds the client.
func NewServiceClient(cfg config.OracleConfig, logger *zap.Logger) (*ServiceClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("decision service endpoint is required")
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60.0), 1)
	}

	return &ServiceClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		limiter:    limiter,
		logger:     logger.Named("oracle.service"),
	}, nil
}

// Decide posts the request and decodes the returned directive.
func (c *ServiceClient) Decide(ctx context.Context, req schemas.DecisionRequest) (schemas.ActionDirective, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return schemas.ActionDirective{}, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return schemas.ActionDirective{}, fmt.Errorf("marshal decision request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var raw []byte
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Decision service request failed, retrying", zap.Error(err))
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return c.statusError(resp.StatusCode, respBody)
		}

		c.logger.Debug("Decision received",
			zap.Duration("duration", time.Since(start)),
			zap.Int("response_bytes", len(respBody)))
		raw = respBody
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return schemas.ActionDirective{}, err
	}
	return decodeDirective(string(raw))
}

func (c *ServiceClient) statusError(status int, body []byte) error {
	err := fmt.Errorf("decision service error: status %d, body: %s", status, truncate(string(body), 300))
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
		return err
	default:
		return backoff.Permanent(err)
	}
}
