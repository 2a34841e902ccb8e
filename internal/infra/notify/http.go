package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
)

// httpTransport posts JSON to provider APIs behind a circuit breaker, retry
// with backoff and a bulkhead that caps in-flight requests per provider.
type httpTransport struct {
	service    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

func newHTTPTransport(service string, httpClient *http.Client, cfg resilience.Config, logger *zap.Logger) *httpTransport {
	return &httpTransport{
		service:    service,
		httpClient: httpClient,
		cb:         resilience.NewCircuitBreaker(service, logger),
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		logger:     logger,
	}
}

// postJSON sends payload to url and decodes the response into out.
// 4xx responses are permanent and never retried.
func (t *httpTransport) postJSON(ctx context.Context, url, token, idempotencyKey string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = t.bulkhead.Do(ctx, func() error {
		_, cbErr := t.cb.Execute(func() (any, error) {
			return nil, resilience.RetryWithBackoff(ctx, t.cfg, func() error {
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
				if err != nil {
					return resilience.Permanent(err)
				}
				req.Header.Set("Content-Type", "application/json")
				if token != "" {
					req.Header.Set("Authorization", "Bearer "+token)
				}
				if idempotencyKey != "" {
					req.Header.Set("Idempotency-Key", idempotencyKey)
				}

				resp, err := t.httpClient.Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()

				respBody, err := io.ReadAll(resp.Body)
				if err != nil {
					return err
				}

				switch {
				case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
					t.logger.Warn("notify: provider rejected message",
						zap.String("service", t.service),
						zap.Int("status", resp.StatusCode),
						zap.String("body", string(respBody)),
					)
					return resilience.Permanent(fmt.Errorf("%s returned status %d: %s", t.service, resp.StatusCode, respBody))
				case resp.StatusCode < 200 || resp.StatusCode >= 300:
					return fmt.Errorf("%s returned status %d", t.service, resp.StatusCode)
				}

				if out == nil || len(respBody) == 0 {
					return nil
				}
				if err := json.Unmarshal(respBody, out); err != nil {
					return resilience.Permanent(fmt.Errorf("decode %s response: %w", t.service, err))
				}
				return nil
			})
		})
		return cbErr
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: t.service}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: t.service}
	}
	return &domain.ErrExternalService{Service: t.service, Err: err}
}
