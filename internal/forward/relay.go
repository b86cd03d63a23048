// Package forward re-delivers storefront product webhooks to the YMM endpoint.
package forward

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/JakeFAU/ymm-sync/internal/telemetry"
)

// Relay posts payloads unchanged to a target URL.
type Relay struct {
	client *http.Client
	target string
	logger *zap.Logger
}

// New constructs a Relay. A nil client gets one with the given timeout.
func New(target string, timeout time.Duration, client *http.Client, logger *zap.Logger) (*Relay, error) {
	if strings.TrimSpace(target) == "" {
		return nil, errors.New("forward target url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{client: client, target: target, logger: logger}, nil
}

// Target returns the URL payloads are delivered to.
func (r *Relay) Target() string {
	return r.target
}

// Forward posts body to the target, copying the storefront headers so the
// receiving side can dedupe and rate limit. Only transport failures are
// returned as errors; the downstream status is returned for logging.
func (r *Relay) Forward(ctx context.Context, body []byte, header http.Header) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.target, bytes.NewReader(body))
	if err != nil {
		telemetry.ObserveForward("error")
		return 0, fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		if strings.HasPrefix(http.CanonicalHeaderKey(key), "X-Shopify-") {
			req.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := r.client.Do(req)
	if err != nil {
		telemetry.ObserveForward("error")
		return 0, fmt.Errorf("forward to %s: %w", r.target, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	result := "ok"
	if resp.StatusCode >= http.StatusBadRequest {
		result = "upstream_error"
	}
	telemetry.ObserveForward(result)
	r.logger.Info("webhook forwarded",
		zap.String("target", r.target),
		zap.Int("status", resp.StatusCode),
	)
	return resp.StatusCode, nil
}
