package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/ymm-sync/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 5, MaxBodyBytes: 1 << 20},
		Sync:      config.SyncConfig{Concurrency: 2, TupleTimeoutSeconds: 5},
		Extract:   config.ExtractConfig{LowConfidenceFallback: true},
		Storage:   config.StorageConfig{Backend: "memory", Prefix: "payloads"},
		PubSub:    config.PubSubConfig{TopicName: "fitments.synced"},
		Forward:   config.ForwardConfig{TimeoutSeconds: 1},
		Dedupe:    config.DedupeConfig{Backend: "memory", TTLSeconds: 60},
		RateLimit: config.RateLimitConfig{RPS: 100, Burst: 10},
		Telemetry: config.TelemetryConfig{ServiceName: "ymm-sync-test"},
	}
}

func TestBuildWithInMemoryBackends(t *testing.T) {
	cfg := memoryConfig()
	app, err := BuildWithLogger(context.Background(), cfg, "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	require.Nil(t, app.pgStore)
	require.Nil(t, app.pubsubClient)
	require.Nil(t, app.redisGuard)
	require.NotNil(t, app.fitmentStore)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"id": 42, "title": "Brake Pad fits Honda Accord 2010"}`
	req := httptest.NewRequest(http.MethodPost, "/api/update-ymm", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Webhook-Id", "delivery-1")
	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Count   int    `json:"count"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 1, resp.Count)

	req = httptest.NewRequest(http.MethodPost, "/api/update-ymm", strings.NewReader(body))
	req.Header.Set("X-Shopify-Webhook-Id", "delivery-1")
	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "duplicate delivery ignored")
}

func TestBuildRejectsBadLocalStorage(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage = config.StorageConfig{Backend: "local"}

	_, err := BuildWithLogger(context.Background(), cfg, "test", zap.NewNop())
	require.ErrorContains(t, err, "local blob store init failed")
}

func TestBuildWithArchiveDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Backend = "none"
	cfg.Dedupe.Backend = "none"
	cfg.RateLimit.RPS = 0
	cfg.Forward.TargetURL = "http://127.0.0.1:1/api/update-ymm"

	app, err := BuildWithLogger(context.Background(), cfg, "test", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, app.Close(context.Background()))
}
