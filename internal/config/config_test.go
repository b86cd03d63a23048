package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout())
	require.Equal(t, "ymm", cfg.DB.Table)
	require.Equal(t, 1, cfg.Sync.Concurrency)
	require.Equal(t, 10*time.Second, cfg.TupleTimeout())
	require.True(t, cfg.Extract.LowConfidenceFallback)
	require.Equal(t, "none", cfg.Storage.Backend)
	require.Equal(t, "fitments.synced", cfg.PubSub.TopicName)
	require.Equal(t, 24*time.Hour, cfg.DedupeTTL())
	require.Equal(t, "ymm-sync", cfg.Telemetry.ServiceName)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 5
logging:
  development: true
db:
  dsn: postgres://localhost/ymm
  table: fitments
  max_conns: 8
  max_conn_lifetime_seconds: 60
sync:
  concurrency: 4
  tuple_timeout_seconds: 2
extract:
  low_confidence_fallback: false
storage:
  backend: local
  prefix: archive
  local:
    base_dir: /tmp/ymm
dedupe:
  backend: redis
  ttl_seconds: 60
redis:
  addr: localhost:6379
ratelimit:
  rps: 5
  burst: 2
forward:
  target_url: http://localhost:9090/api/update-ymm
  timeout_seconds: 3
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.Logging.Development)
	require.Equal(t, "fitments", cfg.DB.Table)
	require.Equal(t, int32(8), cfg.DB.MaxConns)
	require.Equal(t, time.Minute, cfg.MaxConnLifetime())
	require.Equal(t, 4, cfg.Sync.Concurrency)
	require.False(t, cfg.Extract.LowConfidenceFallback)
	require.Equal(t, "/tmp/ymm", cfg.Storage.Local.BaseDir)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.InDelta(t, 5.0, cfg.RateLimit.RPS, 0.0001)
	require.Equal(t, 3*time.Second, cfg.ForwardTimeout())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("YMM_SYNC_CONCURRENCY", "3")
	t.Setenv("YMM_STORAGE_BACKEND", "memory")
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Sync.Concurrency)
	require.Equal(t, "memory", cfg.Storage.Backend)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "http")

	_, err := Load("")
	require.ErrorContains(t, err, "parse PORT")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server: ServerConfig{Port: 8080, RequestTimeoutSeconds: 10},
		Sync:   SyncConfig{Concurrency: 1},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "invalid timeout", mutate: func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, want: "server.request_timeout_seconds"},
		{name: "invalid concurrency", mutate: func(c *Config) { c.Sync.Concurrency = 0 }, want: "sync.concurrency"},
		{name: "negative tuple timeout", mutate: func(c *Config) { c.Sync.TupleTimeoutSeconds = -1 }, want: "sync.tuple_timeout_seconds"},
		{name: "unknown storage backend", mutate: func(c *Config) { c.Storage.Backend = "s3" }, want: "storage.backend"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Storage.Backend = "gcs" }, want: "storage.bucket"},
		{name: "local without dir", mutate: func(c *Config) { c.Storage.Backend = "local" }, want: "storage.local.base_dir"},
		{name: "redis without addr", mutate: func(c *Config) { c.Dedupe.Backend = "redis" }, want: "redis.addr"},
		{name: "unknown dedupe backend", mutate: func(c *Config) { c.Dedupe.Backend = "etcd" }, want: "dedupe.backend"},
		{name: "pubsub without topic", mutate: func(c *Config) { c.PubSub.ProjectID = "proj" }, want: "pubsub.topic_name"},
		{name: "negative rps", mutate: func(c *Config) { c.RateLimit.RPS = -1 }, want: "ratelimit.rps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
