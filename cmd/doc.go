// Package cmd defines the ymmsync CLI.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes /api/update-ymm, which decodes a product payload, extracts
//     year/make/model tuples and upserts them, plus /webhooks/products/{create,update}, which relay the raw
//     storefront delivery to the update endpoint and always acknowledge quickly.
//   - Extraction: internal/extract tries a fitment table in the description first and falls back to free-text
//     heuristics over the title, description and tags.
//   - Sync: internal/fitsync upserts each tuple by natural key against Postgres (pgx) or an in-memory store,
//     with bounded concurrency and a per-tuple timeout.
//   - Side effects: raw payloads can be archived to memory, local disk or GCS; a summary event is published to
//     Pub/Sub when a project is configured; repeated webhook deliveries are dropped by an in-memory or redis
//     delivery guard.
//   - Plumbing: viper and godotenv load config, zap logs, Prometheus serves /metrics and OpenTelemetry traces
//     the request path when enabled.
//
// Quick checklist:
//   - Configure env vars: YMM_SERVER_PORT or PORT, YMM_DB_DSN, YMM_STORAGE_BACKEND, YMM_PUBSUB_PROJECT_ID,
//     YMM_DEDUPE_BACKEND and YMM_REDIS_ADDR as needed.
//   - Run locally: go run . serve --config config.yaml
//   - Inspect a payload: go run . extract product.json
package cmd
