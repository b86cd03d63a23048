// Package api hosts the HTTP server, middleware and handlers. Notable routes:
//   - POST /api/update-ymm extracts fitments from a product payload and
//     upserts them.
//   - POST /webhooks/products/create and /webhooks/products/update relay the
//     storefront webhook to the update endpoint.
//   - GET /healthz, /readyz for probes and GET /metrics for Prometheus.
package api
