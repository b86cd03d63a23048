package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JakeFAU/ymm-sync/internal/extract"
	"github.com/JakeFAU/ymm-sync/internal/fitment"
	"github.com/JakeFAU/ymm-sync/internal/fitsync"
	"github.com/JakeFAU/ymm-sync/internal/telemetry"
)

// Storefront webhook headers.
const (
	headerDeliveryID = "X-Shopify-Webhook-Id"
	headerShopDomain = "X-Shopify-Shop-Domain"
)

var (
	errMissingProduct = errors.New("missing product payload")
	errMissingID      = errors.New("product id is required")
)

type updateResponse struct {
	Success bool              `json:"success"`
	Results []fitment.Outcome `json:"results"`
	Message string            `json:"message,omitempty"`
	Count   int               `json:"count"`
	Error   string            `json:"error,omitempty"`
}

// SyncEvent is published after every processed product.
type SyncEvent struct {
	ProductID string    `json:"product_id"`
	Path      string    `json:"path"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Failed    int       `json:"failed"`
	SyncedAt  time.Time `json:"synced_at"`
}

func (s *Server) updateYMM(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ymm-sync/api").Start(r.Context(), "api.updateYMM")
	defer span.End()
	logger := s.logger.With(zap.String("request_id", RequestID(ctx)))
	// completed is set once every tuple synced; until then a claimed
	// delivery id is released on the way out.
	completed := false

	if !s.admit(r) {
		telemetry.ObserveDelivery("rate_limited")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, statusForBodyError(err), err.Error())
		return
	}
	product, err := decodeProduct(body)
	if err != nil {
		telemetry.ObserveDelivery("rejected")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	meta := product.Meta()
	span.SetAttributes(attribute.String("product.id", meta.ProductID))
	logger = logger.With(zap.String("product_id", meta.ProductID))

	if deliveryID := r.Header.Get(headerDeliveryID); deliveryID != "" && s.deps.Guard != nil {
		claimed, err := s.deps.Guard.Claim(ctx, deliveryID)
		switch {
		case err != nil:
			logger.Warn("delivery guard unavailable, processing anyway", zap.Error(err))
		case !claimed:
			telemetry.ObserveDelivery("duplicate")
			writeJSON(w, http.StatusOK, updateResponse{
				Success: true,
				Results: []fitment.Outcome{},
				Message: "duplicate delivery ignored",
			})
			return
		default:
			// Runs during panic unwinding too, so a retry is not mistaken
			// for a duplicate.
			defer func() {
				if !completed {
					s.releaseDelivery(ctx, logger, deliveryID)
				}
			}()
		}
	}
	telemetry.ObserveDelivery("accepted")

	result := s.deps.Extractor.Extract(product)
	telemetry.ObserveExtraction(string(result.Path), result.Strategy, len(result.Batch.Tuples))
	span.SetAttributes(
		attribute.String("fitment.path", string(result.Path)),
		attribute.Int("fitment.tuples", len(result.Batch.Tuples)),
	)

	if s.deps.Archiver != nil {
		if uri, err := s.deps.Archiver.Archive(ctx, meta.ProductID, body); err != nil {
			logger.Warn("payload archive failed", zap.Error(err))
		} else {
			logger.Debug("payload archived", zap.String("uri", uri))
		}
	}

	outcomes := s.deps.Synchronizer.Sync(ctx, meta, result.Batch)
	summary := fitsync.Summarize(outcomes)
	s.publish(ctx, logger, meta.ProductID, result.Path, summary)
	completed = summary.Failed == 0

	writeJSON(w, http.StatusOK, updateResponse{
		Success: true,
		Results: outcomes,
		Message: fmt.Sprintf("%d fitment(s) via %s path: %d inserted, %d updated, %d failed",
			len(outcomes), result.Path, summary.Inserted, summary.Updated, summary.Failed),
		Count: len(outcomes),
	})
}

func (s *Server) releaseDelivery(ctx context.Context, logger *zap.Logger, deliveryID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.deps.Guard.Release(ctx, deliveryID); err != nil {
		logger.Warn("delivery release failed", zap.String("delivery_id", deliveryID), zap.Error(err))
		return
	}
	logger.Debug("delivery released", zap.String("delivery_id", deliveryID))
}

func (s *Server) publish(ctx context.Context, logger *zap.Logger, productID string, path extract.Path, summary fitsync.Summary) {
	if s.deps.Publisher == nil {
		return
	}
	now := time.Now().UTC()
	if s.deps.Clock != nil {
		now = s.deps.Clock.Now().UTC()
	}
	event := SyncEvent{
		ProductID: productID,
		Path:      string(path),
		Inserted:  summary.Inserted,
		Updated:   summary.Updated,
		Failed:    summary.Failed,
		SyncedAt:  now,
	}
	if _, err := s.deps.Publisher.Publish(ctx, s.opts.Topic, event); err != nil {
		logger.Warn("sync event publish failed", zap.String("topic", s.opts.Topic), zap.Error(err))
	}
}

func (s *Server) relayWebhook(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With(zap.String("request_id", RequestID(r.Context())), zap.String("route", r.URL.Path))
	body, err := s.readBody(w, r)
	if err != nil {
		logger.Warn("webhook body unreadable", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "error")
		return
	}
	if s.deps.Relay == nil {
		logger.Error("webhook relay is not configured")
		writeText(w, http.StatusInternalServerError, "error")
		return
	}
	status, err := s.deps.Relay.Forward(r.Context(), body, r.Header)
	if err != nil {
		logger.Error("webhook forward failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "error")
		return
	}
	logger.Info("webhook relayed", zap.Int("upstream_status", status))
	writeText(w, http.StatusOK, "ok")
}

func (s *Server) admit(r *http.Request) bool {
	if s.deps.Limiter == nil {
		return true
	}
	key := r.Header.Get(headerShopDomain)
	if key == "" {
		key = r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			key = host
		}
	}
	return s.deps.Limiter.Allow(key)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func statusForBodyError(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func decodeProduct(body []byte) (fitment.Product, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fitment.Product{}, errMissingProduct
	}
	var p fitment.Product
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return fitment.Product{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if strings.TrimSpace(p.Identity()) == "" {
		return fitment.Product{}, errMissingID
	}
	return p, nil
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
