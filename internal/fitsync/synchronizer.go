// Package fitsync upserts extracted fitment tuples into a record store.
package fitsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/ymm-sync/internal/clock/system"
	"github.com/JakeFAU/ymm-sync/internal/fitment"
	"github.com/JakeFAU/ymm-sync/internal/telemetry"
)

// Config tunes how a batch is written.
type Config struct {
	// Concurrency bounds the number of tuples synced in parallel. Values
	// below one sync sequentially.
	Concurrency int
	// TupleTimeout bounds each find/write pair. Zero means the caller's
	// context is the only deadline.
	TupleTimeout time.Duration
}

// Synchronizer performs per-tuple idempotent upserts.
type Synchronizer struct {
	store  fitment.Store
	clock  fitment.Clock
	cfg    Config
	logger *zap.Logger
}

// Summary counts the outcomes of one batch.
type Summary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// New constructs a Synchronizer.
func New(store fitment.Store, clock fitment.Clock, cfg Config, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = system.New()
	}
	return &Synchronizer{store: store, clock: clock, cfg: cfg, logger: logger}
}

// Sync writes every tuple of the batch and returns one outcome per tuple in
// input order. A failing tuple never aborts the others.
func (s *Synchronizer) Sync(ctx context.Context, meta fitment.Meta, batch fitment.Batch) []fitment.Outcome {
	ctx, span := otel.Tracer("ymm-sync/fitsync").Start(ctx, "fitsync.Sync")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", meta.ProductID),
		attribute.String("fitment.policy", string(batch.Policy)),
		attribute.Int("fitment.tuples", len(batch.Tuples)),
	)

	start := time.Now()
	outcomes := make([]fitment.Outcome, len(batch.Tuples))

	// Tuples sharing a natural key run in order on one goroutine so a
	// duplicate sees the record its twin inserted. Each goroutine owns the
	// outcome slots of its group and never returns an error.
	var g errgroup.Group
	g.SetLimit(max(1, s.cfg.Concurrency))
	for _, group := range groupByKey(meta.ProductID, batch) {
		g.Go(func() error {
			for _, i := range group {
				outcomes[i] = s.syncTuple(ctx, meta, batch.Policy, batch.Tuples[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(outcomes)
	telemetry.ObserveSyncDuration(time.Since(start))
	if summary.Failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d tuples failed", summary.Failed, len(outcomes)))
	}
	s.logger.Info("fitment batch synced",
		zap.String("product_id", meta.ProductID),
		zap.String("policy", string(batch.Policy)),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed),
	)
	return outcomes
}

// groupByKey returns tuple indices grouped by natural key, groups ordered by
// first appearance.
func groupByKey(productID string, batch fitment.Batch) [][]int {
	index := make(map[fitment.Key]int, len(batch.Tuples))
	var groups [][]int
	for i, t := range batch.Tuples {
		key := fitment.KeyFor(batch.Policy, productID, t)
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func (s *Synchronizer) syncTuple(ctx context.Context, meta fitment.Meta, policy fitment.KeyPolicy, t fitment.Tuple) fitment.Outcome {
	out := fitment.Outcome{Year: t.Year, Make: t.Brand, Model: t.Model}
	if s.cfg.TupleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TupleTimeout)
		defer cancel()
	}

	action, id, err := s.upsert(ctx, meta, policy, t)
	if err != nil {
		out.Action = fitment.ActionFailed
		out.Error = err.Error()
		s.logger.Warn("fitment sync failed",
			zap.String("product_id", meta.ProductID),
			zap.String("make", t.Brand),
			zap.String("model", t.Model),
			zap.String("year", t.Year),
			zap.Error(err),
		)
	} else {
		out.OK = true
		out.Action = action
		out.ID = id
	}
	telemetry.ObserveSyncOutcome(string(out.Action))
	return out
}

func (s *Synchronizer) upsert(ctx context.Context, meta fitment.Meta, policy fitment.KeyPolicy, t fitment.Tuple) (fitment.Action, string, error) {
	if s.store == nil {
		return fitment.ActionFailed, "", errors.New("no record store configured")
	}
	id, found, err := s.store.Find(ctx, fitment.KeyFor(policy, meta.ProductID, t))
	if err != nil {
		return fitment.ActionFailed, "", fmt.Errorf("find: %w", err)
	}
	now := s.clock.Now().UTC()
	if found {
		err = s.store.Update(ctx, id, fitment.Fields{
			Title:     meta.Title,
			Make:      t.Brand,
			Model:     t.Model,
			SKU:       meta.SKU,
			Handle:    meta.Handle,
			Image:     meta.Image,
			UpdatedAt: now,
		})
		if err != nil {
			return fitment.ActionFailed, "", fmt.Errorf("update %s: %w", id, err)
		}
		return fitment.ActionUpdated, id, nil
	}

	id, err = s.store.Insert(ctx, fitment.Record{
		ProductID: meta.ProductID,
		Title:     meta.Title,
		Make:      t.Brand,
		Model:     t.Model,
		Year:      fitment.NullableYear(t.Year),
		SKU:       meta.SKU,
		Handle:    meta.Handle,
		Image:     meta.Image,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fitment.ActionFailed, "", fmt.Errorf("insert: %w", err)
	}
	return fitment.ActionInserted, id, nil
}

// Summarize counts outcomes by action.
func Summarize(outcomes []fitment.Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Action {
		case fitment.ActionInserted:
			s.Inserted++
		case fitment.ActionUpdated:
			s.Updated++
		default:
			s.Failed++
		}
	}
	return s
}
